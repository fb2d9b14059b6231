package authz

import "context"

// Session identifies the authenticated caller of one request. It is resolved
// once by the auth middleware and never mutated afterwards.
type Session struct {
	UserID int64
	RoleID int
}

func (s Session) IsStudent() bool   { return s.RoleID == RoleStudent }
func (s Session) IsAssistant() bool { return s.RoleID == RoleAssistant }
func (s Session) IsAdmin() bool     { return s.RoleID == RoleAdmin }

type sessionKey struct{}

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

func SessionFrom(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok
}
