package authz

import "strings"

const (
	RoleStudent   = 10
	RoleAssistant = 20
	RoleAdmin     = 50
)

func IsAdmin(roleID int) bool {
	return roleID == RoleAdmin
}

func RoleName(roleID int) string {
	switch roleID {
	case RoleStudent:
		return "student"
	case RoleAssistant:
		return "assistant"
	case RoleAdmin:
		return "admin"
	}
	return "unknown"
}

// ParseRole maps a public role name to its id. Admin accounts cannot be
// self-registered, so "admin" is not accepted here.
func ParseRole(name string) (int, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "student", "estudiante":
		return RoleStudent, true
	case "assistant", "asistente":
		return RoleAssistant, true
	}
	return 0, false
}
