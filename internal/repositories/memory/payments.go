package memory

import (
	"context"
	"sort"

	"intihelp/internal/models"
	"intihelp/internal/repositories"
)

type groupRepo struct{ s *Store }

func (s *Store) groupLocked(g *models.PaymentGroup) *models.PaymentGroup {
	c := *g
	c.Members = nil
	for _, m := range s.members {
		if m.GroupID == g.ID {
			mc := *m
			mc.UserID = cloneInt64(m.UserID)
			c.Members = append(c.Members, mc)
		}
	}
	sort.Slice(c.Members, func(i, j int) bool { return c.Members[i].ID < c.Members[j].ID })
	return &c
}

func (r *groupRepo) GetByID(_ context.Context, id int64) (*models.PaymentGroup, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	g, ok := r.s.groups[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return r.s.groupLocked(g), nil
}

func (r *groupRepo) GetByTaskID(_ context.Context, taskID int64) (*models.PaymentGroup, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, g := range r.s.groups {
		if g.TaskID == taskID {
			return r.s.groupLocked(g), nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *groupRepo) GetMember(_ context.Context, memberID int64) (*models.GroupMember, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.members[memberID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	c := *m
	c.UserID = cloneInt64(m.UserID)
	return &c, nil
}

type paymentRepo struct{ s *Store }

func copyPayment(p *models.Payment) *models.Payment {
	c := *p
	c.GroupMemberID = cloneInt64(p.GroupMemberID)
	c.VerifiedBy = cloneInt64(p.VerifiedBy)
	if p.VerifiedAt != nil {
		v := *p.VerifiedAt
		c.VerifiedAt = &v
	}
	return &c
}

func (r *paymentRepo) Create(_ context.Context, p *models.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.tasks[p.TaskID]
	if !ok {
		return repositories.ErrNotFound
	}
	if t.Status != models.StatusAccepted {
		return repositories.ErrStaleStatus
	}

	var member *models.GroupMember
	if p.GroupMemberID == nil {
		for _, existing := range r.s.payments {
			if existing.TaskID == p.TaskID && existing.GroupMemberID == nil &&
				existing.Status != models.PaymentRejected {
				return repositories.ErrPaymentExists
			}
		}
	} else {
		member, ok = r.s.members[*p.GroupMemberID]
		if !ok {
			return repositories.ErrNotFound
		}
		if !member.PaymentStatus.CanSubmit() {
			return repositories.ErrMemberNotPayable
		}
	}

	now := r.s.now()
	if member != nil {
		member.PaymentStatus = models.MemberSent
		if member.UserID == nil {
			payer := p.PayerUserID
			member.UserID = &payer
		}
		member.UpdatedAt = now
	}
	if p.Method == "" {
		p.Method = models.PaymentMethodBankTransfer
	}
	p.Status = models.PaymentPending
	p.ID = r.s.next("payments")
	p.CreatedAt = now
	r.s.payments[p.ID] = copyPayment(p)
	return nil
}

func (r *paymentRepo) GetByID(_ context.Context, id int64) (*models.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.payments[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return copyPayment(p), nil
}

func (r *paymentRepo) ListByPayer(_ context.Context, payerID int64) ([]models.Payment, error) {
	return r.list(func(p *models.Payment) bool { return p.PayerUserID == payerID }), nil
}

func (r *paymentRepo) ListByTask(_ context.Context, taskID int64) ([]models.Payment, error) {
	return r.list(func(p *models.Payment) bool { return p.TaskID == taskID }), nil
}

func (r *paymentRepo) list(match func(*models.Payment) bool) []models.Payment {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Payment
	for _, p := range r.s.payments {
		if match(p) {
			out = append(out, *copyPayment(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (r *paymentRepo) Verify(_ context.Context, in repositories.VerifyPaymentInput) (*repositories.VerifyPaymentResult, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.payments[in.PaymentID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	if p.Status != models.PaymentPending {
		return nil, repositories.ErrPaymentNotPending
	}
	t, ok := r.s.tasks[p.TaskID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	if t.Status != models.StatusAccepted {
		return nil, repositories.ErrStaleStatus
	}

	now := r.s.now()
	verifier := in.VerifierID
	p.Status = models.PaymentVerified
	p.VerifiedBy = &verifier
	p.VerifiedAt = &now

	settled := true
	if p.GroupMemberID != nil {
		m, ok := r.s.members[*p.GroupMemberID]
		if !ok {
			return nil, repositories.ErrNotFound
		}
		m.PaymentStatus = models.MemberVerified
		m.UpdatedAt = now
		for _, other := range r.s.members {
			if other.GroupID == m.GroupID && other.PaymentStatus != models.MemberVerified {
				settled = false
				break
			}
		}
	}

	res := &repositories.VerifyPaymentResult{Payment: copyPayment(p)}
	if settled {
		task, err := r.s.transitionLocked(repositories.TransitionInput{
			TaskID:  p.TaskID,
			From:    models.StatusAccepted,
			To:      models.StatusPaid,
			Title:   in.PaidTitle,
			ActorID: in.VerifierID,
		})
		if err != nil {
			return nil, err
		}
		res.Task = task
	}
	return res, nil
}

func (r *paymentRepo) Reject(_ context.Context, paymentID, verifierID int64, reason string) (*models.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.payments[paymentID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	if p.Status != models.PaymentPending {
		return nil, repositories.ErrPaymentNotPending
	}
	now := r.s.now()
	p.Status = models.PaymentRejected
	p.VerifiedBy = &verifierID
	p.VerifiedAt = &now
	p.RejectionReason = reason
	if p.GroupMemberID != nil {
		if m, ok := r.s.members[*p.GroupMemberID]; ok {
			m.PaymentStatus = models.MemberInvalid
			m.UpdatedAt = now
		}
	}
	return copyPayment(p), nil
}
