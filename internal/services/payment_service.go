package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"intihelp/internal/authz"
	"intihelp/internal/lock"
	"intihelp/internal/logging"
	"intihelp/internal/models"
	"intihelp/internal/pdf"
	"intihelp/internal/repositories"
)

// ReceiptCurrency is printed next to amounts on payment receipts.
const ReceiptCurrency = "S/"

type SubmitPaymentInput struct {
	TaskID        int64     `form:"task_id" json:"task_id" binding:"required"`
	MemberID      *int64    `form:"member_id" json:"member_id"`
	SenderName    string    `form:"sender_name" json:"sender_name" binding:"required"`
	SenderBank    string    `form:"sender_bank" json:"sender_bank" binding:"required"`
	RecipientBank string    `form:"recipient_bank" json:"recipient_bank" binding:"required"`
	TransferDate  time.Time `form:"transfer_date" json:"transfer_date" time_format:"2006-01-02" binding:"required"`
	ReceiptFileID int64     `form:"receipt_file_id" json:"receipt_file_id"`
}

type PaymentService interface {
	Submit(ctx context.Context, sess authz.Session, in SubmitPaymentInput) (*models.Payment, error)
	Verify(ctx context.Context, sess authz.Session, paymentID int64) (*models.Payment, error)
	Reject(ctx context.Context, sess authz.Session, paymentID int64, reason string) (*models.Payment, error)
	// History lists the caller's own payments, or a task's payments when
	// taskID is set and the caller may see that task.
	History(ctx context.Context, sess authz.Session, taskID int64) ([]models.Payment, error)
	WriteReceipt(ctx context.Context, sess authz.Session, paymentID int64, w io.Writer) error
	Group(ctx context.Context, sess authz.Session, groupID int64) (*models.PaymentGroup, error)
}

type paymentService struct {
	repo   repositories.PaymentRepository
	tasks  repositories.TaskRepository
	groups repositories.GroupRepository
	users  repositories.UserRepository
	files  FileService
	locker lock.Locker
	notify Notifier
	pdf    pdf.Generator
	now    func() time.Time
}

func NewPaymentService(
	repo repositories.PaymentRepository,
	tasks repositories.TaskRepository,
	groups repositories.GroupRepository,
	users repositories.UserRepository,
	files FileService,
	locker lock.Locker,
	notify Notifier,
	gen pdf.Generator,
) PaymentService {
	return &paymentService{
		repo:   repo,
		tasks:  tasks,
		groups: groups,
		users:  users,
		files:  files,
		locker: locker,
		notify: notify,
		pdf:    gen,
		now:    time.Now,
	}
}

func (s *paymentService) Submit(ctx context.Context, sess authz.Session, in SubmitPaymentInput) (*models.Payment, error) {
	if sess.IsAssistant() {
		return nil, ErrForbidden
	}
	in.SenderName = strings.TrimSpace(in.SenderName)
	in.SenderBank = strings.TrimSpace(in.SenderBank)
	in.RecipientBank = strings.TrimSpace(in.RecipientBank)
	if in.SenderName == "" || in.SenderBank == "" || in.RecipientBank == "" {
		return nil, invalid("sender_name, sender_bank and recipient_bank are required")
	}
	if in.TransferDate.IsZero() || in.TransferDate.After(s.now()) {
		return nil, invalid("transfer_date must not be in the future")
	}
	if in.ReceiptFileID == 0 {
		return nil, invalid("a receipt file is required")
	}
	if _, err := s.files.Owned(ctx, sess.UserID, models.UploadPaymentReceipt, []int64{in.ReceiptFileID}); err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, taskLockKey(in.TaskID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	task, err := s.tasks.GetByID(ctx, in.TaskID)
	if err != nil {
		return nil, err
	}

	p := &models.Payment{
		TaskID:        task.ID,
		PayerUserID:   sess.UserID,
		Method:        models.PaymentMethodBankTransfer,
		SenderName:    in.SenderName,
		SenderBank:    in.SenderBank,
		RecipientBank: in.RecipientBank,
		TransferDate:  in.TransferDate,
		ReceiptFileID: in.ReceiptFileID,
	}

	switch task.PaymentType {
	case models.PaymentTypeGroup:
		if in.MemberID == nil {
			return nil, invalid("member_id is required for a group payment")
		}
		m, err := s.groups.GetMember(ctx, *in.MemberID)
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, invalid("member %d not found", *in.MemberID)
		}
		if err != nil {
			return nil, err
		}
		if task.GroupID == nil || m.GroupID != *task.GroupID {
			return nil, invalid("member %d does not belong to this task", m.ID)
		}
		if m.UserID != nil && *m.UserID != sess.UserID {
			return nil, ErrForbidden
		}
		p.GroupMemberID = &m.ID
		p.Amount = m.ShareAmount
	default:
		if in.MemberID != nil {
			return nil, invalid("member_id is only valid for group payments")
		}
		if task.StudentID != sess.UserID {
			return nil, ErrForbidden
		}
		p.Amount = task.TotalPrice
	}

	if task.Status != models.StatusAccepted {
		return nil, ErrPaymentNotAllowed
	}
	if err := s.repo.Create(ctx, p); err != nil {
		if errors.Is(err, repositories.ErrStaleStatus) {
			return nil, ErrPaymentNotAllowed
		}
		return nil, err
	}
	logging.Info("[payment][submit][ok]", "payment_id", p.ID, "task_id", p.TaskID, "payer_id", sess.UserID, "amount", p.Amount.String())
	return p, nil
}

func (s *paymentService) review(ctx context.Context, sess authz.Session, paymentID int64, apply func(p *models.Payment) (*models.Payment, *models.Task, error)) (*models.Payment, error) {
	if !sess.IsAdmin() {
		return nil, ErrForbidden
	}
	p, err := s.repo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	unlock, err := s.locker.Lock(ctx, taskLockKey(p.TaskID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	updated, movedTask, err := apply(p)
	if err != nil {
		return nil, err
	}
	task := movedTask
	if task == nil {
		if task, err = s.tasks.GetByID(ctx, updated.TaskID); err != nil {
			return updated, nil
		}
	}
	s.notify.PaymentReviewed(ctx, updated, task)
	if movedTask != nil {
		s.notify.TaskChanged(ctx, movedTask, sess.UserID, statusTitles[models.StatusPaid])
	}
	return updated, nil
}

// Verify accepts a pending payment. Verifying the last outstanding share
// moves the task to Tarea Pagada in the same write.
func (s *paymentService) Verify(ctx context.Context, sess authz.Session, paymentID int64) (*models.Payment, error) {
	return s.review(ctx, sess, paymentID, func(p *models.Payment) (*models.Payment, *models.Task, error) {
		res, err := s.repo.Verify(ctx, repositories.VerifyPaymentInput{
			PaymentID:  p.ID,
			VerifierID: sess.UserID,
			PaidTitle:  statusTitles[models.StatusPaid],
		})
		if errors.Is(err, repositories.ErrStaleStatus) {
			return nil, nil, ErrPaymentNotAllowed
		}
		if err != nil {
			return nil, nil, err
		}
		logging.Info("[payment][verify][ok]", "payment_id", p.ID, "task_id", p.TaskID, "task_paid", res.Task != nil)
		return res.Payment, res.Task, nil
	})
}

func (s *paymentService) Reject(ctx context.Context, sess authz.Session, paymentID int64, reason string) (*models.Payment, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, invalid("reason is required")
	}
	return s.review(ctx, sess, paymentID, func(p *models.Payment) (*models.Payment, *models.Task, error) {
		out, err := s.repo.Reject(ctx, p.ID, sess.UserID, reason)
		if err != nil {
			return nil, nil, err
		}
		logging.Info("[payment][reject][ok]", "payment_id", p.ID, "task_id", p.TaskID)
		return out, nil, nil
	})
}

func (s *paymentService) History(ctx context.Context, sess authz.Session, taskID int64) ([]models.Payment, error) {
	var (
		out []models.Payment
		err error
	)
	if taskID > 0 {
		task, terr := s.tasks.GetByID(ctx, taskID)
		if terr != nil {
			return nil, terr
		}
		if !sess.IsAdmin() && !task.IsParticipant(sess.UserID) {
			return nil, ErrForbidden
		}
		out, err = s.repo.ListByTask(ctx, taskID)
	} else {
		out, err = s.repo.ListByPayer(ctx, sess.UserID)
	}
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.Payment{}
	}
	return out, nil
}

func (s *paymentService) WriteReceipt(ctx context.Context, sess authz.Session, paymentID int64, w io.Writer) error {
	p, err := s.repo.GetByID(ctx, paymentID)
	if err != nil {
		return err
	}
	if !sess.IsAdmin() && p.PayerUserID != sess.UserID {
		return ErrForbidden
	}
	if p.Status != models.PaymentVerified || p.VerifiedAt == nil {
		return ErrPaymentNotAllowed
	}
	task, err := s.tasks.GetByID(ctx, p.TaskID)
	if err != nil {
		return err
	}
	payer, err := s.users.GetByID(ctx, p.PayerUserID)
	if err != nil {
		return err
	}

	data := pdf.ReceiptData{
		PaymentID:     p.ID,
		TaskID:        task.ID,
		TaskTitle:     task.Title,
		PayerName:     payer.FullName,
		Amount:        p.Amount.StringFixed(2),
		Currency:      ReceiptCurrency,
		Method:        "Transferencia bancaria",
		SenderName:    p.SenderName,
		SenderBank:    p.SenderBank,
		RecipientBank: p.RecipientBank,
		TransferDate:  p.TransferDate,
		VerifiedAt:    *p.VerifiedAt,
	}
	if p.GroupMemberID != nil {
		if m, err := s.groups.GetMember(ctx, *p.GroupMemberID); err == nil {
			data.MemberName = m.MemberName
		}
	} else {
		data.AssistantPrice = task.AssistantPrice.StringFixed(2)
		data.PlatformFee = task.PlatformFee.StringFixed(2)
		if task.Discount.IsPositive() {
			data.Discount = task.Discount.StringFixed(2)
		}
		data.Total = task.TotalPrice.StringFixed(2)
	}
	return s.pdf.WriteReceipt(w, data)
}

func (s *paymentService) Group(ctx context.Context, sess authz.Session, groupID int64) (*models.PaymentGroup, error) {
	g, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if sess.IsAdmin() {
		return g, nil
	}
	task, err := s.tasks.GetByID(ctx, g.TaskID)
	if err != nil {
		return nil, err
	}
	// Anyone holding the group link may view it to pick their share.
	if task.IsParticipant(sess.UserID) || sess.IsStudent() {
		return g, nil
	}
	return nil, ErrForbidden
}
