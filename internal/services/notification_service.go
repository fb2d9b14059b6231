package services

import (
	"context"
	"fmt"
	"html"
	"sync"

	"intihelp/internal/logging"
	"intihelp/internal/models"
	"intihelp/internal/repositories"
)

// Notifier tells users about changes to their tasks and payments. Delivery
// failures are logged and never surface to the caller.
type Notifier interface {
	TaskChanged(ctx context.Context, task *models.Task, actorID int64, title string)
	PaymentReviewed(ctx context.Context, p *models.Payment, task *models.Task)
	DueSoon(ctx context.Context, task *models.Task) error
	Wait()
}

type notificationService struct {
	users    repositories.UserRepository
	emails   EmailService
	telegram *TelegramService
	wg       sync.WaitGroup
}

func NewNotificationService(users repositories.UserRepository, emails EmailService, telegram *TelegramService) Notifier {
	return &notificationService{users: users, emails: emails, telegram: telegram}
}

// Wait blocks until queued deliveries finish.
func (s *notificationService) Wait() { s.wg.Wait() }

func (s *notificationService) TaskChanged(ctx context.Context, task *models.Task, actorID int64, title string) {
	var recipients []int64
	if task.StudentID != actorID {
		recipients = append(recipients, task.StudentID)
	}
	if task.AssistantID != nil && *task.AssistantID != actorID {
		recipients = append(recipients, *task.AssistantID)
	}
	subject := fmt.Sprintf("Tarea #%d: %s", task.ID, task.Status)
	body := fmt.Sprintf("La tarea \"%s\" cambió a %s.", task.Title, task.Status)
	if title != "" {
		body += " " + title
	}
	s.dispatch(ctx, recipients, subject, body)
}

func (s *notificationService) PaymentReviewed(ctx context.Context, p *models.Payment, task *models.Task) {
	subject := fmt.Sprintf("Pago #%d %s", p.ID, paymentStatusLabel(p.Status))
	body := fmt.Sprintf("Tu pago de %s para la tarea \"%s\" fue %s.", p.Amount.StringFixed(2), task.Title, paymentStatusLabel(p.Status))
	if p.RejectionReason != "" {
		body += " Motivo: " + p.RejectionReason
	}
	s.dispatch(ctx, []int64{p.PayerUserID}, subject, body)
}

// DueSoon is sent synchronously so the reminder job can record delivery.
func (s *notificationService) DueSoon(ctx context.Context, task *models.Task) error {
	if task.AssistantID == nil {
		return nil
	}
	subject := fmt.Sprintf("Recordatorio: tarea #%d vence pronto", task.ID)
	body := fmt.Sprintf("La tarea \"%s\" vence el %s.", task.Title, task.DueDate.Format("02/01/2006 15:04"))
	return s.deliver(ctx, *task.AssistantID, subject, body)
}

func (s *notificationService) dispatch(ctx context.Context, userIDs []int64, subject, body string) {
	if len(userIDs) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for _, id := range userIDs {
			if err := s.deliver(ctx, id, subject, body); err != nil {
				logging.Warn("[notify][err]", "user_id", id, "subject", subject, "error", err)
			}
		}
	}()
}

func (s *notificationService) deliver(ctx context.Context, userID int64, subject, body string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	var firstErr error
	if err := s.emails.SendNotification(user.Email, subject, body); err != nil {
		firstErr = err
	}
	if user.NotifyTelegram && user.TelegramChatID != 0 {
		if err := s.telegram.SendMessage(user.TelegramChatID, "<b>"+html.EscapeString(subject)+"</b>\n"+html.EscapeString(body)); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func paymentStatusLabel(s models.PaymentStatus) string {
	switch s {
	case models.PaymentVerified:
		return "verificado"
	case models.PaymentRejected:
		return "rechazado"
	}
	return "pendiente"
}
