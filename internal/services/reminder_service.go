package services

import (
	"context"
	"time"

	"intihelp/internal/logging"
	"intihelp/internal/models"
	"intihelp/internal/repositories"
)

// ReminderStatuses are the statuses in which the assistant still owes work.
var ReminderStatuses = []models.TaskStatus{
	models.StatusPaid, models.StatusStarted, models.StatusProgressSent,
}

type ReminderService interface {
	// Run notifies assistants of tasks due within the window and returns how
	// many reminders were sent. Each task is reminded once.
	Run(ctx context.Context) (int, error)
}

type reminderService struct {
	tasks     repositories.TaskRepository
	notify    Notifier
	window    time.Duration
	batchSize int
	now       func() time.Time
}

func NewReminderService(tasks repositories.TaskRepository, notify Notifier, window time.Duration, batchSize int) ReminderService {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &reminderService{tasks: tasks, notify: notify, window: window, batchSize: batchSize, now: time.Now}
}

func (s *reminderService) Run(ctx context.Context) (int, error) {
	due, err := s.tasks.ListDueForReminder(ctx, ReminderStatuses, s.now().Add(s.window), s.batchSize)
	if err != nil {
		return 0, err
	}
	sent := 0
	for i := range due {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		t := &due[i]
		if err := s.notify.DueSoon(ctx, t); err != nil {
			logging.Warn("[reminder][send][err]", "task_id", t.ID, "error", err)
			continue
		}
		if err := s.tasks.SetReminderFired(ctx, t.ID); err != nil {
			logging.Error("[reminder][mark][err]", "task_id", t.ID, "error", err)
			continue
		}
		sent++
	}
	if sent > 0 {
		logging.Info("[reminder][run][ok]", "sent", sent, "due", len(due))
	}
	return sent, nil
}
