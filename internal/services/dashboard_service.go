package services

import (
	"context"

	"intihelp/internal/authz"
	"intihelp/internal/models"
	"intihelp/internal/repositories"
)

type DashboardService interface {
	Assistant(ctx context.Context, sess authz.Session) (*models.AssistantStats, error)
}

type dashboardService struct {
	tasks repositories.TaskRepository
}

func NewDashboardService(tasks repositories.TaskRepository) DashboardService {
	return &dashboardService{tasks: tasks}
}

// Assistant summarises the caller's tasks and income. Figures are computed
// on every call.
func (s *dashboardService) Assistant(ctx context.Context, sess authz.Session) (*models.AssistantStats, error) {
	if !sess.IsAssistant() {
		return nil, ErrForbidden
	}
	stats, err := s.tasks.AssistantStats(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	if stats.ActiveTasks == nil {
		stats.ActiveTasks = []models.Task{}
	}
	return stats, nil
}
