package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"intihelp/internal/models"
	"intihelp/internal/repositories"
)

type taskRepo struct{ s *Store }

func copyTask(t *models.Task) *models.Task {
	c := *t
	c.AssistantID = cloneInt64(t.AssistantID)
	c.CareerID = cloneInt64(t.CareerID)
	c.GroupID = cloneInt64(t.GroupID)
	if t.CouponCode != nil {
		v := *t.CouponCode
		c.CouponCode = &v
	}
	if t.IdempotencyKey != nil {
		v := *t.IdempotencyKey
		c.IdempotencyKey = &v
	}
	if t.LastRemindedAt != nil {
		v := *t.LastRemindedAt
		c.LastRemindedAt = &v
	}
	return &c
}

func (r *taskRepo) Create(_ context.Context, in repositories.CreateTaskInput) (*models.Task, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t := in.Task
	if t.IdempotencyKey != nil {
		for _, existing := range r.s.tasks {
			if existing.StudentID == t.StudentID && existing.IdempotencyKey != nil &&
				*existing.IdempotencyKey == *t.IdempotencyKey {
				return copyTask(existing), false, nil
			}
		}
	}
	if t.PaymentType == models.PaymentTypeGroup && len(in.Shares) != len(in.Members) {
		return nil, false, fmt.Errorf("members and shares differ in length")
	}
	for _, id := range in.FileIDs {
		if _, ok := r.s.files[id]; !ok {
			return nil, false, repositories.ErrNotFound
		}
	}

	now := r.s.now()
	stored := copyTask(t)
	stored.ID = r.s.next("tasks")
	stored.Status = models.StatusRequested
	stored.Version = 1
	stored.LastRemindedAt = nil
	stored.CreatedAt = now
	stored.UpdatedAt = now

	if t.PaymentType == models.PaymentTypeGroup {
		g := &models.PaymentGroup{ID: r.s.next("payment_groups"), TaskID: stored.ID, Name: in.GroupName, CreatedAt: now}
		g.GroupLink = fmt.Sprintf("/groups/%d", g.ID)
		r.s.groups[g.ID] = g
		for i, name := range in.Members {
			m := &models.GroupMember{
				ID:            r.s.next("group_members"),
				GroupID:       g.ID,
				MemberName:    name,
				ShareAmount:   in.Shares[i],
				PaymentStatus: models.MemberPending,
				UpdatedAt:     now,
			}
			r.s.members[m.ID] = m
		}
		gid := g.ID
		stored.GroupID = &gid
	}
	for _, id := range in.FileIDs {
		r.s.taskFiles[stored.ID] = append(r.s.taskFiles[stored.ID],
			models.TaskFile{TaskID: stored.ID, FileID: id, UploadType: models.UploadRequirement})
	}
	r.s.timeline[stored.ID] = []models.StatusTimelineEntry{{
		ID:          r.s.next("task_status_timeline"),
		TaskID:      stored.ID,
		Status:      models.StatusRequested,
		Title:       in.TimelineTitle,
		CreatedBy:   t.StudentID,
		IsCurrent:   true,
		CompletedAt: now,
	}}
	r.s.tasks[stored.ID] = stored
	return copyTask(stored), true, nil
}

func (r *taskRepo) GetByID(_ context.Context, id int64) (*models.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tasks[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return copyTask(t), nil
}

func (r *taskRepo) List(_ context.Context, filter models.TaskFilter) ([]models.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.listLocked(filter), nil
}

func (s *Store) listLocked(filter models.TaskFilter) []models.Task {
	var out []models.Task
	for _, t := range s.tasks {
		if filter.StudentID != nil && t.StudentID != *filter.StudentID {
			continue
		}
		if filter.AssistantID != nil && (t.AssistantID == nil || *t.AssistantID != *filter.AssistantID) {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, t.Status) {
			continue
		}
		if containsStatus(filter.ExcludeStatuses, t.Status) {
			continue
		}
		out = append(out, *copyTask(t))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (r *taskRepo) Timeline(_ context.Context, taskID int64) ([]models.StatusTimelineEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return append([]models.StatusTimelineEntry(nil), r.s.timeline[taskID]...), nil
}

func (r *taskRepo) Files(_ context.Context, taskID int64) ([]models.TaskFile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.TaskFile
	for _, tf := range r.s.taskFiles[taskID] {
		f, ok := r.s.files[tf.FileID]
		if !ok {
			continue
		}
		fc := *f
		tf.File = &fc
		out = append(out, tf)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FileID < out[j].FileID })
	return out, nil
}

func (r *taskRepo) Transition(_ context.Context, in repositories.TransitionInput) (*models.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.transitionLocked(in)
}

// transitionLocked applies a status change with s.mu held. Nothing is
// written unless every check passes.
func (s *Store) transitionLocked(in repositories.TransitionInput) (*models.Task, error) {
	t, ok := s.tasks[in.TaskID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	if t.Status != in.From {
		return nil, repositories.ErrStaleStatus
	}
	for _, f := range in.Files {
		if _, ok := s.files[f.FileID]; !ok {
			return nil, repositories.ErrNotFound
		}
	}
	if in.Rating != nil {
		if _, ok := s.ratings[in.TaskID]; ok {
			return nil, repositories.ErrDuplicate
		}
	}

	now := s.now()
	entries := s.timeline[in.TaskID]
	for i := range entries {
		entries[i].IsCurrent = false
	}
	s.timeline[in.TaskID] = append(entries, models.StatusTimelineEntry{
		ID:          s.next("task_status_timeline"),
		TaskID:      in.TaskID,
		Status:      in.To,
		Title:       in.Title,
		CreatedBy:   in.ActorID,
		IsCurrent:   true,
		CompletedAt: now,
	})

	t.Status = in.To
	if in.AssignAssistantID != nil {
		t.AssistantID = cloneInt64(in.AssignAssistantID)
	}
	t.Version++
	t.UpdatedAt = now

	for _, f := range in.Files {
		s.taskFiles[in.TaskID] = append(s.taskFiles[in.TaskID],
			models.TaskFile{TaskID: in.TaskID, FileID: f.FileID, UploadType: f.UploadType})
	}
	if in.Rating != nil {
		rt := in.Rating
		rt.ID = s.next("ratings")
		rt.TaskID = in.TaskID
		rt.CreatedAt = now
		cp := *rt
		s.ratings[in.TaskID] = &cp
	}
	return copyTask(t), nil
}

func (r *taskRepo) ListDueForReminder(_ context.Context, statuses []models.TaskStatus, dueBefore time.Time, limit int) ([]models.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Task
	for _, t := range r.s.tasks {
		if !containsStatus(statuses, t.Status) || t.AssistantID == nil || t.LastRemindedAt != nil {
			continue
		}
		if t.DueDate.After(dueBefore) {
			continue
		}
		out = append(out, *copyTask(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *taskRepo) SetReminderFired(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if t, ok := r.s.tasks[id]; ok {
		now := r.s.now()
		t.LastRemindedAt = &now
	}
	return nil
}

func (r *taskRepo) AssistantStats(_ context.Context, assistantID int64) (*models.AssistantStats, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stats := &models.AssistantStats{TotalIncome: decimal.Zero, PendingIncome: decimal.Zero}
	for _, t := range r.s.tasks {
		if t.AssistantID == nil || *t.AssistantID != assistantID {
			continue
		}
		stats.TotalTasks++
		if t.Status == models.StatusAssistantPaid {
			stats.TotalIncome = stats.TotalIncome.Add(t.AssistantPrice)
		}
		if !containsStatus(repositories.ClosedStatuses, t.Status) {
			stats.PendingIncome = stats.PendingIncome.Add(t.AssistantPrice)
		}
	}
	stats.AvgRating = r.s.avgRatingLocked(assistantID)
	stats.ActiveTasks = r.s.listLocked(models.TaskFilter{
		AssistantID:     &assistantID,
		ExcludeStatuses: repositories.InactiveStatuses,
	})
	return stats, nil
}
