package memory

import (
	"context"

	"intihelp/internal/models"
	"intihelp/internal/repositories"
)

type catalogRepo struct{ s *Store }

func (r *catalogRepo) ListTaskTypes(_ context.Context) ([]models.TaskType, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]models.TaskType, 0, len(r.s.taskTypes))
	for _, t := range r.s.taskTypes {
		out = append(out, *t)
	}
	sortByName(out, func(t models.TaskType) string { return t.Name })
	return out, nil
}

func (r *catalogRepo) GetTaskType(_ context.Context, id int64) (*models.TaskType, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.taskTypes[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	c := *t
	return &c, nil
}

func (r *catalogRepo) ListCareers(_ context.Context) ([]models.Career, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]models.Career, 0, len(r.s.careers))
	for _, c := range r.s.careers {
		out = append(out, *c)
	}
	sortByName(out, func(c models.Career) string { return c.Name })
	return out, nil
}

func (r *catalogRepo) ListUniversities(_ context.Context) ([]models.University, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]models.University, 0, len(r.s.universities))
	for _, u := range r.s.universities {
		out = append(out, *u)
	}
	sortByName(out, func(u models.University) string { return u.Name })
	return out, nil
}
