package memory

import (
	"context"
	"sort"

	"intihelp/internal/models"
	"intihelp/internal/repositories"
)

type pricingRepo struct{ s *Store }

func (r *pricingRepo) findType(assistantID, taskTypeID int64) *models.AssistantTaskType {
	for _, att := range r.s.assistantTypes {
		if att.AssistantID == assistantID && att.TaskTypeID == taskTypeID {
			return att
		}
	}
	return nil
}

func (r *pricingRepo) GetAssistantTaskType(_ context.Context, assistantID, taskTypeID int64) (*models.AssistantTaskType, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	att := r.findType(assistantID, taskTypeID)
	if att == nil {
		return nil, repositories.ErrNotFound
	}
	c := *att
	return &c, nil
}

func (r *pricingRepo) ListBands(_ context.Context, assistantTaskTypeID int64) ([]models.PriceBand, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.bandsLocked(assistantTaskTypeID), nil
}

func (r *pricingRepo) bandsLocked(id int64) []models.PriceBand {
	src := r.s.bands[id]
	if len(src) == 0 {
		return nil
	}
	out := append([]models.PriceBand(nil), src...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Criterion != out[j].Criterion {
			return out[i].Criterion < out[j].Criterion
		}
		if out[i].MinValue != out[j].MinValue {
			return out[i].MinValue < out[j].MinValue
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *pricingRepo) SaveService(_ context.Context, assistantID, taskTypeID int64, enabled bool, bands []models.PriceBand) (*models.AssistantTaskType, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	att := r.findType(assistantID, taskTypeID)
	if att == nil {
		att = &models.AssistantTaskType{
			ID:          r.s.next("assistant_task_types"),
			AssistantID: assistantID,
			TaskTypeID:  taskTypeID,
		}
		r.s.assistantTypes[att.ID] = att
	}
	att.IsEnabled = enabled

	if bands != nil {
		stored := make([]models.PriceBand, len(bands))
		for i := range bands {
			bands[i].ID = r.s.next("assistant_pricing")
			bands[i].AssistantTaskTypeID = att.ID
			stored[i] = bands[i]
		}
		r.s.bands[att.ID] = stored
	}
	c := *att
	return &c, nil
}

func (r *pricingRepo) offerLocked(att *models.AssistantTaskType) (models.AssistantOffer, bool) {
	u, ok := r.s.users[att.AssistantID]
	if !ok {
		return models.AssistantOffer{}, false
	}
	return models.AssistantOffer{
		AssistantTaskType: *att,
		AssistantName:     u.FullName,
		KnowHowAreas:      u.KnowHowAreas,
		AvgRating:         r.s.avgRatingLocked(u.ID),
		Bands:             r.bandsLocked(att.ID),
	}, true
}

func (r *pricingRepo) ListOffers(_ context.Context, taskTypeID int64) ([]models.AssistantOffer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.AssistantOffer
	for _, att := range r.s.assistantTypes {
		if !att.IsEnabled || att.TaskTypeID != taskTypeID {
			continue
		}
		if o, ok := r.offerLocked(att); ok {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *pricingRepo) GetOffer(_ context.Context, assistantID, taskTypeID int64) (*models.AssistantOffer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	att := r.findType(assistantID, taskTypeID)
	if att == nil || !att.IsEnabled {
		return nil, repositories.ErrNotFound
	}
	o, ok := r.offerLocked(att)
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &o, nil
}

func (s *Store) avgRatingLocked(userID int64) float64 {
	var sum, n int
	for _, rt := range s.ratings {
		if rt.RatedUser == userID {
			sum += rt.Rating
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return float64(sum) / float64(n)
}

type couponRepo struct{ s *Store }

func (r *couponRepo) Create(_ context.Context, c *models.Coupon) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.coupons[c.Code]; ok {
		return repositories.ErrDuplicate
	}
	c.ID = r.s.next("coupons")
	c.CreatedAt = r.s.now()
	cp := *c
	r.s.coupons[c.Code] = &cp
	return nil
}

func (r *couponRepo) GetByCode(_ context.Context, code string) (*models.Coupon, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.coupons[code]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *couponRepo) Deactivate(_ context.Context, code string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.coupons[code]
	if !ok {
		return repositories.ErrNotFound
	}
	c.IsActive = false
	return nil
}

type fileRepo struct{ s *Store }

func (r *fileRepo) Create(_ context.Context, f *models.File) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	f.ID = r.s.next("files")
	f.CreatedAt = r.s.now()
	cp := *f
	r.s.files[f.ID] = &cp
	return nil
}

func (r *fileRepo) GetByID(_ context.Context, id int64) (*models.File, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	f, ok := r.s.files[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (r *fileRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.files[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.s.files, id)
	return nil
}

func (r *fileRepo) LinkedTaskIDs(_ context.Context, fileID int64) ([]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	seen := map[int64]bool{}
	var ids []int64
	add := func(id int64) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for taskID, links := range r.s.taskFiles {
		for _, tf := range links {
			if tf.FileID == fileID {
				add(taskID)
			}
		}
	}
	for _, p := range r.s.payments {
		if p.ReceiptFileID == fileID {
			add(p.TaskID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}
