package services

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"intihelp/internal/models"
	"intihelp/internal/pricing"
	"intihelp/internal/repositories"
)

// ServicePricing is an assistant's offer for one task type.
type ServicePricing struct {
	TaskTypeID int64              `json:"task_type_id"`
	IsEnabled  bool               `json:"is_enabled"`
	Bands      []models.PriceBand `json:"bands"`
}

type SaveServiceInput struct {
	IsEnabled bool               `json:"is_enabled"`
	Bands     []models.PriceBand `json:"bands"`
}

type QuoteRequest struct {
	TaskTypeID int64 `json:"task_type_id" binding:"required"`
	pricing.Input
	CouponCode string `json:"coupon_code"`
}

// AssistantQuote is one selectable assistant with its price breakdown.
type AssistantQuote struct {
	AssistantID   int64   `json:"assistant_id"`
	AssistantName string  `json:"assistant_name"`
	KnowHowAreas  string  `json:"know_how_areas"`
	AvgRating     float64 `json:"avg_rating"`
	pricing.Quote
}

type PricingService interface {
	GetService(ctx context.Context, assistantID, taskTypeID int64) (*ServicePricing, error)
	SaveService(ctx context.Context, assistantID, taskTypeID int64, in SaveServiceInput) (*ServicePricing, error)
	QuoteAssistants(ctx context.Context, req QuoteRequest) ([]AssistantQuote, error)
	QuoteFor(ctx context.Context, assistantID int64, req QuoteRequest) (*pricing.Quote, error)
}

type pricingService struct {
	repo    repositories.PricingRepository
	catalog repositories.CatalogRepository
	coupons CouponService
	engine  *pricing.Engine
}

func NewPricingService(repo repositories.PricingRepository, catalog repositories.CatalogRepository, coupons CouponService, engine *pricing.Engine) PricingService {
	return &pricingService{repo: repo, catalog: catalog, coupons: coupons, engine: engine}
}

func (s *pricingService) GetService(ctx context.Context, assistantID, taskTypeID int64) (*ServicePricing, error) {
	if _, err := s.catalog.GetTaskType(ctx, taskTypeID); err != nil {
		return nil, err
	}
	att, err := s.repo.GetAssistantTaskType(ctx, assistantID, taskTypeID)
	if errors.Is(err, repositories.ErrNotFound) {
		return &ServicePricing{TaskTypeID: taskTypeID, Bands: []models.PriceBand{}}, nil
	}
	if err != nil {
		return nil, err
	}
	bands, err := s.repo.ListBands(ctx, att.ID)
	if err != nil {
		return nil, err
	}
	if bands == nil {
		bands = []models.PriceBand{}
	}
	return &ServicePricing{TaskTypeID: taskTypeID, IsEnabled: att.IsEnabled, Bands: bands}, nil
}

// SaveService replaces the whole band set. A nil Bands slice keeps the
// current bands and only toggles availability.
func (s *pricingService) SaveService(ctx context.Context, assistantID, taskTypeID int64, in SaveServiceInput) (*ServicePricing, error) {
	if _, err := s.catalog.GetTaskType(ctx, taskTypeID); err != nil {
		return nil, err
	}
	if err := pricing.ValidateBands(in.Bands); err != nil {
		return nil, err
	}
	if _, err := s.repo.SaveService(ctx, assistantID, taskTypeID, in.IsEnabled, in.Bands); err != nil {
		return nil, err
	}
	return s.GetService(ctx, assistantID, taskTypeID)
}

func validateInput(in pricing.Input) error {
	if in.PageCount < 1 {
		return invalid("page_count must be at least 1")
	}
	if in.MaxAIPercentage < 0 || in.MaxAIPercentage > 100 {
		return invalid("max_ai_percentage must be between 0 and 100")
	}
	if in.MaxPlagiarismPercentage < 0 || in.MaxPlagiarismPercentage > 100 {
		return invalid("max_plagiarism_percentage must be between 0 and 100")
	}
	return nil
}

func (s *pricingService) discountFor(ctx context.Context, code string, q pricing.Quote) (pricing.Quote, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return q.WithDiscount(decimal.Zero), nil
	}
	d, _, err := s.coupons.Discount(ctx, code, q.Total)
	if err != nil {
		return q, err
	}
	return q.WithDiscount(d), nil
}

// QuoteAssistants prices every assistant offering the task type. Assistants
// whose price comes to zero are left out. Results are cheapest first, then
// best rated.
func (s *pricingService) QuoteAssistants(ctx context.Context, req QuoteRequest) ([]AssistantQuote, error) {
	if err := validateInput(req.Input); err != nil {
		return nil, err
	}
	offers, err := s.repo.ListOffers(ctx, req.TaskTypeID)
	if err != nil {
		return nil, err
	}

	out := []AssistantQuote{}
	for _, o := range offers {
		q := s.engine.Quote(req.Input, o.Bands)
		if !q.Available() {
			continue
		}
		q, err = s.discountFor(ctx, req.CouponCode, q)
		if err != nil {
			return nil, err
		}
		out = append(out, AssistantQuote{
			AssistantID:   o.AssistantID,
			AssistantName: o.AssistantName,
			KnowHowAreas:  o.KnowHowAreas,
			AvgRating:     o.AvgRating,
			Quote:         q,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Payable.Equal(out[j].Payable) {
			return out[i].Payable.LessThan(out[j].Payable)
		}
		if out[i].AvgRating != out[j].AvgRating {
			return out[i].AvgRating > out[j].AvgRating
		}
		return out[i].AssistantID < out[j].AssistantID
	})
	return out, nil
}

func (s *pricingService) QuoteFor(ctx context.Context, assistantID int64, req QuoteRequest) (*pricing.Quote, error) {
	if err := validateInput(req.Input); err != nil {
		return nil, err
	}
	offer, err := s.repo.GetOffer(ctx, assistantID, req.TaskTypeID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrAssistantNoPrice
	}
	if err != nil {
		return nil, err
	}
	q := s.engine.Quote(req.Input, offer.Bands)
	if !q.Available() {
		return nil, ErrAssistantNoPrice
	}
	q, err = s.discountFor(ctx, req.CouponCode, q)
	if err != nil {
		return nil, err
	}
	return &q, nil
}
