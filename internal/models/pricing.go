package models

import "github.com/shopspring/decimal"

// Criterion names the dimension a price band applies to.
type Criterion string

const (
	CriterionPages      Criterion = "pages"
	CriterionAI         Criterion = "ia"
	CriterionPlagiarism Criterion = "plagiarism"
)

func (c Criterion) Valid() bool {
	return c == CriterionPages || c == CriterionAI || c == CriterionPlagiarism
}

// PriceBand is an inclusive [MinValue, MaxValue] range with a cost.
type PriceBand struct {
	ID                  int64           `json:"id"`
	AssistantTaskTypeID int64           `json:"assistant_task_type_id"`
	Criterion           Criterion       `json:"criterion_type"`
	MinValue            int             `json:"min_value"`
	MaxValue            int             `json:"max_value"`
	Cost                decimal.Decimal `json:"cost"`
}

// Contains reports whether v lies within the band, bounds included.
func (b PriceBand) Contains(v int) bool {
	return v >= b.MinValue && v <= b.MaxValue
}

// AssistantTaskType links an assistant to a task type they offer.
type AssistantTaskType struct {
	ID          int64 `json:"id"`
	AssistantID int64 `json:"assistant_id"`
	TaskTypeID  int64 `json:"task_type_id"`
	IsEnabled   bool  `json:"is_enabled"`
}

// AssistantOffer is everything needed to quote one assistant for a task type.
type AssistantOffer struct {
	AssistantTaskType
	AssistantName string      `json:"assistant_name"`
	KnowHowAreas  string      `json:"know_how_areas"`
	AvgRating     float64     `json:"avg_rating"`
	Bands         []PriceBand `json:"bands"`
}
