package models

import "time"

// StatusTimelineEntry is one step of a task's history. Exactly one entry per
// task has IsCurrent set, and its Status equals the task's status.
type StatusTimelineEntry struct {
	ID          int64      `json:"id"`
	TaskID      int64      `json:"task_id"`
	Status      TaskStatus `json:"status"`
	Title       string     `json:"title"`
	CreatedBy   int64      `json:"created_by"`
	IsCurrent   bool       `json:"is_current"`
	CompletedAt time.Time  `json:"completed_at"`
}

type Rating struct {
	ID        int64     `json:"id"`
	TaskID    int64     `json:"task_id"`
	RatedBy   int64     `json:"rated_by"`
	RatedUser int64     `json:"rated_user"`
	Rating    int       `json:"rating"`
	Review    string    `json:"review"`
	CreatedAt time.Time `json:"created_at"`
}
