// Package scheduler runs periodic jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron"

	"intihelp/internal/logging"
)

// Job is one periodic unit of work.
type Job func(ctx context.Context) error

var parser = cron.NewParser(
	cron.Minute |
		cron.Hour |
		cron.Dom |
		cron.Month |
		cron.Dow |
		cron.Descriptor,
)

// Parse accepts five-field expressions and descriptors such as @hourly.
func Parse(expr string) (cron.Schedule, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("empty cron expression")
	}
	sched, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("cron expression %q: %w", expr, err)
	}
	return sched, nil
}

type entry struct {
	name     string
	schedule cron.Schedule
	job      Job
}

type Scheduler struct {
	entries []entry
	now     func() time.Time
	wg      sync.WaitGroup
}

func New() *Scheduler {
	return &Scheduler{now: time.Now}
}

func (s *Scheduler) Add(name, expr string, job Job) error {
	sched, err := Parse(expr)
	if err != nil {
		return err
	}
	s.entries = append(s.entries, entry{name: name, schedule: sched, job: job})
	return nil
}

// Start runs every job on its schedule until ctx is cancelled. Runs of the
// same job never overlap.
func (s *Scheduler) Start(ctx context.Context) {
	for _, e := range s.entries {
		s.wg.Add(1)
		go func(e entry) {
			defer s.wg.Done()
			s.listen(ctx, e)
		}(e)
	}
}

// Wait blocks until every job loop has returned.
func (s *Scheduler) Wait() { s.wg.Wait() }

func (s *Scheduler) listen(ctx context.Context, e entry) {
	logging.Info("[scheduler][listen]", "job", e.name)
	for {
		select {
		case <-time.After(time.Until(e.schedule.Next(s.now()))):
			s.fire(ctx, e)
		case <-ctx.Done():
			logging.Info("[scheduler][stop]", "job", e.name)
			return
		}
	}
}

func (s *Scheduler) fire(ctx context.Context, e entry) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("[scheduler][panic]", "job", e.name, "panic", r)
		}
	}()
	start := s.now()
	if err := e.job(ctx); err != nil {
		logging.Error("[scheduler][job][err]", "job", e.name, "error", err)
		return
	}
	logging.Debug("[scheduler][job][ok]", "job", e.name, "took", time.Since(start).String())
}
