// Package memory implements the repository interfaces on in-process maps.
// A single mutex guards the whole store, so every operation is atomic in the
// same way a database transaction is.
package memory

import (
	"sort"
	"strings"
	"sync"
	"time"

	"intihelp/internal/models"
	"intihelp/internal/repositories"
)

type Store struct {
	mu  sync.Mutex
	now func() time.Time

	seq map[string]int64

	users          map[int64]*models.User
	resets         map[string]*models.PasswordReset
	telegramLinks  map[string]*models.TelegramLink
	taskTypes      map[int64]*models.TaskType
	careers        map[int64]*models.Career
	universities   map[int64]*models.University
	assistantTypes map[int64]*models.AssistantTaskType
	bands          map[int64][]models.PriceBand
	coupons        map[string]*models.Coupon
	files          map[int64]*models.File
	tasks          map[int64]*models.Task
	timeline       map[int64][]models.StatusTimelineEntry
	taskFiles      map[int64][]models.TaskFile
	groups         map[int64]*models.PaymentGroup
	members        map[int64]*models.GroupMember
	payments       map[int64]*models.Payment
	ratings        map[int64]*models.Rating
}

// New returns an empty store seeded with the same catalog as the SQL schema.
func New() *Store {
	s := &Store{
		now:            time.Now,
		seq:            map[string]int64{},
		users:          map[int64]*models.User{},
		resets:         map[string]*models.PasswordReset{},
		telegramLinks:  map[string]*models.TelegramLink{},
		taskTypes:      map[int64]*models.TaskType{},
		careers:        map[int64]*models.Career{},
		universities:   map[int64]*models.University{},
		assistantTypes: map[int64]*models.AssistantTaskType{},
		bands:          map[int64][]models.PriceBand{},
		coupons:        map[string]*models.Coupon{},
		files:          map[int64]*models.File{},
		tasks:          map[int64]*models.Task{},
		timeline:       map[int64][]models.StatusTimelineEntry{},
		taskFiles:      map[int64][]models.TaskFile{},
		groups:         map[int64]*models.PaymentGroup{},
		members:        map[int64]*models.GroupMember{},
		payments:       map[int64]*models.Payment{},
		ratings:        map[int64]*models.Rating{},
	}
	for _, name := range []string{"Ensayo", "Monografía", "Informe", "Tesis", "Presentación"} {
		id := s.next("task_types")
		s.taskTypes[id] = &models.TaskType{ID: id, Name: name}
	}
	for _, name := range []string{"Derecho", "Ingeniería de Sistemas", "Administración", "Medicina", "Psicología"} {
		id := s.next("careers")
		s.careers[id] = &models.Career{ID: id, Name: name}
	}
	for _, name := range []string{
		"Universidad Nacional Mayor de San Marcos",
		"Pontificia Universidad Católica del Perú",
		"Universidad Nacional de San Antonio Abad del Cusco",
	} {
		id := s.next("universities")
		s.universities[id] = &models.University{ID: id, Name: name}
	}
	return s
}

// SetClock replaces the time source; tests use it to control expiry.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) next(table string) int64 {
	s.seq[table]++
	return s.seq[table]
}

func (s *Store) Users() repositories.UserRepository                   { return &userRepo{s} }
func (s *Store) PasswordResets() repositories.PasswordResetRepository { return &passwordResetRepo{s} }
func (s *Store) TelegramLinks() repositories.TelegramLinkRepository   { return &telegramLinkRepo{s} }
func (s *Store) Catalog() repositories.CatalogRepository              { return &catalogRepo{s} }
func (s *Store) Pricing() repositories.PricingRepository              { return &pricingRepo{s} }
func (s *Store) Coupons() repositories.CouponRepository               { return &couponRepo{s} }
func (s *Store) Files() repositories.FileRepository                   { return &fileRepo{s} }
func (s *Store) Tasks() repositories.TaskRepository                   { return &taskRepo{s} }
func (s *Store) Groups() repositories.GroupRepository                 { return &groupRepo{s} }
func (s *Store) Payments() repositories.PaymentRepository             { return &paymentRepo{s} }

// CurrentEntries counts timeline entries flagged current for a task.
func (s *Store) CurrentEntries(taskID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.timeline[taskID] {
		if e.IsCurrent {
			n++
		}
	}
	return n
}

func containsStatus(list []models.TaskStatus, s models.TaskStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func sortByName[T any](list []T, name func(T) string) {
	sort.Slice(list, func(i, j int) bool { return strings.Compare(name(list[i]), name(list[j])) < 0 })
}

func cloneInt64(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
