// Package services contains the portal's business logic.
// File: services/schedule_service.go
package services

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"fme-portal/logger"
	"fme-portal/models"
	"fme-portal/storage"
)

// ---------------- errors ----------------

var (
	ErrInvalidShift     = errors.New("shift must be morning, afternoon or evening")
	ErrInvalidDate      = errors.New("date must be YYYY-MM-DD")
	ErrSlotTaken        = errors.New("that date and shift already has a duty slot")
	ErrScheduleNotFound = errors.New("schedule not found")
)

// ---------------- service interface ----------------

// ScheduleServiceInterface manages the duty roster.
type ScheduleServiceInterface interface {
	Create(date, shift, studentName, studentEmail string) (models.Schedule, error)
	Confirm(id, adminEmail string) error
	Delete(id string) error
	All() ([]models.Schedule, error)
	ForEmail(email string) ([]models.Schedule, error)
}

// ---------------- service implementation ----------------

// ScheduleService is the storage-backed implementation.
type ScheduleService struct {
	store storage.Store
	mu    sync.Mutex
}

// NewScheduleService builds the service.
func NewScheduleService(store storage.Store) *ScheduleService {
	return &ScheduleService{store: store}
}

func (svc *ScheduleService) load() ([]models.Schedule, error) {
	var list []models.Schedule
	if err := svc.store.Read(storage.KeySchedules, &list); err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return list, nil
}

// Create adds a duty slot. A given date+shift pair may hold one slot only.
func (svc *ScheduleService) Create(date, shift, studentName, studentEmail string) (models.Schedule, error) {
	if !models.ValidShift(shift) {
		return models.Schedule{}, ErrInvalidShift
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return models.Schedule{}, ErrInvalidDate
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	list, err := svc.load()
	if err != nil {
		return models.Schedule{}, err
	}
	for _, s := range list {
		if s.Date == date && s.Shift == shift {
			return models.Schedule{}, ErrSlotTaken
		}
	}

	schedule := models.Schedule{
		ID:           uuid.NewString(),
		Date:         date,
		Shift:        shift,
		StudentName:  studentName,
		StudentEmail: studentEmail,
	}
	if err := svc.store.Write(storage.KeySchedules, append(list, schedule)); err != nil {
		return models.Schedule{}, err
	}
	logger.Info.Printf("[ScheduleService.Create] %s %s assigned to %s", date, shift, studentEmail)
	return schedule, nil
}

// Confirm marks a slot confirmed, stamping who and when. Confirming an
// already confirmed slot keeps the original stamp.
func (svc *ScheduleService) Confirm(id, adminEmail string) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	list, err := svc.load()
	if err != nil {
		return err
	}
	for i := range list {
		if list[i].ID == id {
			if list[i].Confirmed {
				return nil
			}
			list[i].Confirmed = true
			list[i].ConfirmedBy = adminEmail
			list[i].ConfirmedAt = time.Now().UTC().Format(time.RFC3339)
			return svc.store.Write(storage.KeySchedules, list)
		}
	}
	return ErrScheduleNotFound
}

// Delete removes a slot by id.
func (svc *ScheduleService) Delete(id string) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	list, err := svc.load()
	if err != nil {
		return err
	}
	for i := range list {
		if list[i].ID == id {
			list = append(list[:i], list[i+1:]...)
			return svc.store.Write(storage.KeySchedules, list)
		}
	}
	return ErrScheduleNotFound
}

// All returns every duty slot.
func (svc *ScheduleService) All() ([]models.Schedule, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.load()
}

// ForEmail returns the slots whose StudentEmail matches. The field is
// informational only; this is a convenience view, not an ownership check.
func (svc *ScheduleService) ForEmail(email string) ([]models.Schedule, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	list, err := svc.load()
	if err != nil {
		return nil, err
	}
	var out []models.Schedule
	for _, s := range list {
		if s.StudentEmail == email {
			out = append(out, s)
		}
	}
	return out, nil
}
