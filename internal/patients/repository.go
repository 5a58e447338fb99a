package patients

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository is the storage surface behind Directory.
type Repository interface {
	// Insert stores a new record. If the email is already present the
	// existing record is returned with created=false.
	Insert(ctx context.Context, p *NewPatient) (patient *Patient, created bool, err error)
	GetByID(ctx context.Context, id string) (*Patient, error)
	GetByEmail(ctx context.Context, email string) (*Patient, error)
	GetByPhone(ctx context.Context, phone string) (*Patient, error)
	Update(ctx context.Context, id string, changes Changes) (*Patient, error)
	List(ctx context.Context) ([]*Patient, error)
	Delete(ctx context.Context, id string) error
}

// InMemoryRepository is a Repository for development and tests.
type InMemoryRepository struct {
	mu       sync.RWMutex
	patients map[string]*Patient
	now      func() time.Time
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		patients: make(map[string]*Patient),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (r *InMemoryRepository) Insert(ctx context.Context, p *NewPatient) (*Patient, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p.Email != "" {
		if existing := r.findEmailLocked(p.Email); existing != nil {
			cp := *existing
			return &cp, false, nil
		}
	}

	now := r.now()
	patient := &Patient{
		ID:        uuid.New().String(),
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Email:     p.Email,
		Phone:     p.Phone,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.patients[patient.ID] = patient
	cp := *patient
	return &cp, true, nil
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *InMemoryRepository) GetByEmail(ctx context.Context, email string) (*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p := r.findEmailLocked(email)
	if p == nil {
		return nil, ErrPatientNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *InMemoryRepository) GetByPhone(ctx context.Context, phone string) (*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.sortedLocked() {
		if p.Phone == phone {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrPatientNotFound
}

func (r *InMemoryRepository) Update(ctx context.Context, id string, changes Changes) (*Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	if changes.Email != nil {
		if other := r.findEmailLocked(*changes.Email); other != nil && other.ID != id {
			return nil, ErrEmailTaken
		}
	}
	changes.apply(p)
	p.UpdatedAt = r.now()
	cp := *p
	return &cp, nil
}

func (r *InMemoryRepository) List(ctx context.Context) ([]*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sorted := r.sortedLocked()
	out := make([]*Patient, 0, len(sorted))
	for _, p := range sorted {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (r *InMemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.patients[id]; !ok {
		return ErrPatientNotFound
	}
	delete(r.patients, id)
	return nil
}

func (r *InMemoryRepository) findEmailLocked(email string) *Patient {
	key := NormalizeEmail(email)
	if key == "" {
		return nil
	}
	for _, p := range r.patients {
		if NormalizeEmail(p.Email) == key {
			return p
		}
	}
	return nil
}

// Insertion order, so list output and phone lookups are deterministic.
func (r *InMemoryRepository) sortedLocked() []*Patient {
	out := make([]*Patient, 0, len(r.patients))
	for _, p := range r.patients {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
