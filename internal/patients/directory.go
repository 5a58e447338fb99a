package patients

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

// AddResult reports whether Add created a record or found an existing one.
type AddResult struct {
	Patient *Patient
	Created bool
}

// Directory implements patient lookups and writes on top of a Repository.
type Directory struct {
	repo   Repository
	logger *logging.Logger
}

// NewDirectory wires a directory to its store.
func NewDirectory(repo Repository, logger *logging.Logger) *Directory {
	if repo == nil {
		panic("patients: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Directory{repo: repo, logger: logger}
}

// FindByEmail matches case-insensitively.
func (d *Directory) FindByEmail(ctx context.Context, email string) (*Patient, error) {
	if strings.TrimSpace(email) == "" {
		return nil, ErrMissingContact
	}
	return d.repo.GetByEmail(ctx, email)
}

func (d *Directory) FindByPhone(ctx context.Context, phone string) (*Patient, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, ErrMissingContact
	}
	return d.repo.GetByPhone(ctx, phone)
}

// Add is idempotent on email: a second call with the same address (any case)
// returns the first record.
func (d *Directory) Add(ctx context.Context, in NewPatient) (*AddResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	p, created, err := d.repo.Insert(ctx, &in)
	if err != nil {
		return nil, err
	}
	if !created {
		d.logger.Info("patient already registered", "patient_id", p.ID)
	}
	return &AddResult{Patient: p, Created: created}, nil
}

// Update resolves the record by id, or by email when no id is given. It
// never creates a record.
func (d *Directory) Update(ctx context.Context, id, email string, changes Changes) (*Patient, error) {
	changes = trimChanges(changes)
	if changes.Empty() {
		return nil, ErrNoChanges
	}

	target, err := d.resolve(ctx, id, email)
	if err != nil {
		return nil, err
	}

	if changes.Email != nil {
		other, err := d.repo.GetByEmail(ctx, *changes.Email)
		switch {
		case err == nil && other.ID != target.ID:
			return nil, ErrEmailTaken
		case err != nil && !errors.Is(err, ErrPatientNotFound):
			return nil, err
		}
	}

	return d.repo.Update(ctx, target.ID, changes)
}

func (d *Directory) ListAll(ctx context.Context) ([]*Patient, error) {
	return d.repo.List(ctx)
}

// Delete removes a record. Only the admin API calls this.
func (d *Directory) Delete(ctx context.Context, id string) error {
	if err := d.repo.Delete(ctx, id); err != nil {
		return err
	}
	d.logger.Info("patient deleted", "patient_id", id)
	return nil
}

func (d *Directory) resolve(ctx context.Context, id, email string) (*Patient, error) {
	id = strings.TrimSpace(id)
	email = strings.TrimSpace(email)
	switch {
	case id != "":
		return d.repo.GetByID(ctx, id)
	case email != "":
		return d.repo.GetByEmail(ctx, email)
	default:
		return nil, fmt.Errorf("patients: update: %w", ErrMissingContact)
	}
}

// Blank values count as "not supplied".
func trimChanges(c Changes) Changes {
	trim := func(s *string) *string {
		if s == nil {
			return nil
		}
		v := strings.TrimSpace(*s)
		if v == "" {
			return nil
		}
		return &v
	}
	return Changes{
		FirstName: trim(c.FirstName),
		LastName:  trim(c.LastName),
		Email:     trim(c.Email),
		Phone:     trim(c.Phone),
	}
}
