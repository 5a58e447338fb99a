// Package patients keeps the clinic's patient contact directory.
package patients

import (
	"strings"
	"time"
)

// Patient is a contact record. Email is unique across the directory when set,
// compared case-insensitively; values are stored as typed.
type Patient struct {
	ID        string    `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FullName is the display name used in spoken confirmations.
func (p *Patient) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// NewPatient is the payload for Directory.Add.
type NewPatient struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

// Validate trims input in place and checks required fields.
func (n *NewPatient) Validate() error {
	n.FirstName = strings.TrimSpace(n.FirstName)
	n.LastName = strings.TrimSpace(n.LastName)
	n.Email = strings.TrimSpace(n.Email)
	n.Phone = strings.TrimSpace(n.Phone)
	if n.FirstName == "" || n.LastName == "" {
		return ErrInvalidName
	}
	if n.Email == "" && n.Phone == "" {
		return ErrMissingContact
	}
	return nil
}

// Changes lists the fields to overwrite; nil means keep.
type Changes struct {
	FirstName *string
	LastName  *string
	Email     *string
	Phone     *string
}

// Empty reports whether no field is set.
func (c Changes) Empty() bool {
	return c.FirstName == nil && c.LastName == nil && c.Email == nil && c.Phone == nil
}

func (c Changes) apply(p *Patient) {
	if c.FirstName != nil {
		p.FirstName = *c.FirstName
	}
	if c.LastName != nil {
		p.LastName = *c.LastName
	}
	if c.Email != nil {
		p.Email = *c.Email
	}
	if c.Phone != nil {
		p.Phone = *c.Phone
	}
}

// NormalizeEmail is the lookup key for email comparisons.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
