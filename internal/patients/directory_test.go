package patients

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func newTestDirectory() *Directory {
	return NewDirectory(NewInMemoryRepository(), nil)
}

func TestDirectory_AddThenFindCaseInsensitive(t *testing.T) {
	d := newTestDirectory()
	ctx := context.Background()

	res, err := d.Add(ctx, NewPatient{FirstName: "Jean", LastName: "Pascal", Email: "Jean.Pascal@Example.com", Phone: "0612345678"})
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, "Jean.Pascal@Example.com", res.Patient.Email)

	found, err := d.FindByEmail(ctx, "jean.pascal@example.com")
	require.NoError(t, err)
	assert.Equal(t, res.Patient.ID, found.ID)
}

func TestDirectory_AddIsIdempotent(t *testing.T) {
	d := newTestDirectory()
	ctx := context.Background()

	first, err := d.Add(ctx, NewPatient{FirstName: "Jean", LastName: "Pascal", Email: "jean@example.com", Phone: "0612345678"})
	require.NoError(t, err)
	second, err := d.Add(ctx, NewPatient{FirstName: "Jeannot", LastName: "Pascal", Email: "JEAN@example.com", Phone: "0699999999"})
	require.NoError(t, err)

	assert.True(t, first.Created)
	assert.False(t, second.Created)
	assert.Equal(t, first.Patient.ID, second.Patient.ID)
	assert.Equal(t, "Jean", second.Patient.FirstName)

	all, err := d.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestDirectory_AddValidation(t *testing.T) {
	d := newTestDirectory()
	ctx := context.Background()

	_, err := d.Add(ctx, NewPatient{FirstName: " ", LastName: "Pascal", Email: "a@b.c"})
	assert.ErrorIs(t, err, ErrInvalidName)

	_, err = d.Add(ctx, NewPatient{FirstName: "Jean", LastName: "Pascal"})
	assert.ErrorIs(t, err, ErrMissingContact)

	res, err := d.Add(ctx, NewPatient{FirstName: "Jean", LastName: "Pascal", Phone: " 0612345678 "})
	require.NoError(t, err)
	assert.Equal(t, "0612345678", res.Patient.Phone)

	byPhone, err := d.FindByPhone(ctx, "0612345678")
	require.NoError(t, err)
	assert.Equal(t, res.Patient.ID, byPhone.ID)
}

func TestDirectory_Update(t *testing.T) {
	d := newTestDirectory()
	ctx := context.Background()

	jean, err := d.Add(ctx, NewPatient{FirstName: "Jean", LastName: "Pascal", Email: "jean@example.com"})
	require.NoError(t, err)
	marie, err := d.Add(ctx, NewPatient{FirstName: "Marie", LastName: "Curie", Email: "marie@example.com"})
	require.NoError(t, err)

	t.Run("by email", func(t *testing.T) {
		updated, err := d.Update(ctx, "", "JEAN@example.com", Changes{Phone: strPtr("0700000000")})
		require.NoError(t, err)
		assert.Equal(t, jean.Patient.ID, updated.ID)
		assert.Equal(t, "0700000000", updated.Phone)
	})

	t.Run("by id", func(t *testing.T) {
		updated, err := d.Update(ctx, marie.Patient.ID, "", Changes{LastName: strPtr("Sklodowska")})
		require.NoError(t, err)
		assert.Equal(t, "Sklodowska", updated.LastName)
	})

	t.Run("unknown target never creates", func(t *testing.T) {
		_, err := d.Update(ctx, "", "ghost@example.com", Changes{Phone: strPtr("1")})
		assert.ErrorIs(t, err, ErrPatientNotFound)
		all, _ := d.ListAll(ctx)
		assert.Len(t, all, 2)
	})

	t.Run("no fields", func(t *testing.T) {
		_, err := d.Update(ctx, jean.Patient.ID, "", Changes{FirstName: strPtr("  ")})
		assert.ErrorIs(t, err, ErrNoChanges)
	})

	t.Run("email taken", func(t *testing.T) {
		_, err := d.Update(ctx, jean.Patient.ID, "", Changes{Email: strPtr("Marie@Example.com")})
		assert.ErrorIs(t, err, ErrEmailTaken)
	})

	t.Run("same email different case is allowed", func(t *testing.T) {
		updated, err := d.Update(ctx, jean.Patient.ID, "", Changes{Email: strPtr("Jean@Example.com")})
		require.NoError(t, err)
		assert.Equal(t, "Jean@Example.com", updated.Email)
	})

	t.Run("missing id and email", func(t *testing.T) {
		_, err := d.Update(ctx, "", "", Changes{Phone: strPtr("1")})
		assert.ErrorIs(t, err, ErrMissingContact)
	})
}

func TestDirectory_Delete(t *testing.T) {
	d := newTestDirectory()
	ctx := context.Background()

	res, err := d.Add(ctx, NewPatient{FirstName: "Jean", LastName: "Pascal", Email: "jean@example.com"})
	require.NoError(t, err)

	require.NoError(t, d.Delete(ctx, res.Patient.ID))
	assert.ErrorIs(t, d.Delete(ctx, res.Patient.ID), ErrPatientNotFound)

	_, err = d.FindByEmail(ctx, "jean@example.com")
	assert.ErrorIs(t, err, ErrPatientNotFound)
}

func TestPatient_FullName(t *testing.T) {
	p := &Patient{FirstName: "Jean", LastName: "Pascal"}
	assert.Equal(t, "Jean Pascal", p.FullName())
}
