package main

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-booking-assistant/migrations"
)

type fakeMigrator struct {
	upErr   error
	steps   []int
	forced  int
	version uint
}

func (f *fakeMigrator) Up() error { return f.upErr }
func (f *fakeMigrator) Steps(n int) error { f.steps = append(f.steps, n); return nil }
func (f *fakeMigrator) Force(v int) error { f.forced = v; return nil }
func (f *fakeMigrator) Version() (uint, bool, error) { return f.version, false, nil }

func TestRunCommand(t *testing.T) {
	t.Run("up defaults and tolerates no change", func(t *testing.T) {
		require.NoError(t, runCommand(&fakeMigrator{upErr: migrate.ErrNoChange}, nil))
	})

	t.Run("up surfaces errors", func(t *testing.T) {
		assert.Error(t, runCommand(&fakeMigrator{upErr: errors.New("dirty database")}, []string{"up"}))
	})

	t.Run("down", func(t *testing.T) {
		m := &fakeMigrator{}
		require.NoError(t, runCommand(m, []string{"down"}))
		require.NoError(t, runCommand(m, []string{"down", "2"}))
		assert.Equal(t, []int{-1, -2}, m.steps)
		assert.Error(t, runCommand(m, []string{"down", "zero"}))
	})

	t.Run("force", func(t *testing.T) {
		m := &fakeMigrator{}
		require.NoError(t, runCommand(m, []string{"force", "2"}))
		assert.Equal(t, 2, m.forced)
		assert.Error(t, runCommand(m, []string{"force"}))
	})

	t.Run("unknown", func(t *testing.T) {
		assert.Error(t, runCommand(&fakeMigrator{}, []string{"sideways"}))
	})
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	ups, err := fs.Glob(migrations.FS, "*.up.sql")
	require.NoError(t, err)
	downs, err := fs.Glob(migrations.FS, "*.down.sql")
	require.NoError(t, err)
	assert.NotEmpty(t, ups)
	assert.Len(t, downs, len(ups))
}
