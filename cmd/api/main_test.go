package main

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/wolfman30/clinic-booking-assistant/internal/config"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

func TestNewHTTPServer(t *testing.T) {
	srv := newHTTPServer("9090", http.NotFoundHandler())
	assert.Equal(t, ":9090", srv.Addr)
	assert.Equal(t, 30*time.Second, srv.WriteTimeout)
	assert.NotZero(t, srv.ReadHeaderTimeout)
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := &appconfig.Config{
		Port:            "0",
		ClinicTimezone:  "Europe/Paris",
		CalendarBackend: "memory",
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, cfg, logging.New("error")) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}

func TestRunFailsOnUnknownBackend(t *testing.T) {
	cfg := &appconfig.Config{Port: "0", ClinicTimezone: "Europe/Paris", CalendarBackend: "exchange"}
	err := run(context.Background(), cfg, logging.New("error"))
	assert.ErrorContains(t, err, "exchange")
}
