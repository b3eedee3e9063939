/*
scheduler.go - Background alert sweep

PURPOSE:
  Periodically re-evaluates batch expiries so alerts fire even when no
  mutation touches a key (expiry is purely time-driven: a batch crosses its
  warning window without any transaction happening).

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Mutations already trigger their own evaluation synchronously; the
    sweep only catches the time-driven cases

CONFIGURATION:
  - CheckInterval: How often to sweep (default: 1 hour)
  - Enabled: Whether the sweep is active (default: true)

USAGE:
  sweep := NewAlertSweep(svc, log)
  sweep.Start()
  // ... later
  sweep.Stop()

SEE ALSO:
  - inventory/service.go: EvaluateExpiry
  - alerts/engine.go: Evaluation rules
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/warp/inventory-engine/inventory"
)

// AlertSweep periodically refreshes time-driven alerts.
type AlertSweep struct {
	Service       *inventory.Service
	CheckInterval time.Duration
	Enabled       bool

	log    zerolog.Logger
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewAlertSweep creates a sweep with the default hourly interval.
func NewAlertSweep(svc *inventory.Service, log zerolog.Logger) *AlertSweep {
	return &AlertSweep{
		Service:       svc,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		log:           log,
		stop:          make(chan struct{}),
	}
}

// Start begins the background sweep.
func (s *AlertSweep) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled {
		s.log.Info().Msg("alert sweep disabled, not starting")
		return
	}

	s.ticker = time.NewTicker(s.CheckInterval)
	s.wg.Add(1)
	go s.run()

	s.log.Info().Dur("interval", s.CheckInterval).Msg("alert sweep started")
}

// Stop halts the sweep and waits for an in-flight run to finish.
func (s *AlertSweep) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		s.ticker.Stop()
		close(s.stop)
		s.wg.Wait()
		s.log.Info().Msg("alert sweep stopped")
	}
}

func (s *AlertSweep) run() {
	defer s.wg.Done()

	// Run immediately on start
	s.sweep()

	for {
		select {
		case <-s.ticker.C:
			s.sweep()
		case <-s.stop:
			return
		}
	}
}

func (s *AlertSweep) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	raised, err := s.Service.EvaluateExpiry(ctx, time.Now())
	if err != nil {
		s.log.Warn().Err(err).Msg("expiry sweep failed")
		return
	}
	if len(raised) > 0 {
		s.log.Info().Int("alerts", len(raised)).Msg("expiry sweep raised alerts")
	}
}

// RunNow triggers an immediate sweep (for testing/admin).
func (s *AlertSweep) RunNow() {
	s.sweep()
}
