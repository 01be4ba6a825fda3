package main

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/softioc/softioc-go/pkg/pv"
)

const simPeriod = time.Second

// simulation drives synthetic PVs from the owner side with SetValue.
type simulation struct {
	heartbeat *pv.Variable[int32]
	sine      *pv.Variable[float64]
	uptime    *pv.Variable[string]
	started   time.Time
}

func newSimulation(prefix string) *simulation {
	return &simulation{
		heartbeat: pv.NewLong(prefix+"HEARTBEAT", 0, pv.WithDescription("Counter incremented every second")),
		sine:      pv.NewDouble(prefix+"SINE", 0, pv.WithDescription("Sine wave, 60 s period")),
		uptime:    pv.NewString(prefix+"UPTIME", "0s", pv.WithDescription("Time since start")),
		started:   time.Now(),
	}
}

func (s *simulation) variables() []pv.ProcessVariable {
	return []pv.ProcessVariable{s.heartbeat, s.sine, s.uptime}
}

func (s *simulation) run(ctx context.Context, logger *slog.Logger) {
	logger.Info("simulation started", "heartbeat", s.heartbeat.Name())
	ticker := time.NewTicker(simPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.step(now)
		}
	}
}

func (s *simulation) step(now time.Time) {
	elapsed := now.Sub(s.started)
	s.heartbeat.SetValue(s.heartbeat.Value() + 1)
	s.sine.SetValue(math.Sin(2 * math.Pi * elapsed.Seconds() / 60))
	s.uptime.SetValue(elapsed.Truncate(time.Second).String())
}
