package beacon

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/softioc/softioc-go/pkg/timestamp"
	"github.com/softioc/softioc-go/pkg/wire"
)

func TestUDPAnnouncerSendsBeacons(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	beacons, addr, err := Listen(ctx, "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	clock := timestamp.NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	a := NewUDPAnnouncer(UDPConfig{
		Addrs:      []string{addr.String()},
		Period:     20 * time.Millisecond,
		ServerPort: 5064,
		PVCount:    3,
		Clock:      clock,
	})
	if err := a.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer a.Stop()

	for want := uint32(0); want < 3; want++ {
		select {
		case r := <-beacons:
			b := r.Beacon
			if b.Sequence != want {
				t.Errorf("sequence = %d, want %d", b.Sequence, want)
			}
			if b.ServerPort != 5064 || b.PVCount != 3 || b.Version != wire.ProtocolVersion {
				t.Errorf("beacon = %+v", b)
			}
			if b.Stamp != timestamp.FromTime(clock.Now()) {
				t.Errorf("stamp = %v", b.Stamp)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("beacon %d not received", want)
		}
	}
}

func TestUDPAnnouncerErrors(t *testing.T) {
	if err := NewUDPAnnouncer(UDPConfig{}).Start(context.Background()); !errors.Is(err, ErrNoAddresses) {
		t.Errorf("no addresses: got %v", err)
	}

	a := NewUDPAnnouncer(UDPConfig{Addrs: []string{"127.0.0.1:9"}, Period: time.Hour})
	if err := a.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer a.Stop()
	if err := a.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start: got %v", err)
	}
	if a.Sequence() != 1 {
		t.Errorf("first beacon should be sent on Start, sequence = %d", a.Sequence())
	}
}

func TestUDPAnnouncerStopIdempotent(t *testing.T) {
	a := NewUDPAnnouncer(UDPConfig{Addrs: []string{"127.0.0.1:9"}})
	a.Stop()
	if err := a.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	a.Stop()
	a.Stop()
}
