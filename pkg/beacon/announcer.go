package beacon

import (
	"context"
	"errors"
	"time"
)

// Defaults.
const (
	DefaultPort   = 5065
	DefaultPeriod = 15 * time.Second
)

// Errors.
var (
	ErrAlreadyStarted = errors.New("announcer already started")
	ErrNoAddresses    = errors.New("no beacon addresses")
)

// Announcer advertises a server until stopped.
type Announcer interface {
	// Start begins announcing. It returns once the first announcement has
	// been attempted; later announcements run in the background until ctx
	// is cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop ends announcing and waits for background work to finish.
	Stop()
}

var (
	_ Announcer = (*UDPAnnouncer)(nil)
	_ Announcer = (*MDNSAnnouncer)(nil)
)
