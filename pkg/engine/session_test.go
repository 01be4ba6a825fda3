package engine

import (
	"testing"

	"github.com/softioc/softioc-go/pkg/wire"
)

func TestSessionQueueOrderAndLimit(t *testing.T) {
	c := newContext(New(WithMaxQueuedEvents(2)), DefaultConfig(), nil)
	s := newSession(c, nil)

	s.enqueueResponse([]byte("r1"))
	if !s.enqueueEvent(&wire.Event{SubscriptionID: 1}) {
		t.Fatal("first event rejected")
	}
	if !s.enqueueEvent(&wire.Event{SubscriptionID: 2}) {
		t.Fatal("second event rejected")
	}
	if s.enqueueEvent(&wire.Event{SubscriptionID: 3}) {
		t.Error("event beyond the limit accepted")
	}
	// Responses are never dropped.
	s.enqueueResponse([]byte("r2"))

	var got []string
	for {
		o, ok := s.next()
		if !ok {
			break
		}
		if o.event != nil {
			got = append(got, string(rune('0'+o.event.SubscriptionID)))
		} else {
			got = append(got, string(o.data))
		}
	}
	want := []string{"r1", "1", "2", "r2"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("item %d = %q, want %q", i, got[i], want[i])
		}
	}

	if !s.enqueueEvent(&wire.Event{SubscriptionID: 4}) {
		t.Error("event rejected after queue drained")
	}
}

func TestSessionClosedRejects(t *testing.T) {
	c := newContext(New(), DefaultConfig(), nil)
	s := newSession(c, nil)
	s.subs[7] = &subscription{id: 7}

	subs := s.close()
	if len(subs) != 1 || subs[0].id != 7 {
		t.Errorf("close returned %v", subs)
	}
	if s.enqueueEvent(&wire.Event{}) {
		t.Error("closed session accepted an event")
	}
	s.enqueueResponse([]byte("x"))
	if _, ok := s.next(); ok {
		t.Error("closed session queued a response")
	}
}
