package wire

import (
	"errors"
	"fmt"

	"github.com/softioc/softioc-go/pkg/pv"
	"github.com/softioc/softioc-go/pkg/timestamp"
)

// CBOR map keys. Request-only and response-only keys never overlap so the
// message kind can be inferred from which keys are present.
const (
	KeyMessageID      = 1
	KeyOperation      = 2 // request only
	KeyName           = 3
	KeySubscriptionID = 4
	KeyMask           = 5
	KeyPayload        = 6 // request only
	KeyStatus         = 7 // response only
	KeyReading        = 8
	KeyInfo           = 9  // response only
	KeyError          = 10 // response only
)

// EventMessageID is the message ID reserved for monitor events.
const EventMessageID uint32 = 0

// ProtocolVersion is carried in beacons.
const ProtocolVersion uint8 = 1

// Request validation errors.
var (
	ErrReservedMessageID = errors.New("message ID 0 is reserved for events")
	ErrInvalidOperation  = errors.New("invalid operation")
	ErrMissingName       = errors.New("missing process variable name")
	ErrMissingSubID      = errors.New("missing subscription ID")
)

// Request is a client request.
//
// CBOR encoding:
//
//	{
//	  1: messageId,       // uint32, non-zero
//	  2: operation,       // uint8: 1=Search 2=Read 3=Write 4=Subscribe 5=Unsubscribe
//	  3: name,            // string
//	  4: subscriptionId,  // uint32, Unsubscribe only
//	  5: mask,            // uint8, Subscribe only
//	  6: payload          // Write only: the new value
//	}
type Request struct {
	MessageID      uint32       `cbor:"1,keyasint"`
	Operation      Operation    `cbor:"2,keyasint"`
	Name           string       `cbor:"3,keyasint,omitempty"`
	SubscriptionID uint32       `cbor:"4,keyasint,omitempty"`
	Mask           pv.EventMask `cbor:"5,keyasint,omitempty"`
	Payload        any          `cbor:"6,keyasint,omitempty"`
}

// Validate checks if the request is well formed.
func (r *Request) Validate() error {
	if r.MessageID == EventMessageID {
		return ErrReservedMessageID
	}
	if !r.Operation.IsValid() {
		return fmt.Errorf("%w: %d", ErrInvalidOperation, r.Operation)
	}
	if r.Operation.NeedsName() && r.Name == "" {
		return ErrMissingName
	}
	if r.Operation == OpUnsubscribe && r.SubscriptionID == 0 {
		return ErrMissingSubID
	}
	return nil
}

// Info describes a process variable in a Search response.
type Info struct {
	Type        pv.Type `cbor:"1,keyasint"`
	Count       int     `cbor:"2,keyasint"`
	Description string  `cbor:"3,keyasint,omitempty"`
}

// Response answers a request with the same message ID.
//
// CBOR encoding:
//
//	{
//	  1: messageId,       // uint32: matches request
//	  4: subscriptionId,  // Subscribe only
//	  7: status,          // uint8
//	  8: reading,         // Read only
//	  9: info,            // Search only
//	  10: error           // human readable detail on failure
//	}
type Response struct {
	MessageID      uint32      `cbor:"1,keyasint"`
	SubscriptionID uint32      `cbor:"4,keyasint,omitempty"`
	Status         Status      `cbor:"7,keyasint"`
	Reading        *pv.Reading `cbor:"8,keyasint,omitempty"`
	Info           *Info       `cbor:"9,keyasint,omitempty"`
	Error          string      `cbor:"10,keyasint,omitempty"`
}

// IsSuccess returns true if the response indicates success.
func (r *Response) IsSuccess() bool {
	return r.Status.IsSuccess()
}

// Err converts a failed response to an error. It returns nil on success.
func (r *Response) Err() error {
	if r.IsSuccess() {
		return nil
	}
	if r.Error != "" {
		return &StatusError{Status: r.Status, Message: r.Error}
	}
	return &StatusError{Status: r.Status}
}

// StatusError is a non-success response status seen by a client.
type StatusError struct {
	Status  Status
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return e.Status.String()
	}
	return e.Status.String() + ": " + e.Message
}

// Event is a monitor update for one subscription.
//
// CBOR encoding:
//
//	{
//	  1: 0,               // messageId 0 = event
//	  3: name,
//	  4: subscriptionId,
//	  5: mask,            // which kinds of change triggered the event
//	  8: reading
//	}
type Event struct {
	SubscriptionID uint32
	Name           string
	Mask           pv.EventMask
	Reading        pv.Reading
}

type eventWire struct {
	MessageID      uint32       `cbor:"1,keyasint"`
	Name           string       `cbor:"3,keyasint"`
	SubscriptionID uint32       `cbor:"4,keyasint"`
	Mask           pv.EventMask `cbor:"5,keyasint"`
	Reading        pv.Reading   `cbor:"8,keyasint"`
}

// Beacon announces a running server over UDP.
//
// CBOR encoding:
//
//	{
//	  1: version,     // uint8
//	  2: sequence,    // uint32, increments per beacon
//	  3: serverPort,  // uint16, TCP port of the server
//	  4: stamp,       // {1: sec, 2: nsec} past 1990-01-01
//	  5: pvCount      // number of served variables
//	}
type Beacon struct {
	Version    uint8               `cbor:"1,keyasint"`
	Sequence   uint32              `cbor:"2,keyasint"`
	ServerPort uint16              `cbor:"3,keyasint"`
	Stamp      timestamp.Timestamp `cbor:"4,keyasint"`
	PVCount    int                 `cbor:"5,keyasint,omitempty"`
}
