package wire

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"

	"github.com/softioc/softioc-go/pkg/pv"
)

// encMode is the CBOR encoder mode for protocol messages.
// Configured for deterministic encoding with integer keys.
var encMode cbor.EncMode

// decMode is the CBOR decoder mode for protocol messages.
var decMode cbor.DecMode

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeUnix,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR encoder mode: %v", err))
	}

	// Lenient decoding for forward compatibility
	decOpts := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR decoder mode: %v", err))
	}
}

// Marshal encodes a value to CBOR bytes.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR bytes into a value.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// NewEncoder creates a new CBOR encoder that writes to w.
func NewEncoder(w io.Writer) *cbor.Encoder {
	return encMode.NewEncoder(w)
}

// NewDecoder creates a new CBOR decoder that reads from r.
func NewDecoder(r io.Reader) *cbor.Decoder {
	return decMode.NewDecoder(r)
}

// EncodeRequest encodes a request message to CBOR bytes.
func EncodeRequest(req *Request) ([]byte, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	return Marshal(req)
}

// DecodeRequest decodes CBOR bytes into a request message.
// A request that decodes but fails validation is returned together with
// the validation error so the caller can still answer its message ID.
func DecodeRequest(data []byte) (*Request, error) {
	var req Request
	if err := Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to decode request: %w", err)
	}
	if err := req.Validate(); err != nil {
		return &req, fmt.Errorf("invalid request: %w", err)
	}
	return &req, nil
}

// EncodeResponse encodes a response message to CBOR bytes.
func EncodeResponse(resp *Response) ([]byte, error) {
	return Marshal(resp)
}

// DecodeResponse decodes CBOR bytes into a response message.
func DecodeResponse(data []byte) (*Response, error) {
	var resp Response
	if err := Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if resp.Reading != nil {
		if err := NormalizeReading(resp.Reading); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return &resp, nil
}

// EncodeEvent encodes a monitor event to CBOR bytes.
// Events have messageId=0 which is handled automatically.
func EncodeEvent(ev *Event) ([]byte, error) {
	return Marshal(eventWire{
		MessageID:      EventMessageID,
		Name:           ev.Name,
		SubscriptionID: ev.SubscriptionID,
		Mask:           ev.Mask,
		Reading:        ev.Reading,
	})
}

// DecodeEvent decodes CBOR bytes into a monitor event.
func DecodeEvent(data []byte) (*Event, error) {
	var w eventWire
	if err := Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("failed to decode event: %w", err)
	}
	if w.MessageID != EventMessageID {
		return nil, fmt.Errorf("not an event message: messageId=%d", w.MessageID)
	}
	if err := NormalizeReading(&w.Reading); err != nil {
		return nil, fmt.Errorf("failed to decode event: %w", err)
	}
	return &Event{
		SubscriptionID: w.SubscriptionID,
		Name:           w.Name,
		Mask:           w.Mask,
		Reading:        w.Reading,
	}, nil
}

// EncodeBeacon encodes a beacon datagram.
func EncodeBeacon(b *Beacon) ([]byte, error) {
	return Marshal(b)
}

// DecodeBeacon decodes a beacon datagram.
func DecodeBeacon(data []byte) (*Beacon, error) {
	var b Beacon
	if err := Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to decode beacon: %w", err)
	}
	return &b, nil
}

// MessageType represents the type of a decoded message.
type MessageType int

const (
	MessageTypeUnknown MessageType = iota
	MessageTypeRequest
	MessageTypeResponse
	MessageTypeEvent
)

// String returns the message type name.
func (m MessageType) String() string {
	switch m {
	case MessageTypeRequest:
		return "Request"
	case MessageTypeResponse:
		return "Response"
	case MessageTypeEvent:
		return "Event"
	default:
		return "Unknown"
	}
}

// PeekMessageType examines CBOR data to determine the message type
// without fully decoding it.
//
//   - Event: messageId (key 1) = 0
//   - Request: operation (key 2) present
//   - Response: otherwise
func PeekMessageType(data []byte) (MessageType, error) {
	var peek struct {
		MessageID uint32 `cbor:"1,keyasint"`
		Operation uint8  `cbor:"2,keyasint,omitempty"`
	}
	if err := Unmarshal(data, &peek); err != nil {
		return MessageTypeUnknown, fmt.Errorf("failed to peek message: %w", err)
	}
	if peek.MessageID == EventMessageID {
		return MessageTypeEvent, nil
	}
	if peek.Operation != 0 {
		return MessageTypeRequest, nil
	}
	return MessageTypeResponse, nil
}

// NormalizeReading converts the generic value produced by CBOR decoding
// into the Go shape of r.Type: string, float64, int64 or []float64.
func NormalizeReading(r *pv.Reading) error {
	switch r.Type {
	case pv.TypeString:
		s, err := pv.StringCodec{}.Decode(r.Value)
		if err != nil {
			return err
		}
		r.Value = s
	case pv.TypeDouble:
		f, err := pv.DoubleCodec{}.Decode(r.Value)
		if err != nil {
			return err
		}
		r.Value = f
	case pv.TypeLong:
		n, err := pv.LongCodec{}.Decode(r.Value)
		if err != nil {
			return err
		}
		r.Value = int64(n)
	case pv.TypeDoubleArray:
		if r.Value == nil {
			r.Value = []float64{}
			return nil
		}
		a, err := pv.DoubleArrayCodec{}.Decode(r.Value)
		if err != nil {
			return err
		}
		r.Value = a
	}
	return nil
}
