// Package transport carries softioc protocol messages over TCP.
//
// The transport layer handles:
//   - Length-prefixed message framing
//   - Accepting connections, with an optional connection cap and client
//     ignore list
//   - Optional TLS 1.3
//
// # Protocol Stack
//
//	┌────────────────────────────────┐
//	│      CBOR Messages             │
//	├────────────────────────────────┤
//	│   Length-Prefix Framing (4B)   │
//	├────────────────────────────────┤
//	│     TLS 1.3 (optional)         │
//	├────────────────────────────────┤
//	│           TCP                  │
//	└────────────────────────────────┘
//
// # Framing
//
// Each message is preceded by its length as a 4-byte big-endian unsigned
// integer. Zero-length frames and frames above the configured limit are
// rejected. The limit is derived from the largest array payload the server
// accepts (max_array_bytes) plus FrameOverhead.
package transport
