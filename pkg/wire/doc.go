// Package wire defines the CBOR wire format of the softioc protocol.
//
// Messages are CBOR (RFC 8949) maps with integer keys, one message per
// length-prefixed frame (see package transport).
//
// # Message Types
//
//   - Request: client to server (Search, Read, Write, Subscribe, Unsubscribe)
//   - Response: server to client, correlated by message ID
//   - Event: server to client monitor update, message ID 0
//   - Beacon: UDP datagram announcing a running server
//
// Requests and responses use disjoint key sets so PeekMessageType can tell
// them apart without a full decode.
//
// # Values
//
// Process variable values travel inside pv.Reading. After decoding, CBOR
// integers, floats and arrays come back as generic Go types;
// NormalizeReading maps them onto the shape of the declared pv.Type.
package wire
