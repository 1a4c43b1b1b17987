// Package connection implements the Connection Manager component.
//
// The Connection Manager:
//   - Owns one physical WebSocket connection to the push server
//   - Exposes its lifecycle as a disconnected/connecting/connected state machine
//   - Reconnects with exponential backoff, optionally bounded by an attempt ceiling
//   - Forwards raw frames received while connected to the Subscription Registry
//
// It has no knowledge of message semantics; frames are passed on as bytes.
package connection
