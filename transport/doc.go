// Package transport provides the bidirectional message transport between the scale
// driver and its devices.
//
// Every discrete message carries a kind and a text payload. On the wire a message is a
// frame made of a 4-byte big-endian length prefix followed by the CBOR encoding of the
// Message. The driver side runs a Server accepting device connections, a device runs a
// Client that dials the driver and reconnects with exponential backoff after a loss.
//
// Each accepted or dialed connection is a Conn with a transport-assigned identity (a
// UUID). Connection events are reported to a Handler:
//   - OnConnect is called once, before any message of the connection is delivered.
//   - OnMessage is called for each received message, in arrival order.
//   - OnDisconnect is called exactly once, after the last OnMessage.
//
// OnMessage and OnDisconnect of one connection are called from the same goroutine, so
// they never overlap. Handlers of different connections run concurrently.
package transport
