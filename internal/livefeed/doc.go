// Package livefeed consumes the platform's push-style live-data stream.
//
// The protocol is a plain websocket: the client sends one authentication
// frame {"token": <userToken>, "thingId": <thingId>} right after
// connecting, then the server pushes serialized sample frames until either
// side closes.
//
// The callback-style handlers such a client usually grows are re-expressed
// here as a single goroutine producing a typed event stream (open, message,
// terminal) consumed through the Session handle. Cancellation is explicit
// and observable: Cancel requests a stop, Done closes only once the receive
// loop has actually finished. The orchestrator relies on that ordering to
// avoid tearing down an identity a live connection still references.
package livefeed
