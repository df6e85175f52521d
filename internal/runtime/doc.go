// Package runtime hosts the trait dispatcher: a watermill router over a
// configurable transport that carries trait commands, their completions, and
// trait events between fabric peers. Schemas loaded by the schema package
// drive encoding, decoding, and validation of every payload; the tlv package
// provides the wire format.
//
// A Service is created once, traits and handlers are registered on it, and
// Start runs the router until the context is cancelled. Dispatch pairs each
// command with its completion through a ULID correlation id and settles as
// COMPLETED, FAILED, or TIMED_OUT; caller cancellation settles the local
// side without waiting for the remote.
package runtime
