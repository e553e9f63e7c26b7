package core

// Frame is a raw wire payload, already marshaled.
type Frame []byte

// SessionID is the opaque connection identifier minted by the transport on
// upgrade. It is unique for the lifetime of one connection and never reused;
// callers must never accept a client-chosen value for it.
type SessionID string

// SignalConnection abstracts the system messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}
