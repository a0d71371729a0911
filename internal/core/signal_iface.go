package core

// Frame is a raw data packet relayed between peers.
type Frame []byte

// SignalConnection abstracts the data channel of one connection.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}
