package cluster

import "context"

// Link is one end of a Host<->Client duplex message stream. Both ends see
// the same Message vocabulary (wire.go); a Link implementation may carry it
// as JSON over any byte stream or, as grpc.go does, as a gRPC bidirectional
// stream. Host and Client depend only on this interface, never on a
// concrete transport.
type Link interface {
	Send(Message) error
	Recv() (Message, error)
	Close() error
}

// Listener accepts incoming Links on the Host side.
type Listener interface {
	Accept(ctx context.Context) (Link, error)
	Close() error
}

// Dialer establishes a single Link to a Host on the Client side.
type Dialer interface {
	Dial(ctx context.Context) (Link, error)
}
