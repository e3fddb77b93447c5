package cluster

import (
	"context"
	"errors"
	"sync"
)

// ErrLinkClosed is returned by Send/Recv once a Link's Close has run.
var ErrLinkClosed = errors.New("cluster: link closed")

// pipeLink is an in-process Link backed by a pair of buffered channels, one
// per direction. It exists so Host and Client can be exercised in a single
// process (tests, or a cluster-of-one embedding) without a network hop,
// while still going through the same Link interface a gRPC deployment uses.
type pipeLink struct {
	send      chan<- Message
	recv      <-chan Message
	closeOnce sync.Once
	closed    chan struct{}
}

const pipeBufferSize = 64

func newPipePair() (*pipeLink, *pipeLink) {
	aToB := make(chan Message, pipeBufferSize)
	bToA := make(chan Message, pipeBufferSize)
	a := &pipeLink{send: aToB, recv: bToA, closed: make(chan struct{})}
	b := &pipeLink{send: bToA, recv: aToB, closed: make(chan struct{})}
	return a, b
}

func (p *pipeLink) Send(m Message) error {
	select {
	case <-p.closed:
		return ErrLinkClosed
	default:
	}
	select {
	case p.send <- m:
		return nil
	case <-p.closed:
		return ErrLinkClosed
	}
}

func (p *pipeLink) Recv() (Message, error) {
	select {
	case m, ok := <-p.recv:
		if !ok {
			return Message{}, ErrLinkClosed
		}
		return m, nil
	case <-p.closed:
		return Message{}, ErrLinkClosed
	}
}

func (p *pipeLink) Close() error {
	p.closeOnce.Do(func() { close(p.closed) })
	return nil
}

// PipeTransport is a Listener+Dialer pair usable to connect a Host and
// Client within one process, primarily for tests and single-binary
// deployments that still want the Host/Client split without a real network
// link.
type PipeTransport struct {
	mu        sync.Mutex
	pending   chan *pipeLink
	closed    chan struct{}
	closeOnce sync.Once
}

// NewPipeTransport returns a Listener; call Dialer to obtain the matching
// Dialer for the other side.
func NewPipeTransport() *PipeTransport {
	return &PipeTransport{
		pending: make(chan *pipeLink, 16),
		closed:  make(chan struct{}),
	}
}

// Dialer returns a Dialer that connects to this PipeTransport's Listener.
func (t *PipeTransport) Dialer() Dialer {
	return (*pipeDialer)(t)
}

func (t *PipeTransport) Accept(ctx context.Context) (Link, error) {
	select {
	case l := <-t.pending:
		return l, nil
	case <-t.closed:
		return nil, ErrLinkClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (t *PipeTransport) Close() error {
	t.closeOnce.Do(func() { close(t.closed) })
	return nil
}

type pipeDialer PipeTransport

func (d *pipeDialer) Dial(ctx context.Context) (Link, error) {
	t := (*PipeTransport)(d)
	clientSide, hostSide := newPipePair()
	select {
	case t.pending <- hostSide:
		return clientSide, nil
	case <-t.closed:
		return nil, ErrLinkClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
