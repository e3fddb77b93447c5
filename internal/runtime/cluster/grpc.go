package cluster

import (
	"context"
	"fmt"
	"net"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

// grpcLink adapts a gRPC stream's SendMsg/RecvMsg to the Link interface.
// send/recv close over either a grpc.ServerStream or a grpc.ClientStream so
// one type serves both sides of the link.
type grpcLink struct {
	send    func(*Message) error
	recv    func(*Message) error
	closeFn func() error

	closeOnce sync.Once
	closed    chan struct{}
}

func (l *grpcLink) Send(m Message) error {
	select {
	case <-l.closed:
		return ErrLinkClosed
	default:
	}
	return l.send(&m)
}

func (l *grpcLink) Recv() (Message, error) {
	var m Message
	if err := l.recv(&m); err != nil {
		return Message{}, err
	}
	return m, nil
}

func (l *grpcLink) Close() error {
	l.closeOnce.Do(func() { close(l.closed) })
	if l.closeFn != nil {
		return l.closeFn()
	}
	return nil
}

// GRPCListener serves the cluster Link RPC on a TCP address and hands
// accepted streams out through the Listener interface. The streaming
// service is hand-written rather than protoc-generated since the link
// exchanges exactly one message shape.
type GRPCListener struct {
	server *grpc.Server
	lis    net.Listener
	accept chan *grpcLink

	closeOnce sync.Once
	closed    chan struct{}
}

// NewGRPCListener binds addr and starts serving. When authSecret is
// non-empty, incoming streams must present a bearer token signed with it
// (see MintToken).
func NewGRPCListener(addr string, authSecret string) (*GRPCListener, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("cluster: listen %s: %w", addr, err)
	}

	l := &GRPCListener{
		lis:    lis,
		accept: make(chan *grpcLink),
		closed: make(chan struct{}),
	}

	var opts []grpc.ServerOption
	if authSecret != "" {
		opts = append(opts, grpc.StreamInterceptor(jwtStreamAuth(authSecret)))
	}
	l.server = grpc.NewServer(opts...)
	l.server.RegisterService(&serviceDesc, (*grpcLinkServer)(l))

	go func() { _ = l.server.Serve(lis) }()
	return l, nil
}

type grpcLinkServer GRPCListener

// handleLink runs for the lifetime of one client's stream: it hands a Link
// wrapper to the Listener's Accept queue and blocks until the caller closes
// it, since returning from a streaming handler ends the RPC.
func (s *grpcLinkServer) handleLink(stream grpc.ServerStream) error {
	link := &grpcLink{
		send:   func(m *Message) error { return stream.SendMsg(m) },
		recv:   func(m *Message) error { return stream.RecvMsg(m) },
		closed: make(chan struct{}),
	}
	select {
	case s.accept <- link:
	case <-s.closed:
		return ErrLinkClosed
	case <-stream.Context().Done():
		return stream.Context().Err()
	}
	select {
	case <-link.closed:
	case <-stream.Context().Done():
	}
	return nil
}

func (l *GRPCListener) Accept(ctx context.Context) (Link, error) {
	select {
	case link := <-l.accept:
		return link, nil
	case <-l.closed:
		return nil, ErrLinkClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *GRPCListener) Close() error {
	l.closeOnce.Do(func() {
		close(l.closed)
		l.server.GracefulStop()
		_ = l.lis.Close()
	})
	return nil
}

// GRPCDialer opens a Link to a Host's GRPCListener.
type GRPCDialer struct {
	target    string
	authToken string
}

// NewGRPCDialer targets a GRPCListener's address. authToken, when non-empty,
// is sent as a bearer token on the stream's outgoing metadata; pair it with
// a token from MintToken using the same secret the Host was given.
func NewGRPCDialer(target, authToken string) *GRPCDialer {
	return &GRPCDialer{target: target, authToken: authToken}
}

func (d *GRPCDialer) Dial(ctx context.Context) (Link, error) {
	conn, err := grpc.NewClient(d.target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("cluster: dial %s: %w", d.target, err)
	}

	streamCtx := ctx
	if d.authToken != "" {
		md := metadata.MD{}
		md.Set("authorization", "Bearer "+d.authToken)
		streamCtx = metadata.NewOutgoingContext(ctx, md)
	}

	cs, err := conn.NewStream(streamCtx, &grpc.StreamDesc{
		StreamName:    "Link",
		ServerStreams: true,
		ClientStreams: true,
	}, linkMethod, grpc.CallContentSubtype(codecName))
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("cluster: open link stream: %w", err)
	}

	return &grpcLink{
		send: func(m *Message) error { return cs.SendMsg(m) },
		recv: func(m *Message) error { return cs.RecvMsg(m) },
		closeFn: func() error {
			_ = cs.CloseSend()
			return conn.Close()
		},
		closed: make(chan struct{}),
	}, nil
}
