package cluster

import "google.golang.org/grpc"

// serviceName and linkMethod describe the single bidirectional-streaming
// RPC the cluster transport exposes. There is no .proto file behind these:
// the ServiceDesc below is hand-written the way protoc-gen-go-grpc would
// generate one, registered directly against grpc.Server/ClientConn.
const (
	serviceName = "agentcore.cluster.Link"
	linkMethod  = "/" + serviceName + "/Link"
)

// linkServer is the interface a gRPC-registered handler must satisfy to
// serve the Link stream.
type linkServer interface {
	handleLink(stream grpc.ServerStream) error
}

func linkStreamHandler(srv any, stream grpc.ServerStream) error {
	return srv.(linkServer).handleLink(stream)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*linkServer)(nil),
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Link",
			Handler:       linkStreamHandler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "agentcore/cluster",
}
