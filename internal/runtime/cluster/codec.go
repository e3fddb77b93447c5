package cluster

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// codecName is the gRPC content-subtype the Link service is negotiated
// under. The service has exactly one message shape (Message, in wire.go),
// so there is no .proto to generate a codec from; jsonCodec marshals it
// with encoding/json instead of the default protobuf wire format.
const codecName = "cluster-json"

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string { return codecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
