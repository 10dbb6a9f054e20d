package nbi

import (
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

// CodecName is the gRPC content subtype of TopologyService messages.
const CodecName = "json"

// jsonCodec marshals plain Go structs. TopologyService has no generated
// protobuf messages, so calls select this codec by content subtype while
// the health service keeps the default proto codec.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

func (jsonCodec) Name() string { return CodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// CallOption selects the JSON codec on a client call or connection.
func CallOption() grpc.CallOption {
	return grpc.CallContentSubtype(CodecName)
}
