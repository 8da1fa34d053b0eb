package authv1

import (
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
)

// CodecName matches the stock protobuf codec, so the content type on the wire
// stays application/grpc+proto.
const CodecName = "proto"

// Message is implemented by every request and response of the service.
type Message interface {
	MarshalWire() ([]byte, error)
	UnmarshalWire(b []byte) error
}

// Codec encodes the messages of this package and falls back to the protobuf
// runtime for generated types such as the health service.
type Codec struct{}

func (Codec) Marshal(v any) ([]byte, error) {
	switch m := v.(type) {
	case Message:
		return m.MarshalWire()
	case proto.Message:
		return proto.Marshal(m)
	}
	return nil, fmt.Errorf("authv1: cannot marshal %T", v)
}

func (Codec) Unmarshal(data []byte, v any) error {
	switch m := v.(type) {
	case Message:
		return m.UnmarshalWire(data)
	case proto.Message:
		return proto.Unmarshal(data, m)
	}
	return fmt.Errorf("authv1: cannot unmarshal into %T", v)
}

func (Codec) Name() string {
	return CodecName
}

// ServerCodec installs Codec on a grpc.Server in place of the stock one.
func ServerCodec() grpc.ServerOption {
	return grpc.ForceServerCodec(Codec{})
}
