package v1

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// Codec is a google.golang.org/grpc/encoding.Codec that marshals the
// plain Go structs in this package as JSON on the wire, standing in for
// the protobuf wire codec a generated client/server pair would otherwise
// use. The message types here are plain structs, not proto.Message, so
// grpc's built-in "proto" codec cannot (un)marshal them; callers must
// build servers with grpc.ForceServerCodec(Codec{}) and dial clients with
// grpc.CallContentSubtype(Codec{}.Name()) (or ForceCodec), rather than
// relying on content-type negotiation alone.
type Codec struct{}

func (Codec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (Codec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (Codec) Name() string {
	return "otaclientiotlogging-json"
}

func init() {
	// Registering the codec lets any grpc client in this module dial with
	// grpc.CallContentSubtype(Codec{}.Name()) and get matching (un)marshal
	// behavior, without every caller needing to import and pass Codec{}
	// by hand.
	encoding.RegisterCodec(Codec{})
}
