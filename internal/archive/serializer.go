package archive

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// Serializer turns a model value into bytes and back. The artifact store
// depends only on this interface; the concrete codec is chosen by config.
type Serializer interface {
	Name() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// CBORSerializer encodes with Core Deterministic Encoding, so the same
// model always produces identical bytes (and the same digest).
type CBORSerializer struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

// NewCBORSerializer builds the default serializer.
func NewCBORSerializer() (*CBORSerializer, error) {
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("cbor encoder: %w", err)
	}
	dec, err := cbor.DecOptions{
		// Decoding into any must yield map[string]any, not
		// map[interface{}]interface{}, so models look the same as via JSON.
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		return nil, fmt.Errorf("cbor decoder: %w", err)
	}
	return &CBORSerializer{enc: enc, dec: dec}, nil
}

func (s *CBORSerializer) Name() string { return "cbor" }

func (s *CBORSerializer) Marshal(v any) ([]byte, error) { return s.enc.Marshal(v) }

func (s *CBORSerializer) Unmarshal(data []byte, v any) error { return s.dec.Unmarshal(data, v) }

// JSONSerializer stores models as plain JSON; handy when artifacts are
// inspected by other tools.
type JSONSerializer struct{}

func (JSONSerializer) Name() string { return "json" }

func (JSONSerializer) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (JSONSerializer) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// SerializerByName resolves a configured serializer name. Empty means cbor.
func SerializerByName(name string) (Serializer, error) {
	switch name {
	case "", "cbor":
		return NewCBORSerializer()
	case "json":
		return JSONSerializer{}, nil
	}
	return nil, fmt.Errorf("unknown serializer: %q", name)
}
