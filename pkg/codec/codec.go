// Package codec provides the byte-level encodings documents are stored in.
//
// A Codec maps values to bytes; a Serializer wraps a codec with optional
// zstd compression for the compact binary form.
package codec

import (
	"encoding/json"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

// Codec encodes and decodes a single value.
type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error
	Name() string
}

// JSON is the human-readable interchange encoding.
type JSON struct {
	// Indent pretty-prints output when set.
	Indent string
}

func (c JSON) Encode(v any) ([]byte, error) {
	if c.Indent != "" {
		return json.MarshalIndent(v, "", c.Indent)
	}
	return json.Marshal(v)
}

func (c JSON) Decode(data []byte, v any) error { return json.Unmarshal(data, v) }
func (c JSON) Name() string                    { return "json" }

// YAML is the human-editable encoding.
type YAML struct{}

func (YAML) Encode(v any) ([]byte, error)    { return yaml.Marshal(v) }
func (YAML) Decode(data []byte, v any) error { return yaml.Unmarshal(data, v) }
func (YAML) Name() string                    { return "yaml" }

// MsgPack is the compact binary encoding.
type MsgPack struct{}

func (MsgPack) Encode(v any) ([]byte, error)    { return msgpack.Marshal(v) }
func (MsgPack) Decode(data []byte, v any) error { return msgpack.Unmarshal(data, v) }
func (MsgPack) Name() string                    { return "msgpack" }

// Serializer runs a codec with optional zstd compression. The zero value is
// not usable; construct with [NewSerializer] or [Binary].
type Serializer struct {
	codec    Codec
	compress bool
}

// NewSerializer wraps a codec. With compress set, Marshal output is
// zstd-compressed and Unmarshal expects a zstd frame.
func NewSerializer(c Codec, compress bool) *Serializer {
	return &Serializer{codec: c, compress: compress}
}

// Binary returns the serializer for the compact on-disk form:
// msgpack inside a zstd frame.
func Binary() *Serializer { return NewSerializer(MsgPack{}, true) }

func (s *Serializer) Marshal(v any) ([]byte, error) {
	data, err := s.codec.Encode(v)
	if err != nil {
		return nil, fmt.Errorf("%s encode: %w", s.codec.Name(), err)
	}
	if !s.compress {
		return data, nil
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("zstd writer: %w", err)
	}
	defer enc.Close()
	return enc.EncodeAll(data, nil), nil
}

func (s *Serializer) Unmarshal(data []byte, v any) error {
	if s.compress {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return fmt.Errorf("zstd reader: %w", err)
		}
		defer dec.Close()
		data, err = dec.DecodeAll(data, nil)
		if err != nil {
			return fmt.Errorf("zstd decompress: %w", err)
		}
	}
	if err := s.codec.Decode(data, v); err != nil {
		return fmt.Errorf("%s decode: %w", s.codec.Name(), err)
	}
	return nil
}
