package docio

import (
	"path/filepath"
	"strings"

	"github.com/loomgraph/loom/pkg/codec"
	apperrors "github.com/loomgraph/loom/pkg/errors"
)

// Format identifies an on-disk document encoding.
type Format string

const (
	// FormatJSON is pretty-printed JSON, the interchange default.
	FormatJSON Format = "json"

	// FormatYAML is YAML for hand-edited documents.
	FormatYAML Format = "yaml"

	// FormatBinary is msgpack in a zstd frame, the compact archive form.
	FormatBinary Format = "binary"
)

// FormatForPath derives the format from a file extension: .json, .yaml or
// .yml, and .loom for the binary form.
func FormatForPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".loom":
		return FormatBinary, nil
	default:
		return "", apperrors.New(apperrors.ErrCodeUnsupportedFormat,
			"no document format for %q", filepath.Ext(path))
	}
}

// serializer returns the codec pipeline for a format.
func serializer(f Format) (*codec.Serializer, error) {
	switch f {
	case FormatJSON:
		return codec.NewSerializer(codec.JSON{Indent: "  "}, false), nil
	case FormatYAML:
		return codec.NewSerializer(codec.YAML{}, false), nil
	case FormatBinary:
		return codec.Binary(), nil
	default:
		return nil, apperrors.New(apperrors.ErrCodeUnsupportedFormat, "unknown format %q", f)
	}
}
