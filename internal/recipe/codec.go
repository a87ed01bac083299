package recipe

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format names a document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCUE  Format = "cue"
)

// ParseFormat validates a format name. "yml" is accepted for YAML.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "cue":
		return FormatCUE, nil
	default:
		return "", fmt.Errorf("unknown document format %q (want json, yaml or cue)", name)
	}
}

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", fmt.Errorf("%s: no file extension to infer the document format from", path)
	}
	return ParseFormat(ext)
}

// Decode parses a document. Unknown fields are rejected in every format.
// Absent recipes decode as one empty recipe.
func Decode(data []byte, format Format) (*Document, error) {
	var (
		doc *Document
		err error
	)
	switch format {
	case FormatJSON:
		doc, err = decodeJSON(data)
	case FormatYAML:
		doc, err = decodeYAML(data)
	case FormatCUE:
		doc, err = decodeCUE(data, "input.cue")
	default:
		return nil, fmt.Errorf("decode: unsupported format %q", format)
	}
	if err != nil {
		return nil, err
	}
	if err := doc.normalize(); err != nil {
		return nil, err
	}
	return doc, nil
}

// Load reads a document from path, inferring the format from its extension.
// A directory is loaded as one CUE instance made of all its .cue files.
func Load(path string) (*Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	if info.IsDir() {
		doc, err := loadCUEDir(path)
		if err != nil {
			return nil, err
		}
		if err := doc.normalize(); err != nil {
			return nil, err
		}
		return doc, nil
	}

	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	if format == FormatCUE {
		doc, err := decodeCUE(data, path)
		if err != nil {
			return nil, err
		}
		if err := doc.normalize(); err != nil {
			return nil, err
		}
		return doc, nil
	}
	doc, err := Decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return doc, nil
}

// Encode writes doc in the given format.
func Encode(doc *Document, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode json: %w", err)
		}
		return append(data, '\n'), nil
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return nil, fmt.Errorf("encode yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encode yaml: %w", err)
		}
		return buf.Bytes(), nil
	case FormatCUE:
		return encodeCUE(doc)
	default:
		return nil, fmt.Errorf("encode: unsupported format %q", format)
	}
}

func decodeJSON(data []byte) (*Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("decode json: trailing data after document")
	}
	return &doc, nil
}

func decodeYAML(data []byte) (*Document, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		// An empty stream is an empty document.
		if errors.Is(err, io.EOF) {
			return &doc, nil
		}
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return &doc, nil
}

// normalize applies document defaults and validates flags.
func (d *Document) normalize() error {
	if err := d.Flags.validate(); err != nil {
		return err
	}
	if d.Recipes == nil {
		d.Recipes = []Recipe{{}}
	}
	return nil
}
