package loader

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/Dicklesworthstone/plan_viewer/pkg/model"
)

// Format is the encoding of a plan file.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// extensions in lookup order. The first existing file wins.
var extensions = []struct {
	ext    string
	format Format
}{
	{".json", FormatJSON},
	{".yaml", FormatYAML},
	{".yml", FormatYAML},
	{".toml", FormatTOML},
}

// FormatFromPath infers the format from a file extension.
func FormatFromPath(path string) (Format, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range extensions {
		if e.ext == ext {
			return e.format, true
		}
	}
	return "", false
}

// Decode parses a plan document.
func Decode(data []byte, f Format) (*model.Plan, error) {
	var plan model.Plan
	var err error
	switch f {
	case FormatJSON:
		err = json.Unmarshal(data, &plan)
	case FormatYAML:
		err = yaml.Unmarshal(data, &plan)
	case FormatTOML:
		err = toml.Unmarshal(data, &plan)
	default:
		return nil, fmt.Errorf("unsupported plan format %q", f)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s plan: %w", f, err)
	}
	return &plan, nil
}

// Encode serializes a plan document.
func Encode(plan *model.Plan, f Format) ([]byte, error) {
	switch f {
	case FormatJSON:
		data, err := json.MarshalIndent(plan, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode json plan: %w", err)
		}
		return append(data, '\n'), nil
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(plan); err != nil {
			return nil, fmt.Errorf("encode yaml plan: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encode yaml plan: %w", err)
		}
		return buf.Bytes(), nil
	case FormatTOML:
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(plan); err != nil {
			return nil, fmt.Errorf("encode toml plan: %w", err)
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("unsupported plan format %q", f)
}
