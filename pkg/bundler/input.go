package bundler

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	yaml "gopkg.in/yaml.v2"

	"github.com/mrhapile/metadeploy/pkg/types"
)

// Input formats accepted by DecodeBatch.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// DecodeBatch decodes an entity batch of the form {"metadata": [...]}.
func DecodeBatch(data []byte, format string) (*types.Batch, error) {
	var batch types.Batch
	switch strings.ToLower(format) {
	case FormatJSON:
		if err := json.Unmarshal(data, &batch); err != nil {
			return nil, fmt.Errorf("decode json batch: %w", err)
		}
	case FormatYAML, "yml":
		if err := yaml.UnmarshalStrict(data, &batch); err != nil {
			return nil, fmt.Errorf("decode yaml batch: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown batch format %q", format)
	}
	if batch.Metadata == nil {
		return nil, fmt.Errorf("batch has no metadata list")
	}
	return &batch, nil
}

// LoadBatch reads a batch file, choosing the decoder by extension.
func LoadBatch(path string) (*types.Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read batch: %w", err)
	}
	format := FormatJSON
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = FormatYAML
	}
	return DecodeBatch(data, format)
}
