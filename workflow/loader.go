package workflow

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tzervas/taskflow/core"
)

// ParseJSON decodes a workflow spec from JSON.
func ParseJSON(data []byte) (Spec, error) {
	var spec Spec
	if err := json.Unmarshal(data, &spec); err != nil {
		return Spec{}, core.WrapError(core.ErrorKindValidation, "malformed JSON workflow spec", err)
	}
	return spec, nil
}

// ParseYAML decodes a workflow spec from YAML.
func ParseYAML(data []byte) (Spec, error) {
	var spec Spec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return Spec{}, core.WrapError(core.ErrorKindValidation, "malformed YAML workflow spec", err)
	}
	return spec, nil
}

// LoadFile reads a workflow spec from a .json, .yaml or .yml file.
func LoadFile(path string) (Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Spec{}, fmt.Errorf("read workflow spec: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return ParseJSON(data)
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return Spec{}, core.Errorf(core.ErrorKindValidation, "unsupported workflow spec extension %q", filepath.Ext(path))
	}
}
