package parser

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// YAMLPlanParser handles plan documents in YAML, the format used by the
// bundled example library.
type YAMLPlanParser struct{}

func NewYAMLPlanParser() *YAMLPlanParser {
	return &YAMLPlanParser{}
}

func (p *YAMLPlanParser) Name() string {
	return "yaml"
}

func (p *YAMLPlanParser) CanParse(filename string, data []byte) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		return true
	}
	var probe map[string]any
	return yaml.Unmarshal(data, &probe) == nil && probe["scene"] != nil
}

func (p *YAMLPlanParser) ToJSON(data []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if _, ok := doc.(map[string]any); !ok {
		return nil, fmt.Errorf("top level must be a mapping")
	}
	return json.Marshal(doc)
}
