package parser

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
)

// JSONPlanParser handles plan documents in JSON.
type JSONPlanParser struct{}

func NewJSONPlanParser() *JSONPlanParser {
	return &JSONPlanParser{}
}

func (p *JSONPlanParser) Name() string {
	return "json"
}

func (p *JSONPlanParser) CanParse(filename string, data []byte) bool {
	if strings.EqualFold(filepath.Ext(filename), ".json") {
		return true
	}
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

func (p *JSONPlanParser) ToJSON(data []byte) ([]byte, error) {
	var probe any
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, err
	}
	return data, nil
}
