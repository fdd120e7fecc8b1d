package parser

import (
	"fmt"
	"strings"
)

// Registry holds all available parsers and provides format detection.
type Registry struct {
	parsers []Parser
}

// Global registry instance
var globalRegistry = NewRegistry()

func NewRegistry() *Registry {
	return &Registry{
		parsers: []Parser{
			NewJSONPlanParser(),
			NewYAMLPlanParser(),
		},
	}
}

// GetGlobalRegistry returns the singleton registry.
func GetGlobalRegistry() *Registry {
	return globalRegistry
}

// Register adds a new parser to the registry.
func (r *Registry) Register(p Parser) {
	r.parsers = append(r.parsers, p)
}

// FindParser detects the correct parser for a document.
func (r *Registry) FindParser(filename string, data []byte) (Parser, error) {
	for _, p := range r.parsers {
		if p.CanParse(filename, data) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("no suitable parser found for document %q", filename)
}

// GetParserByName returns a parser by its name.
func (r *Registry) GetParserByName(name string) (Parser, error) {
	name = strings.ToLower(name)
	for _, p := range r.parsers {
		if strings.ToLower(p.Name()) == name {
			return p, nil
		}
	}
	return nil, fmt.Errorf("parser not found: %s", name)
}
