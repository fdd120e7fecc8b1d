// Package library provides the canned example animations.
package library

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/code-animator/backend/internal/models"
	"github.com/code-animator/backend/internal/parser"
)

//go:embed examples/*.yaml
var builtin embed.FS

// exampleFile is the on-disk layout of one example document.
type exampleFile struct {
	Title       string         `yaml:"title"`
	Description string         `yaml:"description"`
	Plan        map[string]any `yaml:"plan"`
}

// Library is an ordered, read-only set of examples addressable by slug.
type Library struct {
	examples []models.Example
	bySlug   map[string]int
}

// Load returns the library of built-in examples.
func Load() (*Library, error) {
	l := &Library{bySlug: make(map[string]int)}
	if err := l.addFS(builtin, "examples"); err != nil {
		return nil, err
	}
	return l, nil
}

// LoadWithDir returns the built-in examples plus every *.yaml/*.yml file in dir.
// A missing dir is not an error.
func LoadWithDir(dir string) (*Library, error) {
	l, err := Load()
	if err != nil {
		return nil, err
	}
	if dir == "" {
		return l, nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return l, nil
	}
	if err := l.addFS(os.DirFS(dir), "."); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Library) addFS(fsys fs.FS, dir string) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("reading examples: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		ext := strings.ToLower(path.Ext(e.Name()))
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		data, err := fs.ReadFile(fsys, path.Join(dir, name))
		if err != nil {
			return fmt.Errorf("reading example %s: %w", name, err)
		}
		ex, err := decodeExample(name, data)
		if err != nil {
			return err
		}
		l.add(ex)
	}
	return nil
}

func decodeExample(name string, data []byte) (models.Example, error) {
	var raw exampleFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return models.Example{}, fmt.Errorf("parsing example %s: %w", name, err)
	}
	if raw.Title == "" {
		return models.Example{}, fmt.Errorf("example %s has no title", name)
	}

	doc, err := yaml.Marshal(raw.Plan)
	if err != nil {
		return models.Example{}, fmt.Errorf("encoding example %s: %w", name, err)
	}
	plan, err := parser.Decode(name, doc)
	if err != nil {
		return models.Example{}, fmt.Errorf("example %s: %w", name, err)
	}

	return models.Example{Title: raw.Title, Description: raw.Description, Plan: plan}, nil
}

// add appends ex, replacing an earlier example with the same slug.
func (l *Library) add(ex models.Example) {
	slug := Slug(ex.Title)
	if i, ok := l.bySlug[slug]; ok {
		l.examples[i] = ex
		return
	}
	l.bySlug[slug] = len(l.examples)
	l.examples = append(l.examples, ex)
}

// List returns all examples in load order.
func (l *Library) List() []models.Example {
	out := make([]models.Example, len(l.examples))
	copy(out, l.examples)
	return out
}

// Get looks an example up by slug or title.
func (l *Library) Get(key string) (models.Example, bool) {
	i, ok := l.bySlug[Slug(key)]
	if !ok {
		return models.Example{}, false
	}
	return l.examples[i], true
}

// Len returns the number of examples.
func (l *Library) Len() int {
	return len(l.examples)
}

// Slug lower-cases title and joins its words with dashes: "Bubble Sort" -> "bubble-sort".
func Slug(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
