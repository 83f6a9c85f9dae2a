// Package catalog holds the static question catalog. The catalog is loaded
// once at process start from embedded data, validated, and never mutated
// afterwards.
package catalog

import (
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/marketpulse/diagnostic/internal/model"
)

//go:embed questions.json
var catalogFS embed.FS

const optionsPerQuestion = 4

// Catalog is an ordered, immutable sequence of questions.
type Catalog struct {
	questions []model.Question
	byID      map[string]int
	pillars   []model.Pillar
	checksum  string
}

// Load parses and validates the embedded question catalog.
func Load() (*Catalog, error) {
	data, err := catalogFS.ReadFile("questions.json")
	if err != nil {
		return nil, fmt.Errorf("read embedded catalog: %w", err)
	}
	return Parse(data)
}

// Parse builds a catalog from raw JSON. Exposed so tests can construct
// small fixture catalogs.
func Parse(data []byte) (*Catalog, error) {
	var questions []model.Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	c, err := New(questions)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(data)
	c.checksum = hex.EncodeToString(sum[:])
	return c, nil
}

// New builds and validates a catalog from already-materialized questions.
func New(questions []model.Question) (*Catalog, error) {
	if len(questions) == 0 {
		return nil, fmt.Errorf("catalog is empty")
	}

	known := make(map[model.Pillar]bool, len(model.Pillars))
	for _, p := range model.Pillars {
		known[p] = true
	}

	byID := make(map[string]int, len(questions))
	seenPillar := make(map[model.Pillar]bool)
	var pillars []model.Pillar

	for i, q := range questions {
		if q.ID == "" {
			return nil, fmt.Errorf("question %d: missing id", i)
		}
		if _, dup := byID[q.ID]; dup {
			return nil, fmt.Errorf("question %q: duplicate id", q.ID)
		}
		byID[q.ID] = i
		if q.Text == "" {
			return nil, fmt.Errorf("question %q: missing text", q.ID)
		}
		if !known[q.Pillar] {
			return nil, fmt.Errorf("question %q: undefined pillar %q", q.ID, q.Pillar)
		}
		if !seenPillar[q.Pillar] {
			seenPillar[q.Pillar] = true
			pillars = append(pillars, q.Pillar)
		}
		if len(q.Options) != optionsPerQuestion {
			return nil, fmt.Errorf("question %q: expected %d options, got %d", q.ID, optionsPerQuestion, len(q.Options))
		}
		values := make(map[string]bool, optionsPerQuestion)
		for j, opt := range q.Options {
			if opt.Value == "" {
				return nil, fmt.Errorf("question %q: option %d has no value", q.ID, j)
			}
			if values[opt.Value] {
				return nil, fmt.Errorf("question %q: duplicate option value %q", q.ID, opt.Value)
			}
			values[opt.Value] = true
			if opt.Score < 1 || opt.Score > model.MaxOptionScore {
				return nil, fmt.Errorf("question %q: option %q score %d out of range", q.ID, opt.Value, opt.Score)
			}
		}
	}

	return &Catalog{questions: questions, byID: byID, pillars: pillars}, nil
}

// Len returns the number of questions.
func (c *Catalog) Len() int {
	return len(c.questions)
}

// Questions returns the ordered question list. Callers must not mutate it.
func (c *Catalog) Questions() []model.Question {
	return c.questions
}

// Question returns the question at the given 0-based position.
func (c *Catalog) Question(i int) (model.Question, bool) {
	if i < 0 || i >= len(c.questions) {
		return model.Question{}, false
	}
	return c.questions[i], true
}

// IndexOf returns the catalog position of a question id, or -1.
func (c *Catalog) IndexOf(id string) int {
	if i, ok := c.byID[id]; ok {
		return i
	}
	return -1
}

// Pillars returns the pillars appearing in the catalog, in order of first
// appearance.
func (c *Catalog) Pillars() []model.Pillar {
	return c.pillars
}

// ByPillar partitions the catalog by pillar. The partition is stable: each
// group preserves the catalog's original relative order.
func (c *Catalog) ByPillar() map[model.Pillar][]model.Question {
	groups := make(map[model.Pillar][]model.Question, len(c.pillars))
	for _, q := range c.questions {
		groups[q.Pillar] = append(groups[q.Pillar], q)
	}
	return groups
}

// Checksum is the hex SHA-256 of the raw catalog data, used to detect
// catalog changes under stored sessions. Empty for catalogs built with New.
func (c *Catalog) Checksum() string {
	return c.checksum
}
