package phonics

import (
	"embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog_*.yaml
var catalogs embed.FS

// Phonogram kinds.
const (
	Vowel     = "vowel"
	Consonant = "consonant"
)

// Sound is one sound a letter can make, e.g. "/ă/ (short)".
type Sound struct {
	Sound       string   `yaml:"sound"`
	Description string   `yaml:"description"`
	Examples    []string `yaml:"examples"`
}

// Symbol returns the phonetic notation without the trailing label:
// "/ă/ (short)" becomes "/ă/".
func (s Sound) Symbol() string {
	text := strings.TrimSpace(s.Sound)
	if strings.HasPrefix(text, "/") {
		if end := strings.Index(text[1:], "/"); end >= 0 {
			return text[:end+2]
		}
	}
	if i := strings.IndexAny(text, " （("); i > 0 {
		return text[:i]
	}
	return text
}

type Phonogram struct {
	Letter string  `yaml:"letter"`
	Type   string  `yaml:"type"`
	Sounds []Sound `yaml:"sounds"`
}

// LessonItem is either a concept (open/closed syllables) or a numbered rule
// (silent final E).
type LessonItem struct {
	Concept     string   `yaml:"concept,omitempty"`
	Definition  string   `yaml:"definition,omitempty"`
	Result      string   `yaml:"result,omitempty"`
	Rule        string   `yaml:"rule,omitempty"`
	Reason      string   `yaml:"reason,omitempty"`
	Explanation string   `yaml:"explanation,omitempty"`
	Examples    []string `yaml:"examples"`
}

type Lesson struct {
	ID          string       `yaml:"id"`
	Title       string       `yaml:"title"`
	Description string       `yaml:"description"`
	Content     []LessonItem `yaml:"content"`
}

// Catalog is the read-only phonics reference.
type Catalog struct {
	Language   string      `yaml:"language"`
	Lessons    []Lesson    `yaml:"lessons"`
	Phonograms []Phonogram `yaml:"phonograms"`
}

// Default returns the English catalog.
func Default() *Catalog {
	c, err := Load("en")
	if err != nil {
		panic(err)
	}
	return c
}

// Load returns the embedded catalog for lang ("en" or "zh").
func Load(lang string) (*Catalog, error) {
	data, err := catalogs.ReadFile("catalog_" + strings.ToLower(lang) + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("no phonics catalog for language %q", lang)
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse phonics catalog: %w", err)
	}
	for _, p := range c.Phonograms {
		if p.Type != Vowel && p.Type != Consonant {
			return nil, fmt.Errorf("phonogram %q has unknown type %q", p.Letter, p.Type)
		}
	}
	return &c, nil
}

// Filter returns phonograms of the given kind. An empty kind or "all"
// returns every phonogram.
func (c *Catalog) Filter(kind string) []Phonogram {
	kind = strings.ToLower(strings.TrimSpace(kind))
	if kind == "" || kind == "all" {
		return append([]Phonogram(nil), c.Phonograms...)
	}
	var out []Phonogram
	for _, p := range c.Phonograms {
		if p.Type == kind {
			out = append(out, p)
		}
	}
	return out
}

// Letter looks up a phonogram case-insensitively.
func (c *Catalog) Letter(letter string) (Phonogram, bool) {
	for _, p := range c.Phonograms {
		if strings.EqualFold(p.Letter, strings.TrimSpace(letter)) {
			return p, true
		}
	}
	return Phonogram{}, false
}
