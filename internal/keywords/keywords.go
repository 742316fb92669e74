package keywords

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

// DefaultKeywords is the built-in danger-keyword taxonomy
var DefaultKeywords = []string{
	"transfer",
	"override",
	"ignore",
	"execute",
	"password",
	"confirm",
	"sudo",
	"admin",
	"system override",
	"ignore previous",
}

// Taxonomy is the on-disk keyword file format
type Taxonomy struct {
	Keywords []string `yaml:"keywords"`
}

// Classifier tests text against the danger-keyword taxonomy.
// The keyword set can be swapped at runtime without blocking readers.
type Classifier struct {
	keywords atomic.Pointer[[]string]
}

// New creates a classifier for the given keywords.
// Keywords are normalized; an empty result falls back to DefaultKeywords.
func New(keywords []string) *Classifier {
	c := &Classifier{}
	c.Replace(keywords)
	return c
}

// NewDefault creates a classifier with the built-in taxonomy
func NewDefault() *Classifier {
	return New(DefaultKeywords)
}

// Load reads a taxonomy from a YAML file. Falls back to defaults if the path
// is empty or the file doesn't exist.
func Load(path string) (*Classifier, error) {
	keywords, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return New(keywords), nil
}

// ReadFile parses a taxonomy file and returns its raw keyword list.
// A missing file yields nil, which New treats as the default set.
func ReadFile(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read keyword file; %w", err)
	}

	var taxonomy Taxonomy
	if err := yaml.Unmarshal(data, &taxonomy); err != nil {
		return nil, fmt.Errorf("failed to parse keyword file %s; %w", path, err)
	}

	return taxonomy.Keywords, nil
}

// Replace atomically swaps the keyword set
func (c *Classifier) Replace(keywords []string) {
	normalized := normalize(keywords)
	if len(normalized) == 0 {
		normalized = normalize(DefaultKeywords)
	}
	c.keywords.Store(&normalized)
}

// Keywords returns a copy of the active keyword set
func (c *Classifier) Keywords() []string {
	current := *c.keywords.Load()
	out := make([]string, len(current))
	copy(out, current)
	return out
}

// Classify reports whether the lowercased text contains any danger keyword
func (c *Classifier) Classify(text string) bool {
	_, ok := c.Match(text)
	return ok
}

// Match returns the first danger keyword contained in text
func (c *Classifier) Match(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, keyword := range *c.keywords.Load() {
		if strings.Contains(lower, keyword) {
			return keyword, true
		}
	}
	return "", false
}

func normalize(keywords []string) []string {
	seen := make(map[string]bool, len(keywords))
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}
