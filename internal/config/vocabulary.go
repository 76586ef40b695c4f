package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Vocabulary holds the fixed retrieval vocabulary: catalog category names
// matched by the structured dispatch path. Loadable from YAML so the list
// can track the catalog without a rebuild.
type Vocabulary struct {
	Categories []string `yaml:"categories"`
}

// DefaultVocabulary matches the categories present in the seeded catalog.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Categories: []string{
			"cheddar",
			"mozzarella",
			"parmesan",
			"brie",
			"gouda",
			"blue cheese",
			"swiss",
			"provolone",
		},
	}
}

// LoadVocabulary reads a vocabulary file, falling back to the defaults when
// no path is configured.
func LoadVocabulary(path string) (Vocabulary, error) {
	if path == "" {
		return DefaultVocabulary(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Vocabulary{}, fmt.Errorf("read vocabulary file: %w", err)
	}

	var vocab Vocabulary
	if err := yaml.Unmarshal(data, &vocab); err != nil {
		return Vocabulary{}, fmt.Errorf("parse vocabulary yaml: %w", err)
	}
	if len(vocab.Categories) == 0 {
		vocab.Categories = DefaultVocabulary().Categories
	}
	return vocab, nil
}
