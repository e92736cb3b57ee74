package source

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed sources.yml
var defaultTable []byte

type tableFile struct {
	Unknown struct {
		Score int    `yaml:"score"`
		Tier  string `yaml:"tier"`
	} `yaml:"unknown"`
	Sources map[string]int `yaml:"sources"`
}

var defaultRater = mustParse(defaultTable)

// Default returns the rater built from the embedded table.
func Default() *Rater {
	return defaultRater
}

// Rate looks name up in the embedded table.
func Rate(name string) Quality {
	return defaultRater.Rate(name)
}

// LoadFile builds a rater from a YAML table with the embedded file's shape.
func LoadFile(path string) (*Rater, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	rater, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("invalid source table %s: %w", path, err)
	}
	return rater, nil
}

// Parse builds a rater from YAML bytes.
func Parse(data []byte) (*Rater, error) {
	var tf tableFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if len(tf.Sources) == 0 {
		return nil, fmt.Errorf("sources table is empty")
	}

	for name, score := range tf.Sources {
		if name == "" {
			return nil, fmt.Errorf("source name is required")
		}
		if score < 0 || score > 100 {
			return nil, fmt.Errorf("score for %q must be between 0 and 100, got %d", name, score)
		}
	}

	if tf.Unknown.Score < 0 || tf.Unknown.Score > 100 {
		return nil, fmt.Errorf("unknown score must be between 0 and 100, got %d", tf.Unknown.Score)
	}

	fallback := ForScore(tf.Unknown.Score)
	if tf.Unknown.Tier != "" {
		tier, err := ParseTier(tf.Unknown.Tier)
		if err != nil {
			return nil, fmt.Errorf("invalid unknown tier: %w", err)
		}
		fallback.Tier = tier
		fallback.Description = descriptionFor(tier)
	}

	return NewRater(tf.Sources, fallback), nil
}

func descriptionFor(t Tier) string {
	for _, th := range thresholds {
		if th.tier == t {
			return th.description
		}
	}
	return ""
}

func mustParse(data []byte) *Rater {
	r, err := Parse(data)
	if err != nil {
		panic(fmt.Sprintf("embedded source table: %v", err))
	}
	return r
}
