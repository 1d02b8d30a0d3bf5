// Package seed loads the initial language catalog and sample challenges.
package seed

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/bhashahub/crowdsource/internal/models"
)

//go:embed seed.yaml
var defaultSeed []byte

// Language is a catalog entry.
type Language struct {
	Code       string `yaml:"code"`
	Name       string `yaml:"name"`
	NativeName string `yaml:"native_name"`
}

// Challenge is a challenge template; dates are set when it is created.
type Challenge struct {
	Title        string                  `yaml:"title"`
	Description  string                  `yaml:"description"`
	Language     string                  `yaml:"language"`
	Kind         models.ContributionKind `yaml:"kind"`
	TargetCount  int                     `yaml:"target_count"`
	DurationDays int                     `yaml:"duration_days"`
	Prompt       string                  `yaml:"prompt"`
}

// Data is the parsed seed file.
type Data struct {
	Languages  []Language  `yaml:"languages"`
	Challenges []Challenge `yaml:"challenges"`
}

// Load reads seed data from path, or the embedded default when path is empty.
func Load(path string) (*Data, error) {
	raw := defaultSeed
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read seed file: %w", err)
		}
		raw = b
	}
	return Parse(raw)
}

// Parse decodes and validates seed YAML.
func Parse(raw []byte) (*Data, error) {
	var data Data
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to parse seed data: %w", err)
	}

	seen := make(map[string]bool, len(data.Languages))
	for _, l := range data.Languages {
		if l.Code == "" || l.Name == "" {
			return nil, fmt.Errorf("seed language requires code and name: %+v", l)
		}
		if seen[l.Code] {
			return nil, fmt.Errorf("duplicate seed language %q", l.Code)
		}
		seen[l.Code] = true
	}

	for _, c := range data.Challenges {
		if !c.Kind.Valid() {
			return nil, fmt.Errorf("seed challenge %q has invalid kind %q", c.Title, c.Kind)
		}
		if c.TargetCount <= 0 || c.DurationDays <= 0 {
			return nil, fmt.Errorf("seed challenge %q needs positive target_count and duration_days", c.Title)
		}
	}

	return &data, nil
}

// LanguageMetadata converts the catalog entries restricted to supported codes.
// An empty supported list keeps every entry.
func (d *Data) LanguageMetadata(supported []string) []models.LanguageMetadata {
	allowed := make(map[string]bool, len(supported))
	for _, code := range supported {
		allowed[code] = true
	}

	out := make([]models.LanguageMetadata, 0, len(d.Languages))
	for _, l := range d.Languages {
		if len(allowed) > 0 && !allowed[l.Code] {
			continue
		}
		out = append(out, models.LanguageMetadata{
			Code:       l.Code,
			Name:       l.Name,
			NativeName: l.NativeName,
			IsActive:   true,
		})
	}
	return out
}
