package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/fairyhunter13/talent-matcher/internal/domain"
)

//go:embed skills.yaml
var defaultSkillsYAML []byte

// SkillTaxonomy groups known skill keywords by category.
type SkillTaxonomy struct {
	Categories map[string][]string `yaml:"categories"`
}

// Skills returns every normalized skill in the taxonomy, deduplicated and sorted.
func (t SkillTaxonomy) Skills() []string {
	set := domain.NewSkillSet()
	for _, list := range t.Categories {
		for _, s := range list {
			if n := domain.NormalizeSkill(s); n != "" {
				set[n] = struct{}{}
			}
		}
	}
	return set.Slice()
}

// CategoryNames returns the category keys sorted ascending.
func (t SkillTaxonomy) CategoryNames() []string {
	out := make([]string, 0, len(t.Categories))
	for k := range t.Categories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// DefaultSkillTaxonomy returns the built-in taxonomy.
func DefaultSkillTaxonomy() SkillTaxonomy {
	t, err := parseSkillTaxonomy(defaultSkillsYAML)
	if err != nil {
		// embedded file is part of the build
		panic(fmt.Sprintf("config: embedded skills.yaml: %v", err))
	}
	return t
}

// LoadSkillTaxonomy reads a taxonomy from path, or the built-in one when path is empty.
func LoadSkillTaxonomy(path string) (SkillTaxonomy, error) {
	if path == "" {
		return DefaultSkillTaxonomy(), nil
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return SkillTaxonomy{}, fmt.Errorf("op=config.LoadSkillTaxonomy: %w", err)
	}
	// #nosec G304 -- operator-supplied configuration file
	content, err := os.ReadFile(absPath)
	if err != nil {
		return SkillTaxonomy{}, fmt.Errorf("op=config.LoadSkillTaxonomy: %w", err)
	}
	t, err := parseSkillTaxonomy(content)
	if err != nil {
		return SkillTaxonomy{}, fmt.Errorf("op=config.LoadSkillTaxonomy: %s: %w", absPath, err)
	}
	return t, nil
}

func parseSkillTaxonomy(content []byte) (SkillTaxonomy, error) {
	var t SkillTaxonomy
	if err := yaml.Unmarshal(content, &t); err != nil {
		return SkillTaxonomy{}, fmt.Errorf("parse yaml: %w", err)
	}
	if len(t.Skills()) == 0 {
		return SkillTaxonomy{}, fmt.Errorf("no skills found")
	}
	return t, nil
}
