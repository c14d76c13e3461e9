package classifier

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/xaenox/focusguard/internal/models"
)

//go:embed profiles.yaml
var defaultProfilesYAML []byte

type profilesFile struct {
	Categories []models.CategoryProfile `yaml:"categories"`
}

// DefaultProfiles returns the built-in category profiles.
func DefaultProfiles() []models.CategoryProfile {
	profiles, err := ParseProfiles(defaultProfilesYAML)
	if err != nil {
		panic(fmt.Sprintf("invalid embedded profiles: %v", err))
	}
	return profiles
}

// LoadProfiles reads category profiles from a YAML file.
// An empty path returns the built-in defaults.
func LoadProfiles(path string) ([]models.CategoryProfile, error) {
	if path == "" {
		return DefaultProfiles(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles: %w", err)
	}
	return ParseProfiles(data)
}

func ParseProfiles(data []byte) ([]models.CategoryProfile, error) {
	var file profilesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse profiles: %w", err)
	}
	if len(file.Categories) == 0 {
		return nil, fmt.Errorf("parse profiles: no categories defined")
	}
	for i := range file.Categories {
		p := &file.Categories[i]
		if p.Name == "" {
			return nil, fmt.Errorf("parse profiles: category %d has no name", i)
		}
		if len(p.Texts) == 0 {
			return nil, fmt.Errorf("parse profiles: category %q has no texts", p.Name)
		}
		if p.Weight <= 0 {
			p.Weight = 1.0
		}
	}
	return file.Categories, nil
}
