package classifier

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/xaenox/focusguard/internal/models"
)

func TestDefaultProfiles(t *testing.T) {
	profiles := DefaultProfiles()
	want := map[models.Category]bool{
		models.CategoryEducational:   false,
		models.CategoryWork:          false,
		models.CategoryEntertainment: false,
		models.CategorySocialMedia:   false,
		models.CategoryGaming:        false,
		models.CategoryStreaming:     false,
	}
	for _, p := range profiles {
		if _, ok := want[p.Name]; ok {
			want[p.Name] = true
		}
		if len(p.Texts) == 0 || p.Weight <= 0 {
			t.Errorf("Profile %s is incomplete: %+v", p.Name, p)
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("Missing default profile %s", name)
		}
	}
}

func TestLoadProfiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	data := []byte(`categories:
  - name: gaming
    texts: [steam library]
  - name: work
    weight: 2
    texts: [code review]
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("Failed to write profiles: %v", err)
	}

	profiles, err := LoadProfiles(path)
	if err != nil {
		t.Fatalf("LoadProfiles returned error: %v", err)
	}
	if len(profiles) != 2 {
		t.Fatalf("Expected 2 profiles, got %d", len(profiles))
	}
	if profiles[0].Weight != 1.0 {
		t.Errorf("Expected default weight 1.0, got %.2f", profiles[0].Weight)
	}
	if profiles[1].Weight != 2 {
		t.Errorf("Expected weight 2, got %.2f", profiles[1].Weight)
	}
}

func TestParseProfilesErrors(t *testing.T) {
	bad := []string{
		"categories: []",
		"categories:\n  - texts: [x]",
		"categories:\n  - name: work",
		"::: not yaml",
	}
	for _, input := range bad {
		if _, err := ParseProfiles([]byte(input)); err == nil {
			t.Errorf("Expected error for %q", input)
		}
	}
}
