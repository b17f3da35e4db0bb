package seed

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"retouchly/internal/models"

	"gopkg.in/yaml.v3"
)

//go:embed presets/*.yml
var presetFiles embed.FS

// Preset describes one demo dataset.
type Preset struct {
	Name                    string   `yaml:"name"`
	Users                   int      `yaml:"users"`
	ActivitiesPerUser       int      `yaml:"activities_per_user"`
	PublicRatio             float64  `yaml:"public_ratio"`
	MaxLikesPerActivity     int      `yaml:"max_likes_per_activity"`
	MaxDownloadsPerActivity int      `yaml:"max_downloads_per_activity"`
	MaxDays                 int      `yaml:"max_days"`
	Kinds                   []string `yaml:"kinds"`
}

// ParsePreset decodes and validates a YAML preset.
func ParsePreset(raw []byte) (*Preset, error) {
	var p Preset
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("decode preset: %w", err)
	}
	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("preset %q: %w", p.Name, err)
	}
	return &p, nil
}

func (p *Preset) validate() error {
	var errs []error
	if p.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if p.Users < 1 {
		errs = append(errs, errors.New("users must be at least 1"))
	}
	if p.ActivitiesPerUser < 0 || p.MaxLikesPerActivity < 0 || p.MaxDownloadsPerActivity < 0 {
		errs = append(errs, errors.New("counts must not be negative"))
	}
	if p.PublicRatio < 0 || p.PublicRatio > 1 {
		errs = append(errs, errors.New("public_ratio must be between 0 and 1"))
	}
	for _, k := range p.Kinds {
		if !models.ActivityKind(k).Valid() {
			errs = append(errs, fmt.Errorf("unknown kind %q", k))
		}
	}
	if p.MaxDays <= 0 {
		p.MaxDays = 30
	}
	return errors.Join(errs...)
}

func (p *Preset) kinds() []models.ActivityKind {
	if len(p.Kinds) == 0 {
		return models.ActivityKinds
	}
	out := make([]models.ActivityKind, len(p.Kinds))
	for i, k := range p.Kinds {
		out[i] = models.ActivityKind(k)
	}
	return out
}

// LoadPreset returns the built-in preset with the given name.
func LoadPreset(name string) (*Preset, error) {
	raw, err := presetFiles.ReadFile(path.Join("presets", name+".yml"))
	if err != nil {
		return nil, fmt.Errorf("unknown preset %q (available: %s)", name, strings.Join(PresetNames(), ", "))
	}
	return ParsePreset(raw)
}

// PresetNames lists the built-in presets.
func PresetNames() []string {
	entries, _ := fs.Glob(presetFiles, "presets/*.yml")
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(path.Base(e), ".yml"))
	}
	sort.Strings(names)
	return names
}
