// Package build turns a directory of pre-built ANIMA binaries into wheels.
//
// A monolithic wheel holding every binary is too large for package indexes,
// so the binaries are split: each one becomes its own distribution
// ("ivadomed-animaDenoising"), and an umbrella distribution
// ("ivadomed-anima-bin") ships nothing but a dependency on all of them at
// the same version.
package build

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/ivadomed/anima-bin/internal/config"
	"github.com/ivadomed/anima-bin/internal/security"
	"github.com/ivadomed/anima-bin/internal/tag"
	"github.com/ivadomed/anima-bin/internal/wheel"
)

var (
	// ErrAppNotFound is returned when the selected binary is not in the bin directory.
	ErrAppNotFound = errors.New("binary not found")
	// ErrNoBinaries is returned when the bin directory holds no matching binaries.
	ErrNoBinaries = errors.New("no binaries found")
)

// Plan describes one distribution to build.
type Plan struct {
	Name    string
	Version string
	Summary string

	// App is the wrapped binary's file name. Empty for the umbrella.
	App string
	// Command is the console command installed for App.
	Command string
	// Requires lists "name==version" dependencies.
	Requires []string

	Tag tag.Tag
	// Pure marks archives without native payload.
	Pure bool
}

// Umbrella reports whether p is the umbrella distribution.
func (p *Plan) Umbrella() bool {
	return p.App == ""
}

// Filename returns the wheel file name for p.
func (p *Plan) Filename() string {
	return wheel.Filename(p.Name, p.Version, p.Tag)
}

// CommandName derives a console command name from a binary's file name.
func CommandName(app string) string {
	return strings.TrimSuffix(app, ".exe")
}

// Discover lists the regular files in binDir whose names match any of
// patterns, sorted by name.
func Discover(binDir string, patterns []string) ([]string, error) {
	entries, err := os.ReadDir(binDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read bin directory: %w", err)
	}

	var found []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		for _, p := range patterns {
			if ok, _ := doublestar.Match(p, entry.Name()); ok {
				found = append(found, entry.Name())
				break
			}
		}
	}
	slices.Sort(found)
	return found, nil
}

// NewPlan plans the distribution selected by cfg.App: the umbrella when it
// is empty, otherwise the single binary it names. detected is the tag the
// host would pick for a platform-specific archive.
func NewPlan(cfg *config.Config, binaries []string, version string, detected tag.Tag) (*Plan, error) {
	if version == "" {
		return nil, fmt.Errorf("version is required")
	}

	if cfg.App == "" {
		return umbrellaPlan(cfg, binaries, version)
	}

	if err := security.ValidateBinaryName(cfg.App); err != nil {
		return nil, err
	}
	if !slices.Contains(binaries, cfg.App) {
		return nil, fmt.Errorf("%w: %s=%s not found in %s", ErrAppNotFound, config.EnvApp, cfg.App, cfg.BinDir)
	}

	command := CommandName(cfg.App)
	return &Plan{
		Name:    cfg.NamePrefix + command,
		Version: version,
		Summary: cfg.Summary + ": " + command,
		App:     cfg.App,
		Command: command,
		Tag:     tag.Override(detected, cfg.Platform),
	}, nil
}

func umbrellaPlan(cfg *config.Config, binaries []string, version string) (*Plan, error) {
	if len(binaries) == 0 {
		return nil, fmt.Errorf("%w in %s matching %v", ErrNoBinaries, cfg.BinDir, cfg.Include)
	}

	requires := make([]string, 0, len(binaries))
	for _, bin := range binaries {
		requires = append(requires, fmt.Sprintf("%s%s==%s", cfg.NamePrefix, CommandName(bin), version))
	}

	return &Plan{
		Name:     cfg.NamePrefix + cfg.Umbrella,
		Version:  version,
		Summary:  cfg.Summary + "s",
		Requires: requires,
		Tag:      tag.Pure,
		Pure:     true,
	}, nil
}

// PlanAll plans the umbrella followed by one distribution per binary.
func PlanAll(cfg *config.Config, binaries []string, version string, detected tag.Tag) ([]*Plan, error) {
	umbrella := *cfg
	umbrella.App = ""
	first, err := NewPlan(&umbrella, binaries, version, detected)
	if err != nil {
		return nil, err
	}

	plans := []*Plan{first}
	for _, bin := range binaries {
		single := *cfg
		single.App = bin
		p, err := NewPlan(&single, binaries, version, detected)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, nil
}
