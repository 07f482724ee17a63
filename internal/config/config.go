// Package config loads anima-wheel build settings from an optional YAML
// project file and the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/ivadomed/anima-bin/internal/security"
	"github.com/ivadomed/anima-bin/internal/wheel"
)

// DefaultFile is the project file picked up from the working directory.
const DefaultFile = "anima-wheel.yaml"

// Environment variables read by WithEnv.
const (
	EnvApp             = "ANIMA_APP"
	EnvPlatform        = "PLATFORM"
	EnvVersion         = "ANIMA_VERSION"
	EnvDispatcher      = "ANIMA_DISPATCHER"
	EnvSourceDateEpoch = "SOURCE_DATE_EPOCH"
)

// Config holds the settings of one anima-wheel run.
type Config struct {
	// NamePrefix is prepended to every distribution name.
	NamePrefix string `yaml:"name_prefix"`
	// Umbrella is the name (without prefix) of the unit depending on all binaries.
	Umbrella string `yaml:"umbrella"`
	// Summary is the one-line description; binaries get ": <name>" appended.
	Summary string `yaml:"summary"`

	Author      string             `yaml:"author"`
	License     string             `yaml:"license"`
	LicenseFile string             `yaml:"license_file"`
	Readme      string             `yaml:"readme"`
	URL         string             `yaml:"url"`
	ProjectURLs []wheel.ProjectURL `yaml:"project_urls"`

	// BinDir holds the pre-built binaries to package.
	BinDir string `yaml:"bin_dir"`
	// Include lists doublestar patterns selecting binaries inside BinDir.
	Include []string `yaml:"include"`
	// OutDir receives the built wheels.
	OutDir string `yaml:"out_dir"`
	// Dispatcher is the anima-exec executable installed as each command.
	Dispatcher string `yaml:"dispatcher"`

	// App selects a single binary to package. Empty builds the umbrella unit.
	App string `yaml:"-"`
	// Platform is the OS label baked into the platform tag.
	Platform string `yaml:"-"`
	// Version overrides version discovery from git.
	Version string `yaml:"-"`
	// ModTime is applied to archive entries. Zero uses the wheel default.
	ModTime time.Time `yaml:"-"`
}

// Default returns the settings the project has always been built with.
func Default() Config {
	return Config{
		NamePrefix:  "ivadomed-",
		Umbrella:    "anima-bin",
		Summary:     "ANIMA medical image processing program",
		Author:      "Inria",
		License:     "AGPL 3+",
		LicenseFile: "License.txt",
		Readme:      "README.md",
		URL:         "https://github.com/ivadomed/anima-bin/",
		ProjectURLs: []wheel.ProjectURL{
			{Label: "Homepage", URL: "https://github.com/ivadomed/anima-bin/"},
			{Label: "Repository", URL: "https://github.com/ivadomed/anima-bin/"},
		},
		BinDir:  filepath.Join("src", "anima", "bin"),
		Include: []string{"anima*"},
		OutDir:  "dist",
	}
}

// Builder provides a fluent interface for assembling a Config.
type Builder struct {
	config   Config
	file     string
	optional bool
	useEnv   bool
	getenv   func(string) string
}

// NewBuilder creates a new Config builder starting from Default.
func NewBuilder() *Builder {
	return &Builder{
		config: Default(),
		getenv: os.Getenv,
	}
}

// WithFile loads the YAML project file at path. A missing file is an error.
func (b *Builder) WithFile(path string) *Builder {
	b.file = path
	b.optional = false
	return b
}

// WithOptionalFile loads the YAML project file at path if it exists.
func (b *Builder) WithOptionalFile(path string) *Builder {
	b.file = path
	b.optional = true
	return b
}

// WithEnv reads ANIMA_APP, PLATFORM, ANIMA_VERSION, ANIMA_DISPATCHER and
// SOURCE_DATE_EPOCH. Environment values override the project file.
func (b *Builder) WithEnv() *Builder {
	b.useEnv = true
	return b
}

// WithEnvFunc replaces the environment lookup (useful for testing).
func (b *Builder) WithEnvFunc(getenv func(string) string) *Builder {
	b.getenv = getenv
	return b
}

// Build constructs and validates the Config.
func (b *Builder) Build() (*Config, error) {
	cfg := b.config

	if b.file != "" {
		if err := loadFile(&cfg, b.file, b.optional); err != nil {
			return nil, err
		}
	}

	if b.useEnv {
		if err := applyEnv(&cfg, b.getenv); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadFile merges the YAML file at path over cfg. Relative paths in the file
// are resolved against the file's directory.
func loadFile(cfg *Config, path string, optional bool) error {
	data, err := os.ReadFile(path) // #nosec G304 - config path is chosen by the user
	if err != nil {
		if optional && os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	rel := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}

	setString(&cfg.NamePrefix, file.NamePrefix)
	setString(&cfg.Umbrella, file.Umbrella)
	setString(&cfg.Summary, file.Summary)
	setString(&cfg.Author, file.Author)
	setString(&cfg.License, file.License)
	setString(&cfg.URL, file.URL)
	setString(&cfg.LicenseFile, rel(file.LicenseFile))
	setString(&cfg.Readme, rel(file.Readme))
	setString(&cfg.BinDir, rel(file.BinDir))
	setString(&cfg.OutDir, rel(file.OutDir))
	setString(&cfg.Dispatcher, rel(file.Dispatcher))
	if file.ProjectURLs != nil {
		cfg.ProjectURLs = file.ProjectURLs
	}
	if len(file.Include) > 0 {
		cfg.Include = file.Include
	}
	return nil
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	setString(&cfg.App, getenv(EnvApp))
	setString(&cfg.Platform, getenv(EnvPlatform))
	setString(&cfg.Version, getenv(EnvVersion))
	setString(&cfg.Dispatcher, getenv(EnvDispatcher))

	if epoch := strings.TrimSpace(getenv(EnvSourceDateEpoch)); epoch != "" {
		secs, err := strconv.ParseInt(epoch, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvSourceDateEpoch, epoch, err)
		}
		cfg.ModTime = time.Unix(secs, 0).UTC()
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// Validate checks the settings that would otherwise fail late in a build.
func (c *Config) Validate() error {
	if c.Umbrella == "" {
		return fmt.Errorf("umbrella name must not be empty")
	}
	if c.BinDir == "" {
		return fmt.Errorf("bin_dir must not be empty")
	}
	if len(c.Include) == 0 {
		return fmt.Errorf("include must list at least one pattern")
	}
	for _, p := range c.Include {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid include pattern %q", p)
		}
	}
	if c.App != "" {
		if err := security.ValidateBinaryName(c.App); err != nil {
			return fmt.Errorf("invalid %s: %w", EnvApp, err)
		}
	}
	return nil
}
