package build

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/hashicorp/go-hclog"

	"github.com/ivadomed/anima-bin/internal/config"
	"github.com/ivadomed/anima-bin/internal/wheel"
)

// LibexecDir is where wrapped binaries are installed, relative to the
// installation prefix. The dispatcher looks for them in ../libexec/anima
// from its own directory, so the two must agree.
const LibexecDir = "libexec/anima"

// Builder writes wheels for plans.
type Builder struct {
	Config *config.Config
	// Dispatcher is the anima-exec executable copied in as each console command.
	Dispatcher string
	// Generator is written to the WHEEL file.
	Generator string
	Logger    hclog.Logger
}

// Build writes the wheel for plan into the output directory and returns its path.
func (b *Builder) Build(plan *Plan) (string, error) {
	if !plan.Umbrella() && b.Dispatcher == "" {
		return "", fmt.Errorf("a dispatcher executable is required to build %s", plan.Name)
	}

	meta, err := b.metadata(plan)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(b.Config.OutDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	dest := filepath.Join(b.Config.OutDir, plan.Filename())
	tmp, err := os.CreateTemp(b.Config.OutDir, ".anima-wheel-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary wheel: %w", err)
	}
	defer os.Remove(tmp.Name())

	writeErr := b.write(tmp, plan, meta)
	if writeErr == nil {
		// CreateTemp opens 0600 and the rename keeps it.
		if err := tmp.Chmod(0o644); err != nil { // #nosec G302 - wheels are published artifacts
			writeErr = fmt.Errorf("failed to set wheel permissions: %w", err)
		}
	}
	closeErr := tmp.Close()
	if writeErr != nil {
		return "", writeErr
	}
	if closeErr != nil {
		return "", fmt.Errorf("failed to close wheel: %w", closeErr)
	}

	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", fmt.Errorf("failed to move wheel into place: %w", err)
	}

	b.logger().Info("built wheel", "path", dest, "tag", plan.Tag.String())
	return dest, nil
}

// BuildAll builds every plan in order and returns the wheel paths.
func (b *Builder) BuildAll(plans []*Plan) ([]string, error) {
	paths := make([]string, 0, len(plans))
	for _, p := range plans {
		out, err := b.Build(p)
		if err != nil {
			return paths, fmt.Errorf("failed to build %s: %w", p.Name, err)
		}
		paths = append(paths, out)
	}
	return paths, nil
}

func (b *Builder) write(f *os.File, plan *Plan, meta wheel.Metadata) error {
	w, err := wheel.NewWriter(f, meta, wheel.Options{
		Tag:       plan.Tag,
		Pure:      plan.Pure,
		Generator: b.Generator,
		ModTime:   b.Config.ModTime,
	})
	if err != nil {
		return err
	}

	if !plan.Umbrella() {
		script := plan.Command
		if plan.Command != plan.App {
			// Windows finds commands by their .exe extension.
			script += ".exe"
		}
		if err := w.AddFile(w.DataPath(wheel.SchemeScripts, script), b.Dispatcher, 0o755); err != nil {
			return err
		}
		src := filepath.Join(b.Config.BinDir, plan.App)
		if err := w.AddFile(w.DataPath(wheel.SchemeData, path.Join(LibexecDir, plan.App)), src, 0o755); err != nil {
			return err
		}
		b.logger().Debug("added binary", "app", plan.App, "command", plan.Command)
	}

	if meta.LicenseFile != "" {
		if err := w.AddFile(w.DistInfoPath(meta.LicenseFile), b.Config.LicenseFile, 0o644); err != nil {
			return err
		}
	}

	return w.Close()
}

func (b *Builder) metadata(plan *Plan) (wheel.Metadata, error) {
	cfg := b.Config
	meta := wheel.Metadata{
		Name:        plan.Name,
		Version:     plan.Version,
		Summary:     plan.Summary,
		HomePage:    cfg.URL,
		Author:      cfg.Author,
		License:     cfg.License,
		ProjectURLs: cfg.ProjectURLs,
		Requires:    plan.Requires,
	}

	if cfg.Readme != "" {
		readme, err := os.ReadFile(cfg.Readme)
		switch {
		case err == nil:
			meta.Description = string(readme)
			meta.DescriptionContentType = "text/markdown"
		case errors.Is(err, fs.ErrNotExist):
			b.logger().Warn("readme not found, building without long description", "path", cfg.Readme)
		default:
			return meta, fmt.Errorf("failed to read readme: %w", err)
		}
	}

	if cfg.LicenseFile != "" {
		if _, err := os.Stat(cfg.LicenseFile); err == nil {
			meta.LicenseFile = filepath.Base(cfg.LicenseFile)
		} else {
			b.logger().Warn("license file not found, building without it", "path", cfg.LicenseFile)
		}
	}

	return meta, nil
}

func (b *Builder) logger() hclog.Logger {
	if b.Logger == nil {
		return hclog.NewNullLogger()
	}
	return b.Logger
}
