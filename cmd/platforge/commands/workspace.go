package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/platforge/platforge/pkg/config"
	"github.com/platforge/platforge/pkg/platform"
	"github.com/rs/zerolog/log"
)

// workspace bundles everything loaded from the settings file and the
// declaration files it references.
type workspace struct {
	Settings       *config.BuildSettings
	Snapshot       *config.Snapshot
	Candidates     []*platform.Platform
	TargetPlatform *platform.Platform

	// WatchPaths are the files the --watch mode observes.
	WatchPaths []string
}

// loadWorkspace parses the settings file, loads the declaration files it
// names, and builds a resolution-ready snapshot. Declaration paths are
// resolved relative to the settings file's directory.
func loadWorkspace(ctx context.Context, settingsFile string) (*workspace, error) {
	parser := config.NewSettingsParser()
	settings, verrs, err := parser.ParseFile(ctx, settingsFile)
	for _, ve := range verrs {
		log.Error().
			Str("file", ve.File).
			Int("line", ve.Line).
			Str("path", ve.Path).
			Msg(ve.Message)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}
	// Schema and validation findings come back without an error; a nil
	// settings value means the file did not validate.
	if settings == nil || len(verrs) > 0 {
		return nil, fmt.Errorf("settings file %s failed validation with %d problems", settingsFile, len(verrs))
	}

	baseDir := filepath.Dir(settingsFile)
	declFiles := settings.DeclarationFiles
	if len(declFiles) == 0 {
		// Default to every declaration file next to the settings file.
		declFiles, err = filepath.Glob(filepath.Join(baseDir, "*.star"))
		if err != nil {
			return nil, fmt.Errorf("failed to glob declaration files: %w", err)
		}
		if len(declFiles) == 0 {
			return nil, fmt.Errorf("no declaration files found in %s", baseDir)
		}
	} else {
		resolved := make([]string, len(declFiles))
		for i, f := range declFiles {
			if filepath.IsAbs(f) {
				resolved[i] = f
			} else {
				resolved[i] = filepath.Join(baseDir, f)
			}
		}
		declFiles = resolved
	}

	loader := config.NewLoader(0)
	decls, err := loader.LoadFiles(ctx, declFiles)
	if err != nil {
		return nil, fmt.Errorf("failed to load declarations: %w", err)
	}

	snap, err := decls.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build declaration snapshot: %w", err)
	}

	candidates, err := snap.Candidates(settings.ExecutionPlatforms)
	if err != nil {
		return nil, err
	}

	targetPlatform, ok := snap.Platform(platform.Label(settings.TargetPlatform))
	if !ok {
		return nil, fmt.Errorf("target platform %s is not declared", settings.TargetPlatform)
	}

	watchPaths := append([]string{settingsFile}, declFiles...)

	return &workspace{
		Settings:       settings,
		Snapshot:       snap,
		Candidates:     candidates,
		TargetPlatform: targetPlatform,
		WatchPaths:     watchPaths,
	}, nil
}
