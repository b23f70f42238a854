package bundler

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/mrhapile/metadeploy/pkg/types"
)

// Build renders entities into the work dir, writes package.xml next to them
// and packs the tree into the archive. Any failure stops the run and is
// returned as a *StageError; files already written are left in place.
func Build(entities []types.MetadataEntity, opts ...Option) (*types.BundleResult, error) {
	// 1. Configure
	cfg := newConfig(opts)
	log := cfg.logger.With(zap.String("workDir", cfg.workDir))

	stage := StageIdle
	fail := func(err error) (*types.BundleResult, error) {
		log.Error("bundle failed", zap.Stringer("stage", stage), zap.Error(err))
		return nil, &StageError{Stage: stage, Err: err}
	}

	if cfg.cleanWorkDir {
		if err := resetDir(cfg.workDir); err != nil {
			return fail(err)
		}
	}

	// 2. Render entities
	stage = StageRendering
	log.Info("rendering entities", zap.Int("count", len(entities)))
	files, skipped, err := render(entities, cfg.workDir, cfg)
	if err != nil {
		return fail(err)
	}

	// 3. Build and write the manifest
	stage = StageManifestBuilding
	manifest, err := buildManifest(entities, cfg)
	if err != nil {
		return fail(err)
	}
	manifestFile := types.RenderedFile{Path: ManifestFile, Content: EncodeManifest(manifest)}
	if err := writeFile(cfg.workDir, manifestFile); err != nil {
		return fail(err)
	}
	files = append(files, manifestFile)
	log.Info("manifest written", zap.Int("groups", len(manifest.Groups)))

	// 4. Pack
	stage = StagePacking
	archivePath, size, err := pack(cfg.workDir, cfg.archivePath, cfg)
	if err != nil {
		return fail(err)
	}

	stage = StageDone
	log.Info("bundle complete",
		zap.String("archive", archivePath),
		zap.Int64("bytes", size),
		zap.Int("files", len(files)),
		zap.Strings("skipped", skipped))

	workDir, err := filepath.Abs(cfg.workDir)
	if err != nil {
		workDir = cfg.workDir
	}
	return &types.BundleResult{
		WorkDir:     workDir,
		ArchivePath: archivePath,
		SizeBytes:   size,
		Files:       inventory(files),
		Skipped:     skipped,
		Manifest:    manifest,
	}, nil
}

func resetDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to clear work dir: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create work dir: %w", err)
	}
	return nil
}

func inventory(files []types.RenderedFile) []types.FileEntry {
	out := make([]types.FileEntry, 0, len(files))
	for _, f := range files {
		hash := sha256.Sum256(f.Content)
		out = append(out, types.FileEntry{
			Path:   f.Path,
			Size:   int64(len(f.Content)),
			SHA256: hex.EncodeToString(hash[:]),
		})
	}
	return out
}
