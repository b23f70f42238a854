package bundler

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/mrhapile/metadeploy/pkg/types"
)

// Render writes every supported entity below root and returns the files
// written. Entities with an unknown type are logged and skipped.
func Render(entities []types.MetadataEntity, root string, opts ...Option) ([]types.RenderedFile, error) {
	files, _, err := render(entities, root, newConfig(opts))
	return files, err
}

func render(entities []types.MetadataEntity, root string, cfg *config) ([]types.RenderedFile, []string, error) {
	layout := newLayout()
	var skipped []string

	for _, e := range entities {
		targets, ok := entityTargets(e)
		if !ok {
			cfg.logger.Warn("skipping entity",
				zap.String("type", e.Type),
				zap.String("name", e.Name),
				zap.Error(ErrUnsupportedEntityType))
			skipped = append(skipped, e.Type)
			continue
		}
		for _, t := range targets {
			if !filepath.IsLocal(filepath.FromSlash(t.path)) {
				return nil, nil, fmt.Errorf("%s %q resolves outside the work dir: %s", e.Type, e.Name, t.path)
			}
			layout.addFile(t.path, []byte(t.content))
		}
	}

	files := layout.renderedFiles()
	for _, f := range files {
		if err := writeFile(root, f); err != nil {
			return nil, nil, err
		}
		cfg.logger.Debug("rendered file", zap.String("path", f.Path), zap.Int("bytes", len(f.Content)))
	}
	return files, skipped, nil
}

// writeFile creates parent directories and overwrites any existing file.
func writeFile(root string, f types.RenderedFile) error {
	full := filepath.Join(root, filepath.FromSlash(f.Path))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", f.Path, err)
	}
	if err := os.WriteFile(full, f.Content, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", f.Path, err)
	}
	return nil
}
