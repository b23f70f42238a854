package bundler

import (
	"errors"
	"fmt"
)

// ErrUnsupportedEntityType marks an entity that has no rendering rule. It is
// reported and the entity skipped; it never aborts a build.
var ErrUnsupportedEntityType = errors.New("unsupported entity type")

// MalformedContentError reports a CustomObject whose content could not be
// read as the expected XML document.
type MalformedContentError struct {
	Entity string
	Err    error
}

func (e *MalformedContentError) Error() string {
	return fmt.Sprintf("malformed content for %s: %v", e.Entity, e.Err)
}

func (e *MalformedContentError) Unwrap() error { return e.Err }

// PackagingError reports that the archive could not be produced or verified.
type PackagingError struct {
	Path string
	Err  error
}

func (e *PackagingError) Error() string {
	return fmt.Sprintf("packaging %s: %v", e.Path, e.Err)
}

func (e *PackagingError) Unwrap() error { return e.Err }

// Stage is a step of a single Build run.
type Stage int

const (
	StageIdle Stage = iota
	StageRendering
	StageManifestBuilding
	StagePacking
	StageDone
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageRendering:
		return "rendering"
	case StageManifestBuilding:
		return "manifest"
	case StagePacking:
		return "packing"
	case StageDone:
		return "done"
	case StageFailed:
		return "failed"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// StageError carries the stage a Build failed in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
