package partial

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/simonhull/firebird-suite/roost/internal/apperr"
	"github.com/simonhull/firebird-suite/roost/internal/feature"
	"github.com/simonhull/firebird-suite/roost/internal/filesystem"
	"github.com/simonhull/firebird-suite/roost/internal/logger"
	"github.com/simonhull/firebird-suite/roost/internal/render"
)

// Pending is the deferred partial work of one applied feature
type Pending struct {
	TargetDir    string // working directory on disk
	SourceDir    string // feature directory inside the template filesystem
	Partials     feature.PartialSet
	FeatureName  feature.ID
	Architecture feature.Architecture
	Config       map[string]any
	AllFeatures  []string
}

// Merger executes pending partials against files on disk
type Merger struct {
	fsys     fs.FS
	renderer *render.Renderer
	log      logger.Logger
}

// NewMerger creates a merger reading fragments from fsys
func NewMerger(fsys fs.FS, renderer *render.Renderer, log logger.Logger) *Merger {
	if log == nil {
		log = logger.NewSilentLogger()
	}
	return &Merger{
		fsys:     fsys,
		renderer: renderer,
		log:      log.WithFields(logger.F("component", "partial")),
	}
}

// Merge runs every partial of every pending entry in queue order. Partials
// gated on features missing from applied are skipped, as are partials whose
// fragment or target file does not exist. Render and write failures abort.
func (m *Merger) Merge(pending []Pending, applied *feature.AppliedSet) error {
	for _, p := range pending {
		for _, part := range p.Partials {
			if !applied.HasAll(part.OnlyIfFeatures) {
				m.log.Debug("partial gated off",
					logger.F("feature", p.FeatureName),
					logger.F("partial", part.Name),
					logger.F("onlyIfFeatures", part.OnlyIfFeatures))
				continue
			}
			if err := m.apply(p, part); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *Merger) apply(p Pending, part feature.Partial) error {
	sourcePath := path.Join(p.SourceDir, part.Source)
	targetPath := filepath.Join(p.TargetDir, filepath.FromSlash(part.Target))

	fragment, err := fs.ReadFile(m.fsys, sourcePath)
	if errors.Is(err, fs.ErrNotExist) {
		m.log.Debug("partial source missing", logger.F("feature", p.FeatureName), logger.F("source", sourcePath))
		return nil
	}
	if err != nil {
		return apperr.FileSystem("reading partial source", sourcePath, err)
	}

	target, err := os.ReadFile(targetPath)
	if errors.Is(err, fs.ErrNotExist) {
		m.log.Debug("partial target missing", logger.F("feature", p.FeatureName), logger.F("target", part.Target))
		return nil
	}
	if err != nil {
		return apperr.FileSystem("reading partial target", targetPath, err)
	}

	rendered, err := m.renderer.Render(sourcePath, string(fragment), render.Context{
		AllFeatures: p.AllFeatures,
		Config:      p.Config,
		FeatureName: string(p.FeatureName),
	})
	if err != nil {
		return err
	}

	updated := Splice(rendered, string(target), part.Placeholders)
	if updated == string(target) {
		return nil
	}

	if err := filesystem.WriteFileAtomic(targetPath, []byte(updated), 0o644); err != nil {
		return apperr.FileSystem("writing partial target", targetPath, err)
	}

	m.log.Debug("partial merged",
		logger.F("feature", p.FeatureName),
		logger.F("partial", part.Name),
		logger.F("target", part.Target))
	return nil
}
