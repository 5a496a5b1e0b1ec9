package strategy

import (
	"context"
	"os"

	"github.com/simonhull/firebird-suite/roost/internal/builder"
	"github.com/simonhull/firebird-suite/roost/internal/feature"
	"github.com/simonhull/firebird-suite/roost/internal/logger"
)

// Monolith builds a single project directory
type Monolith struct {
	builder *builder.Builder
	workDir string
	log     logger.Logger
}

func NewMonolith(b *builder.Builder, workDir string, log logger.Logger) *Monolith {
	if log == nil {
		log = logger.NewSilentLogger()
	}
	return &Monolith{builder: b, workDir: workDir, log: log.WithFields(logger.F("strategy", "monolith"))}
}

// Generate copies the monolith starter, applies every feature in request
// order against one applied set and merges partials once at the end.
func (m *Monolith) Generate(ctx context.Context, req Request) ([]byte, error) {
	dir, err := workspace(m.workDir, "roost-monolith-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	if err := m.builder.CopyStarter(MonolithStarter, dir); err != nil {
		return nil, err
	}
	if err := m.builder.RenameManifest(dir, req.ProjectName); err != nil {
		return nil, err
	}

	target := builder.NewTarget(dir, feature.Monolith, req.Features, req.Config)
	if err := applyAll(ctx, m.builder, target, req.Features); err != nil {
		return nil, err
	}
	if err := m.builder.MergePartials(target); err != nil {
		return nil, err
	}

	m.log.Debug("project assembled",
		logger.F("project", req.ProjectName),
		logger.F("applied", target.Applied.Len()))

	return m.builder.Finalize(dir)
}
