package strategy

import (
	"context"
	"os"
	"path/filepath"

	"github.com/simonhull/firebird-suite/roost/internal/builder"
	"github.com/simonhull/firebird-suite/roost/internal/feature"
	"github.com/simonhull/firebird-suite/roost/internal/logger"
)

// Microservice builds one directory per declared service under a shared root
type Microservice struct {
	builder *builder.Builder
	workDir string
	log     logger.Logger
}

func NewMicroservice(b *builder.Builder, workDir string, log logger.Logger) *Microservice {
	if log == nil {
		log = logger.NewSilentLogger()
	}
	return &Microservice{builder: b, workDir: workDir, log: log.WithFields(logger.F("strategy", "microservice"))}
}

// Generate builds services in name order. Each service gets its own starter,
// applied set and partial queue, and its partials are merged before the next
// service starts.
func (m *Microservice) Generate(ctx context.Context, req Request) ([]byte, error) {
	root, err := workspace(m.workDir, "roost-microservice-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(root)

	for _, name := range req.ServiceNames() {
		if err := m.buildService(ctx, root, name, req); err != nil {
			return nil, err
		}
	}

	return m.builder.Finalize(root)
}

func (m *Microservice) buildService(ctx context.Context, root, name string, req Request) error {
	svc := req.Services[name]
	dir := filepath.Join(root, name)

	starter := ServiceTemplateStarter
	if name == GatewayService {
		starter = GatewayStarter
	}

	if err := m.builder.CopyStarter(starter, dir); err != nil {
		return err
	}
	if err := m.builder.RenameManifest(dir, name); err != nil {
		return err
	}

	target := builder.NewTarget(dir, feature.Microservice, svc.Features, mergeConfig(req.Config, svc.Config))
	if err := applyAll(ctx, m.builder, target, svc.Features); err != nil {
		return err
	}
	if err := m.builder.MergePartials(target); err != nil {
		return err
	}

	m.log.Debug("service assembled",
		logger.F("service", name),
		logger.F("applied", target.Applied.Len()))
	return nil
}
