// Package strategy decides how many target directories a project has and in
// which order features are applied to each, delegating file work to the
// builder.
package strategy

import (
	"context"
	"fmt"
	"maps"
	"os"

	"github.com/simonhull/firebird-suite/roost/internal/apperr"
	"github.com/simonhull/firebird-suite/roost/internal/builder"
	"github.com/simonhull/firebird-suite/roost/internal/feature"
	"github.com/simonhull/firebird-suite/roost/internal/logger"
)

// Starter directories inside the template filesystem
const (
	MonolithStarter        = "monolith/starter"
	GatewayStarter         = "microservice/starter/api-gateway"
	ServiceTemplateStarter = "microservice/starter/service-template"

	GatewayService = "api-gateway"
)

// Strategy generates a project archive for one architecture
type Strategy interface {
	Generate(ctx context.Context, req Request) ([]byte, error)
}

// For returns the strategy for every supported architecture
func For(b *builder.Builder, workDir string, log logger.Logger) map[feature.Architecture]Strategy {
	return map[feature.Architecture]Strategy{
		feature.Monolith:     NewMonolith(b, workDir, log),
		feature.Microservice: NewMicroservice(b, workDir, log),
	}
}

// workspace creates a fresh working directory under workDir
func workspace(workDir, pattern string) (string, error) {
	if workDir != "" {
		if err := os.MkdirAll(workDir, 0o755); err != nil {
			return "", apperr.FileSystem("creating work directory", workDir, err)
		}
	}
	dir, err := os.MkdirTemp(workDir, pattern)
	if err != nil {
		return "", apperr.FileSystem("creating working directory", workDir, err)
	}
	return dir, nil
}

// applyAll applies features to t in order, checking ctx between features
func applyAll(ctx context.Context, b *builder.Builder, t *builder.Target, features []string) error {
	for _, f := range features {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("generation cancelled: %w", err)
		}
		if err := b.ApplyFeature(t, feature.ID(f)); err != nil {
			return err
		}
	}
	return nil
}

// mergeConfig overlays service settings on the request config, one level deep
func mergeConfig(base, top map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(top))
	maps.Copy(out, base)
	maps.Copy(out, top)
	return out
}
