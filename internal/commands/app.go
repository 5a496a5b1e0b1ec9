package commands

import (
	"fmt"
	"io/fs"
	"os"

	"github.com/simonhull/firebird-suite/roost/internal/builder"
	"github.com/simonhull/firebird-suite/roost/internal/config"
	"github.com/simonhull/firebird-suite/roost/internal/deps"
	"github.com/simonhull/firebird-suite/roost/internal/generation"
	"github.com/simonhull/firebird-suite/roost/internal/logger"
	"github.com/simonhull/firebird-suite/roost/internal/strategy"
	"github.com/simonhull/firebird-suite/roost/templates"
)

// app is the wired generation stack shared by serve and generate
type app struct {
	templates fs.FS
	jobs      *generation.Service
}

// templateFS returns the configured template pack, or the embedded one
func templateFS(c *config.Config) (fs.FS, error) {
	if c.TemplatesDir == "" {
		return templates.FS, nil
	}
	info, err := os.Stat(c.TemplatesDir)
	if err != nil {
		return nil, fmt.Errorf("templates_dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("templates_dir %s is not a directory", c.TemplatesDir)
	}
	return os.DirFS(c.TemplatesDir), nil
}

func newApp(c *config.Config, log logger.Logger) (*app, error) {
	tfs, err := templateFS(c)
	if err != nil {
		return nil, err
	}

	registry, err := deps.LoadRegistry(tfs, deps.RegistryFile)
	if err != nil {
		return nil, err
	}
	resolver, err := deps.NewResolver(registry, log)
	if err != nil {
		return nil, err
	}

	b := builder.New(tfs, resolver, log, c.BuilderOptions())
	jobs := generation.NewService(strategy.For(b, c.WorkDir, log), generation.Options{
		Retention: c.Jobs.Retention,
		Log:       log,
	})

	log.Debug("generation stack ready",
		logger.F("templates", describeTemplates(c)),
		logger.F("work_dir", c.WorkDir))
	return &app{templates: tfs, jobs: jobs}, nil
}

func describeTemplates(c *config.Config) string {
	if c.TemplatesDir == "" {
		return "embedded"
	}
	return c.TemplatesDir
}
