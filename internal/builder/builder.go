// Package builder assembles one project directory: it copies a starter tree,
// applies features to it one prefix at a time, flushes deferred partials and
// packages the result.
package builder

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/simonhull/firebird-suite/roost/internal/apperr"
	"github.com/simonhull/firebird-suite/roost/internal/deps"
	"github.com/simonhull/firebird-suite/roost/internal/feature"
	"github.com/simonhull/firebird-suite/roost/internal/filesystem"
	"github.com/simonhull/firebird-suite/roost/internal/logger"
	"github.com/simonhull/firebird-suite/roost/internal/partial"
	"github.com/simonhull/firebird-suite/roost/internal/render"
)

const (
	// DefaultManifest is the package manifest renamed per project and merged with resolved dependencies
	DefaultManifest = "package.json"
	// DefaultModuleIndex is the root module that generated modules are registered in
	DefaultModuleIndex = "src/app.module.ts"
)

// markerExtensions are the file types cleaned of leftover markers on finalize
var markerExtensions = map[string]bool{
	".ts": true, ".js": true, ".mjs": true, ".cjs": true,
	".json": true, ".env": true, ".yml": true, ".yaml": true, ".md": true,
}

// Options configures file names inside a generated project
type Options struct {
	ManifestName    string // default package.json
	ModuleIndexPath string // default src/app.module.ts
}

// Builder performs every file mutation of a generation run
type Builder struct {
	fsys     fs.FS
	locator  *feature.Locator
	resolver *deps.Resolver
	renderer *render.Renderer
	merger   *partial.Merger
	log      logger.Logger
	opts     Options
}

// New creates a builder reading templates from fsys
func New(fsys fs.FS, resolver *deps.Resolver, log logger.Logger, opts Options) *Builder {
	if log == nil {
		log = logger.NewSilentLogger()
	}
	if opts.ManifestName == "" {
		opts.ManifestName = DefaultManifest
	}
	if opts.ModuleIndexPath == "" {
		opts.ModuleIndexPath = DefaultModuleIndex
	}

	renderer := render.NewRenderer()
	return &Builder{
		fsys:     fsys,
		locator:  feature.NewLocator(fsys),
		resolver: resolver,
		renderer: renderer,
		merger:   partial.NewMerger(fsys, renderer, log),
		log:      log.WithFields(logger.F("component", "builder")),
		opts:     opts,
	}
}

// Target is the state of one directory being built. Each target owns its
// applied set and partial queue.
type Target struct {
	Dir          string
	Architecture feature.Architecture
	AllFeatures  []string
	Config       map[string]any
	Applied      *feature.AppliedSet
	Pending      []partial.Pending
}

// NewTarget creates a target with an empty applied set
func NewTarget(dir string, arch feature.Architecture, features []string, config map[string]any) *Target {
	if config == nil {
		config = map[string]any{}
	}
	return &Target{
		Dir:          dir,
		Architecture: arch,
		AllFeatures:  features,
		Config:       config,
		Applied:      feature.NewAppliedSet(),
	}
}

// CopyStarter copies starterDir from the template filesystem into dest
func (b *Builder) CopyStarter(starterDir, dest string) error {
	if err := filesystem.CopyTree(b.fsys, starterDir, dest); err != nil {
		return apperr.FileSystem("copying starter template", starterDir, err)
	}
	return nil
}

// RenameManifest sets the manifest's name field, keeping key order
func (b *Builder) RenameManifest(dir, name string) error {
	return b.updateManifest(dir, func(m *manifest) error {
		return m.set("name", name)
	})
}

// ApplyFeature applies each not yet applied prefix of id to t, ancestors
// first. A prefix is marked applied only once all of its work succeeded.
func (b *Builder) ApplyFeature(t *Target, id feature.ID) error {
	return b.apply(t, id, nil)
}

func (b *Builder) apply(t *Target, id feature.ID, chain []feature.ID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	for _, prefix := range id.Prefixes() {
		if t.Applied.Has(prefix) {
			continue
		}
		if err := b.applyPrefix(t, prefix, chain); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) applyPrefix(t *Target, id feature.ID, chain []feature.ID) error {
	for _, c := range chain {
		if c == id {
			cycle := append(feature.Strings(chain), string(id))
			return apperr.Dependency(
				fmt.Sprintf("feature requirement cycle: %s", strings.Join(cycle, " -> ")),
				string(id), nil)
		}
	}

	dir, err := b.locator.Locate(id, t.Architecture)
	if err != nil {
		return err
	}

	log := b.log.WithFields(logger.F("feature", id), logger.F("dir", t.Dir))

	desc, ok, err := feature.ReadDescriptor(b.fsys, dir)
	if err != nil {
		return err
	}
	if !ok {
		log.Warn("feature has no descriptor", logger.F("path", path.Join(dir, feature.DescriptorFile)))
		t.Applied.Add(id)
		return nil
	}

	next := append(chain[:len(chain):len(chain)], id)
	for _, req := range desc.Requires {
		if err := b.apply(t, req, next); err != nil {
			return err
		}
	}

	if set := b.resolver.Resolve(desc.DependencySpec()); !set.Empty() {
		if err := b.mergeDependencies(t.Dir, set); err != nil {
			return err
		}
	}

	if err := b.copyFiles(t, id, dir, desc.CopyFiles); err != nil {
		return err
	}

	if desc.UpdateAppModule {
		if err := b.registerModule(t.Dir, id); err != nil {
			return err
		}
	}

	if len(desc.PartialFiles) > 0 {
		t.Pending = append(t.Pending, partial.Pending{
			TargetDir:    t.Dir,
			SourceDir:    dir,
			Partials:     desc.PartialFiles,
			FeatureName:  id,
			Architecture: t.Architecture,
			Config:       t.Config,
			AllFeatures:  t.AllFeatures,
		})
	}

	t.Applied.Add(id)
	log.Debug("feature applied")
	return nil
}

func (b *Builder) mergeDependencies(dir string, set deps.Set) error {
	return b.updateManifest(dir, func(m *manifest) error {
		if err := m.mergeDeps("dependencies", set.Dependencies); err != nil {
			return err
		}
		return m.mergeDeps("devDependencies", set.DevDependencies)
	})
}

func (b *Builder) copyFiles(t *Target, id feature.ID, dir string, files []feature.CopyFile) error {
	if len(files) == 0 {
		return nil
	}

	tx := filesystem.NewTransaction()
	for _, cf := range files {
		src := path.Join(dir, cf.Source)
		if !filepath.IsLocal(filepath.FromSlash(cf.Target)) {
			return apperr.FileSystem(
				fmt.Sprintf("copy target for feature %q escapes the project", string(id)), cf.Target, nil)
		}

		data, err := fs.ReadFile(b.fsys, src)
		if err != nil {
			e := apperr.FileSystem(fmt.Sprintf("source file for feature %q not found", string(id)), src, err)
			e.Details["featureName"] = string(id)
			return e
		}

		if cf.ProcessTemplate {
			out, err := b.renderer.Render(src, string(data), render.Context{
				AllFeatures: t.AllFeatures,
				Config:      t.Config,
				FeatureName: string(id),
			})
			if err != nil {
				return err
			}
			data = []byte(out)
		}

		tx.AddFile(filepath.Join(t.Dir, filepath.FromSlash(cf.Target)), data, 0o644)
	}

	if err := tx.Commit(); err != nil {
		return apperr.FileSystem(fmt.Sprintf("writing files for feature %q", string(id)), t.Dir, err)
	}
	return nil
}

func (b *Builder) registerModule(dir string, id feature.ID) error {
	p := filepath.Join(dir, filepath.FromSlash(b.opts.ModuleIndexPath))
	src, err := os.ReadFile(p)
	if err != nil {
		return apperr.FileSystem("reading module index", b.opts.ModuleIndexPath, err)
	}

	out, err := registerModule(string(src), id)
	if errors.Is(err, errNoImportsArray) {
		b.log.Warn("module index has no imports array", logger.F("feature", id), logger.F("path", b.opts.ModuleIndexPath))
		return nil
	}
	if err != nil {
		return apperr.FileSystem(err.Error(), b.opts.ModuleIndexPath, nil)
	}
	if out == string(src) {
		return nil
	}

	if err := filesystem.WriteFileAtomic(p, []byte(out), 0o644); err != nil {
		return apperr.FileSystem("writing module index", b.opts.ModuleIndexPath, err)
	}
	return nil
}

// MergePartials flushes t's partial queue against its applied set
func (b *Builder) MergePartials(t *Target) error {
	pending := t.Pending
	t.Pending = nil
	return b.merger.Merge(pending, t.Applied)
}

// Finalize strips leftover markers, zips dir and removes it. dir is removed
// whether or not packaging succeeds.
func (b *Builder) Finalize(dir string) (data []byte, err error) {
	defer func() {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			b.log.Warn("failed to remove working directory", logger.F("dir", dir), logger.Err(rmErr))
		}
	}()

	if err := b.stripMarkers(dir); err != nil {
		return nil, err
	}

	data, err = filesystem.ZipDir(dir)
	if err != nil {
		return nil, apperr.FileSystem("packaging project", dir, err)
	}
	return data, nil
}

func (b *Builder) stripMarkers(dir string) error {
	files, err := filesystem.Files(dir, filesystem.WalkOptions{IgnoreDirs: []string{}, IncludeHidden: true})
	if err != nil {
		return apperr.FileSystem("listing project files", dir, err)
	}

	for _, name := range files {
		base := path.Base(name)
		if !markerExtensions[path.Ext(base)] && !strings.HasPrefix(base, ".env") {
			continue
		}

		p := filepath.Join(dir, filepath.FromSlash(name))
		content, err := os.ReadFile(p)
		if err != nil {
			return apperr.FileSystem("reading project file", name, err)
		}
		cleaned := partial.StripMarkers(string(content))
		if cleaned == string(content) {
			continue
		}
		if err := os.WriteFile(p, []byte(cleaned), 0o644); err != nil {
			return apperr.FileSystem("writing project file", name, err)
		}
	}
	return nil
}

func (b *Builder) updateManifest(dir string, fn func(*manifest) error) error {
	p := filepath.Join(dir, b.opts.ManifestName)
	data, err := os.ReadFile(p)
	if err != nil {
		return apperr.FileSystem("reading manifest", b.opts.ManifestName, err)
	}

	m, err := parseManifest(data)
	if err != nil {
		return apperr.FileSystem("parsing manifest", b.opts.ManifestName, err)
	}
	if err := fn(m); err != nil {
		return apperr.FileSystem("updating manifest", b.opts.ManifestName, err)
	}

	out, err := m.encode()
	if err != nil {
		return apperr.FileSystem("encoding manifest", b.opts.ManifestName, err)
	}
	if err := filesystem.WriteFileAtomic(p, out, 0o644); err != nil {
		return apperr.FileSystem("writing manifest", b.opts.ManifestName, err)
	}
	return nil
}
