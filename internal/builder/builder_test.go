package builder

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/simonhull/firebird-suite/roost/internal/apperr"
	"github.com/simonhull/firebird-suite/roost/internal/deps"
	"github.com/simonhull/firebird-suite/roost/internal/feature"
	"github.com/simonhull/firebird-suite/roost/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const registryJSON = `{
  "metadata": {"version": "1.0.0"},
  "dependencies": {"core": {"@nestjs/common": "^10.0.0"}, "cors": {"cors": "^2.8.5"}},
  "devDependencies": {"cors": {"@types/cors": "^2.8.17"}}
}`

const appModule = `import { Module } from '@nestjs/common';
import { AppController } from './app.controller';

@Module({
  imports: [],
  controllers: [AppController],
})
export class AppModule {}
`

const mainTS = `import { NestFactory } from '@nestjs/core';
import { AppModule } from './app.module';
// <!-- IMPORTS_PLACEHOLDER -->

async function bootstrap() {
  const app = await NestFactory.create(AppModule);
  // <!-- MIDDLEWARE_PLACEHOLDER -->
  await app.listen(3000);
}
bootstrap();
`

func file(s string) *fstest.MapFile {
	return &fstest.MapFile{Data: []byte(s)}
}

func templatesFS() fstest.MapFS {
	return fstest.MapFS{
		"monolith/starter/package.json":      file(`{"name": "starter", "version": "0.0.1", "scripts": {"start": "nest start"}, "dependencies": {"@nestjs/core": "^10.0.0"}}`),
		"monolith/starter/src/app.module.ts": file(appModule),
		"monolith/starter/src/main.ts":       file(mainTS),
		"monolith/starter/.env":              file("PORT=3000\n# <!-- not a line comment -->\n// <!-- ENV_PLACEHOLDER -->\n"),

		"monolith/modules/users/feature.config.json": file(`{
			"dependencyGroups": ["core"],
			"copyFiles": [{"source": "files/users.module.ts", "target": "src/users/users.module.ts"}],
			"updateAppModule": true
		}`),
		"monolith/modules/users/files/users.module.ts": file("export class UsersModule {}\n"),
		"monolith/modules/users/mongodb/feature.config.json": file(`{
			"customDependencies": {"mongoose": ">=8.0.0"},
			"copyFiles": [{"source": "schema.ts", "target": "src/users/schema.ts", "processTemplate": true}]
		}`),
		"monolith/modules/users/mongodb/schema.ts": file(`export const collection = '{{ default "users" .feature.collection }}';`),

		"monolith/modules/a/feature.config.json":     file(`{}`),
		"monolith/modules/a/b/feature.config.json":   file(`{}`),
		"monolith/modules/a/b/c/feature.config.json": file(`{}`),

		"monolith/modules/jwt/feature.config.json":  file(`{"requires": ["users"]}`),
		"monolith/modules/ping/feature.config.json": file(`{"requires": ["pong"]}`),
		"monolith/modules/pong/feature.config.json": file(`{"requires": ["ping"]}`),
		"monolith/modules/broken/feature.config.json": file(`{
			"copyFiles": [{"source": "missing.ts", "target": "src/missing.ts"}]
		}`),
		"monolith/modules/nodesc/README.md": file("no descriptor here"),

		"shared/cors/feature.config.json": file(`{
			"dependencyGroups": ["cors"],
			"partialFiles": {
				"main": {"source": "partials/main.ts", "target": "src/main.ts", "placeholders": ["IMPORTS_PLACEHOLDER", "MIDDLEWARE_PLACEHOLDER"]}
			}
		}`),
		"shared/cors/partials/main.ts": file("// <!-- IMPORTS_PLACEHOLDER -->\n// <!-- MIDDLEWARE_PLACEHOLDER -->\napp.enableCors();\n"),
	}
}

// countingFS counts descriptor opens; it only implements Open so every
// read goes through it.
type countingFS struct {
	fsys fs.FS

	mu    sync.Mutex
	reads map[string]int
}

func (c *countingFS) Open(name string) (fs.File, error) {
	if strings.HasSuffix(name, feature.DescriptorFile) {
		c.mu.Lock()
		c.reads[name]++
		c.mu.Unlock()
	}
	return c.fsys.Open(name)
}

func newBuilder(t *testing.T, fsys fs.FS) *Builder {
	t.Helper()
	reg, err := deps.ParseRegistry([]byte(registryJSON))
	require.NoError(t, err)
	resolver, err := deps.NewResolver(reg, logger.NewSilentLogger())
	require.NoError(t, err)
	return New(fsys, resolver, logger.NewSilentLogger(), Options{})
}

func newTarget(t *testing.T, b *Builder, features ...string) *Target {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "project")
	require.NoError(t, b.CopyStarter("monolith/starter", dir))
	return NewTarget(dir, feature.Monolith, features, nil)
}

func readFile(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(name)))
	require.NoError(t, err)
	return string(data)
}

func TestApplyFeature_WalksPrefixesOnce(t *testing.T) {
	cfs := &countingFS{fsys: templatesFS(), reads: map[string]int{}}
	b := newBuilder(t, cfs)
	target := newTarget(t, b, "a:b:c")

	require.NoError(t, b.ApplyFeature(target, "a:b:c"))

	assert.Equal(t, []feature.ID{"a", "a:b", "a:b:c"}, target.Applied.List())
	assert.Equal(t, map[string]int{
		"monolith/modules/a/feature.config.json":     1,
		"monolith/modules/a/b/feature.config.json":   1,
		"monolith/modules/a/b/c/feature.config.json": 1,
	}, cfs.reads)

	require.NoError(t, b.ApplyFeature(target, "a:b"))
	assert.Equal(t, 3, target.Applied.Len())
	assert.Equal(t, 1, cfs.reads["monolith/modules/a/feature.config.json"])
}

func TestApplyFeature_FilesDependenciesAndModuleIndex(t *testing.T) {
	b := newBuilder(t, templatesFS())
	target := newTarget(t, b, "users:mongodb")
	target.Config["users"] = map[string]any{"collection": "people"}

	require.NoError(t, b.ApplyFeature(target, "users:mongodb"))

	assert.Equal(t, "export class UsersModule {}\n", readFile(t, target.Dir, "src/users/users.module.ts"))
	assert.Equal(t, "export const collection = 'people';", readFile(t, target.Dir, "src/users/schema.ts"))

	pkg := readFile(t, target.Dir, "package.json")
	assert.Less(t, strings.Index(pkg, `"name"`), strings.Index(pkg, `"scripts"`))
	assert.Contains(t, pkg, `"mongoose": ">=8.0.0"`)

	var parsed struct {
		Dependencies map[string]string `json:"dependencies"`
	}
	require.NoError(t, json.Unmarshal([]byte(pkg), &parsed))
	assert.Equal(t, map[string]string{
		"@nestjs/core":   "^10.0.0",
		"@nestjs/common": "^10.0.0",
		"mongoose":       ">=8.0.0",
	}, parsed.Dependencies)

	mod := readFile(t, target.Dir, "src/app.module.ts")
	assert.Contains(t, mod, "import { Module } from '@nestjs/common';\nimport { UsersModule } from './users/users.module';\n")
	assert.Contains(t, mod, "UsersModule,\n  ]")
}

func TestApplyFeature_RequiresAppliedFirst(t *testing.T) {
	b := newBuilder(t, templatesFS())
	target := newTarget(t, b, "jwt")

	require.NoError(t, b.ApplyFeature(target, "jwt"))

	assert.Equal(t, []feature.ID{"users", "jwt"}, target.Applied.List())
}

func TestApplyFeature_RequirementCycle(t *testing.T) {
	b := newBuilder(t, templatesFS())
	target := newTarget(t, b, "ping")

	err := b.ApplyFeature(target, "ping")

	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrDependency)
	assert.Contains(t, err.Error(), "ping -> pong -> ping")
	assert.Zero(t, target.Applied.Len())
}

func TestApplyFeature_NotFound(t *testing.T) {
	b := newBuilder(t, templatesFS())
	target := newTarget(t, b, "users:postgres")

	err := b.ApplyFeature(target, "users:postgres")

	assert.ErrorIs(t, err, apperr.ErrFeatureNotFound)
	assert.Equal(t, []feature.ID{"users"}, target.Applied.List())
}

func TestApplyFeature_MissingCopySource(t *testing.T) {
	b := newBuilder(t, templatesFS())
	target := newTarget(t, b, "broken")

	err := b.ApplyFeature(target, "broken")

	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.CodeFileSystem, appErr.Code)
	assert.Contains(t, appErr.Message, `"broken"`)
	assert.Equal(t, "monolith/modules/broken/missing.ts", appErr.Details["filePath"])
	assert.False(t, target.Applied.Has("broken"))
}

func TestApplyFeature_NoDescriptorStillApplied(t *testing.T) {
	b := newBuilder(t, templatesFS())
	target := newTarget(t, b, "nodesc")

	require.NoError(t, b.ApplyFeature(target, "nodesc"))

	assert.True(t, target.Applied.Has("nodesc"))
}

func TestApplyFeature_PartialsDeferredUntilMerge(t *testing.T) {
	b := newBuilder(t, templatesFS())
	target := newTarget(t, b, "cors")

	require.NoError(t, b.ApplyFeature(target, "cors"))
	assert.Equal(t, mainTS, readFile(t, target.Dir, "src/main.ts"))
	require.Len(t, target.Pending, 1)
	assert.Equal(t, "shared/cors", target.Pending[0].SourceDir)

	require.NoError(t, b.MergePartials(target))
	assert.Empty(t, target.Pending)
	assert.Contains(t, readFile(t, target.Dir, "src/main.ts"), "// <!-- MIDDLEWARE_PLACEHOLDER -->\napp.enableCors();\n")

	pkg := readFile(t, target.Dir, "package.json")
	assert.Contains(t, pkg, `"cors": "^2.8.5"`)
	assert.Contains(t, pkg, `"devDependencies": {`)
}

func TestRenameManifest(t *testing.T) {
	b := newBuilder(t, templatesFS())
	target := newTarget(t, b)

	require.NoError(t, b.RenameManifest(target.Dir, "my-api"))

	pkg := readFile(t, target.Dir, "package.json")
	assert.True(t, strings.HasPrefix(pkg, "{\n  \"name\": \"my-api\",\n  \"version\": \"0.0.1\","), pkg)
}

func TestRenameManifest_Missing(t *testing.T) {
	b := newBuilder(t, templatesFS())

	err := b.RenameManifest(t.TempDir(), "x")

	assert.ErrorIs(t, err, apperr.ErrFileSystem)
}

func TestFinalize(t *testing.T) {
	b := newBuilder(t, templatesFS())
	target := newTarget(t, b, "cors")
	require.NoError(t, b.ApplyFeature(target, "cors"))
	require.NoError(t, b.MergePartials(target))

	data, err := b.Finalize(target.Dir)
	require.NoError(t, err)
	assert.NoDirExists(t, target.Dir)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	contents := map[string]string{}
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
		rc, err := f.Open()
		require.NoError(t, err)
		var buf bytes.Buffer
		_, err = buf.ReadFrom(rc)
		require.NoError(t, err)
		rc.Close()
		contents[f.Name] = buf.String()
	}

	assert.Equal(t, []string{".env", "package.json", "src/app.module.ts", "src/main.ts"}, names)
	for name, content := range contents {
		assert.NotContains(t, content, "// <!--", name)
	}
	assert.Contains(t, contents["src/main.ts"], "app.enableCors();\n  await app.listen(3000);")
	assert.Equal(t, "PORT=3000\n# <!-- not a line comment -->\n", contents[".env"])
}
