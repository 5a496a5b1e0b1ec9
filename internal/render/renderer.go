// Package render compiles feature fragments against a generation context
// using text/template and a set of helpers for feature-conditional output.
//
// # Context
//
// Templates see the request config spread at the top level, the same map under
// .config, the current feature's own config section under .feature, plus
// .featureName and .allFeatures:
//
//	{{ if includes .allFeatures "auth:jwt" }}
//	import { JwtModule } from '@nestjs/jwt';
//	{{ end }}
//	app.enableCors({{ json .feature }});
package render

import (
	"bytes"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"text/template"

	"github.com/simonhull/firebird-suite/roost/internal/apperr"
)

// Context is the data a fragment is rendered against
type Context struct {
	AllFeatures []string
	Config      map[string]any
	FeatureName string
}

// Data builds the template data map. Config keys are flattened first so
// the reserved keys always win.
func (c Context) Data() map[string]any {
	data := make(map[string]any, len(c.Config)+4)
	for k, v := range c.Config {
		data[k] = v
	}

	cfg := c.Config
	if cfg == nil {
		cfg = map[string]any{}
	}
	root, _, _ := strings.Cut(c.FeatureName, ":")

	data["config"] = cfg
	// a nil .feature would make chained lookups like .feature.origin fail,
	// a missing one evaluates to no value
	if section, ok := cfg[root]; ok && section != nil {
		data["feature"] = section
	} else {
		delete(data, "feature")
	}
	data["featureName"] = c.FeatureName
	data["allFeatures"] = c.AllFeatures
	return data
}

// Renderer handles template parsing and rendering with caching
type Renderer struct {
	funcMap template.FuncMap
	cache   map[string]*template.Template
	mu      sync.RWMutex
}

// NewRenderer creates a renderer with built-in helper functions
func NewRenderer() *Renderer {
	return &Renderer{
		funcMap: defaultFuncMap(),
		cache:   make(map[string]*template.Template),
	}
}

// Render compiles text and executes it against ctx. name is the fragment's
// source path; it appears in errors and keys the parse cache together with
// a hash of the content.
func (r *Renderer) Render(name, text string, ctx Context) (string, error) {
	tmpl, err := r.parse(name, text)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, ctx.Data()); err != nil {
		return "", apperr.Template(fmt.Sprintf("failed to render template '%s'", name), name, err)
	}
	return buf.String(), nil
}

func (r *Renderer) parse(name, text string) (*template.Template, error) {
	key := cacheKey(name, text)

	r.mu.RLock()
	tmpl, ok := r.cache[key]
	r.mu.RUnlock()
	if ok {
		return tmpl, nil
	}

	tmpl, err := template.New(name).Funcs(r.funcMap).Parse(text)
	if err != nil {
		return nil, apperr.Template(fmt.Sprintf("failed to parse template '%s'", name), name, err)
	}

	r.mu.Lock()
	r.cache[key] = tmpl
	r.mu.Unlock()

	return tmpl, nil
}

// ClearCache clears the template cache
func (r *Renderer) ClearCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = make(map[string]*template.Template)
}

func cacheKey(name, text string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	return fmt.Sprintf("%s:%x", name, h.Sum64())
}
