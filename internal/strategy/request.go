package strategy

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/simonhull/firebird-suite/roost/internal/apperr"
	"github.com/simonhull/firebird-suite/roost/internal/feature"
)

// Request describes one project to generate
type Request struct {
	ProjectName  string             `json:"projectName" yaml:"projectName" validate:"required,min=3,max=214"`
	Architecture string             `json:"architecture,omitempty" yaml:"architecture,omitempty" validate:"architecture"`
	Features     []string           `json:"features,omitempty" yaml:"features,omitempty" validate:"dive,required"`
	Config       map[string]any     `json:"config,omitempty" yaml:"config,omitempty"`
	Services     map[string]Service `json:"services,omitempty" yaml:"services,omitempty" validate:"dive"`
}

// Service is one service of a microservice request
type Service struct {
	Features []string       `json:"features" yaml:"features" validate:"dive,required"`
	Config   map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// same rule as Arch, so anything Validate accepts also parses
	_ = v.RegisterValidation("architecture", func(fl validator.FieldLevel) bool {
		_, err := feature.ParseArchitecture(fl.Field().String())
		return err == nil
	})
	return v
}

// Arch returns the parsed architecture; empty means monolith
func (r *Request) Arch() (feature.Architecture, error) {
	return feature.ParseArchitecture(r.Architecture)
}

// ServiceNames returns the service names in processing order
func (r *Request) ServiceNames() []string {
	names := make([]string, 0, len(r.Services))
	for name := range r.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks the request shape. Failures are validation errors whose
// details list every offending field.
func (r *Request) Validate() error {
	var problems []map[string]any

	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return apperr.Validation(err.Error(), nil)
		}
		for _, fe := range verrs {
			problems = append(problems, map[string]any{
				"field": strings.TrimPrefix(fe.Namespace(), "Request."),
				"rule":  fe.Tag(),
				"param": fe.Param(),
			})
		}
	}

	arch, err := r.Arch()
	if err == nil && arch == feature.Microservice && len(r.Services) == 0 {
		problems = append(problems, map[string]any{"field": "services", "rule": "required"})
	}

	for _, name := range r.ServiceNames() {
		if reason := invalidServiceName(name); reason != "" {
			problems = append(problems, map[string]any{"field": "services." + name, "rule": reason})
		}
	}

	for _, f := range r.allFeatures() {
		if f == "" {
			continue
		}
		if err := feature.ID(f).Validate(); err != nil {
			problems = append(problems, map[string]any{"field": "features", "rule": "featureId", "param": f})
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return apperr.Validation(
		fmt.Sprintf("invalid generation request: %d problem(s)", len(problems)),
		map[string]any{"errors": problems})
}

func (r *Request) allFeatures() []string {
	out := append([]string(nil), r.Features...)
	for _, name := range r.ServiceNames() {
		out = append(out, r.Services[name].Features...)
	}
	return out
}

func invalidServiceName(name string) string {
	switch {
	case strings.TrimSpace(name) == "":
		return "nonEmpty"
	case name == "." || name == "..":
		return "notRelative"
	case strings.ContainsAny(name, `/\`):
		return "noPathSeparators"
	}
	return ""
}
