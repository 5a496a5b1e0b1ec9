package feature

import (
	"fmt"
	"strings"

	"github.com/simonhull/firebird-suite/roost/internal/apperr"
)

// Architecture selects how a project is assembled
type Architecture string

const (
	Monolith     Architecture = "monolith"
	Microservice Architecture = "microservice"
)

// Architectures lists every supported architecture
var Architectures = []Architecture{Monolith, Microservice}

// ParseArchitecture maps a request value to an Architecture. Empty means monolith.
func ParseArchitecture(s string) (Architecture, error) {
	switch Architecture(strings.ToLower(strings.TrimSpace(s))) {
	case "", Monolith:
		return Monolith, nil
	case Microservice:
		return Microservice, nil
	default:
		return "", apperr.Validation(
			fmt.Sprintf("unsupported architecture %q", s),
			map[string]any{"architecture": s, "supported": []string{string(Monolith), string(Microservice)}})
	}
}

func (a Architecture) String() string {
	return string(a)
}

// ModulesDir is the architecture-specific feature root
func (a Architecture) ModulesDir() string {
	return string(a) + "/modules"
}
