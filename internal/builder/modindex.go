package builder

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/simonhull/firebird-suite/roost/internal/feature"
	"github.com/simonhull/firebird-suite/roost/internal/render"
)

var (
	firstImport      = regexp.MustCompile(`(?m)^import[^;]*;`)
	moduleImportsKey = regexp.MustCompile(`@Module\(\s*\{[\s\S]*?imports\s*:\s*\[`)

	errNoImportsArray = errors.New("no @Module imports array")
)

// moduleRef names the module class a feature generates and its import path.
// "users" → UsersModule from './users/users.module'.
func moduleRef(id feature.ID) (className, importPath string) {
	segs := id.Segments()
	last := segs[len(segs)-1]
	return render.PascalCase(last) + "Module", "./" + id.Path() + "/" + last + ".module"
}

// registerModule adds an import line after the first import statement and
// appends the class to the @Module imports array. Already registered parts
// are left alone, so repeated calls are no-ops.
func registerModule(src string, id feature.ID) (string, error) {
	className, importPath := moduleRef(id)

	loc := moduleImportsKey.FindStringIndex(src)
	if loc == nil {
		return src, errNoImportsArray
	}
	open := loc[1] - 1
	closing := matchBracket(src, open)
	if closing < 0 {
		return src, fmt.Errorf("unterminated @Module imports array")
	}

	inner := src[open+1 : closing]
	if !regexp.MustCompile(`\b` + regexp.QuoteMeta(className) + `\b`).MatchString(inner) {
		head := strings.TrimRight(inner, " \t\r\n")
		if needsComma(head) {
			head += ","
		}
		src = src[:open+1] + head + "\n    " + className + ",\n  " + src[closing:]
	}

	importLine := fmt.Sprintf("import { %s } from '%s';", className, importPath)
	if strings.Contains(src, importLine) {
		return src, nil
	}
	if m := firstImport.FindStringIndex(src); m != nil {
		return src[:m[1]] + "\n" + importLine + src[m[1]:], nil
	}
	return importLine + "\n" + src, nil
}

// needsComma reports whether the last array element in head, ignoring
// line comments, lacks a trailing comma
func needsComma(head string) bool {
	lines := strings.Split(head, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		return !strings.HasSuffix(line, ",")
	}
	return false
}

// matchBracket returns the index of the ']' closing the '[' at open, or -1
func matchBracket(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
