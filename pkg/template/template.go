// Package template renders {{resource.field}} tokens in workflow-authored
// text against a resolved entity context.
//
// Unresolved tokens are left verbatim rather than erroring. Workflow authors
// preview templates against partial contexts, so graceful degradation is
// part of the contract.
package template

import (
	"fmt"
	"regexp"
	"strings"
)

// Lookup supplies field values for interpolation.
type Lookup interface {
	Lookup(resource, field string) (any, bool)
}

var tokenPattern = regexp.MustCompile(`\{\{\s*([a-z_]+)\.([a-z_]+)\s*\}\}`)

// Render replaces every {{resource.field}} token that resolves against the
// context. Tokens that do not resolve stay in the output untouched.
func Render(input string, ctx Lookup) string {
	if !strings.Contains(input, "{{") {
		return input
	}

	return tokenPattern.ReplaceAllStringFunc(input, func(token string) string {
		match := tokenPattern.FindStringSubmatch(token)

		value, ok := ctx.Lookup(match[1], match[2])
		if !ok || value == nil {
			return token
		}

		return stringify(value)
	})
}

func stringify(value any) string {
	if s, ok := value.(string); ok {
		return s
	}

	return fmt.Sprintf("%v", value)
}
