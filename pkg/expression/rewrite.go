// Package expression rewrites Make.com inline expressions into n8n expression syntax.
//
// Rewriting is syntactic and best-effort: a fixed catalog of value-reference shapes and
// function names is recognized, anything else is replaced by a REVIEW_EXPRESSION
// placeholder and reported back to the caller.
package expression

import (
	"regexp"
	"strings"
)

// ReviewMarker prefixes the placeholder substituted for unconvertible expressions.
const ReviewMarker = "REVIEW_EXPRESSION"

var (
	embeddedPattern     = regexp.MustCompile(`\{\{(.*?)\}\}`)
	fullPattern         = regexp.MustCompile(`^\{\{(.*)\}\}$`)
	directAccessPattern = regexp.MustCompile(`^(\d+\.|\$\w+\.)`)
	arrayIndexPattern   = regexp.MustCompile(`\[\d+\]`)
)

// Result is a rewritten value together with the expressions that could not be converted.
type Result struct {
	Value         any
	Unconvertible []string
}

// Rewrite converts the Make.com expressions embedded in a parameter value.
// Non-string values and strings without expressions are returned unchanged.
func Rewrite(value any) Result {
	s, ok := value.(string)
	if !ok {
		return Result{Value: value}
	}

	if match := fullPattern.FindStringSubmatch(s); match != nil && isSingle(match[1]) {
		rewritten, diagnostics := RewriteContent(strings.TrimSpace(match[1]), true)

		return Result{Value: rewritten, Unconvertible: diagnostics}
	}

	spans := embeddedPattern.FindAllStringSubmatchIndex(s, -1)
	if len(spans) == 0 {
		return Result{Value: s}
	}

	var (
		b           strings.Builder
		diagnostics []string
		last        int
	)

	for _, span := range spans {
		b.WriteString(s[last:span[0]])

		rewritten, diags := RewriteContent(strings.TrimSpace(s[span[2]:span[3]]), false)
		b.WriteString(rewritten)

		diagnostics = append(diagnostics, diags...)
		last = span[1]
	}

	b.WriteString(s[last:])

	return Result{Value: b.String(), Unconvertible: diagnostics}
}

// RewriteContent converts the inner content of one expression. When fullValue is set the
// result is marked as making the whole field dynamic.
func RewriteContent(content string, fullValue bool) (string, []string) {
	if directAccessPattern.MatchString(content) {
		return wrap(content, fullValue), nil
	}

	rewritten, diagnostics := rewriteFunctions(content)

	if arrayIndexPattern.MatchString(rewritten) || strings.HasPrefix(rewritten, "$") {
		return wrap(rewritten, fullValue), diagnostics
	}

	original := "{{" + content + "}}"
	diagnostics = append(diagnostics, "Potentially unconvertible expression: "+original)

	return "/* " + ReviewMarker + ": " + original + " */", diagnostics
}

// IsExpression reports whether a string contains at least one Make.com expression.
func IsExpression(s string) bool {
	return embeddedPattern.MatchString(s)
}

func wrap(content string, fullValue bool) string {
	if fullValue {
		return "={{ " + content + " }}"
	}

	return "{{ " + content + " }}"
}

// isSingle rejects "{{a}} text {{b}}", which is wrapped at both ends but holds two expressions.
func isSingle(inner string) bool {
	return !strings.Contains(inner, "}}") && !strings.Contains(inner, "{{")
}
