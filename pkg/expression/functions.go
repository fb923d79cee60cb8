package expression

import (
	"regexp"
	"strings"
)

// Function pairs a Make.com function name with the n8n call head that replaces it.
type Function struct {
	Source string
	Target string

	call *regexp.Regexp
	head *regexp.Regexp
}

func newFunction(source, target string) Function {
	quoted := regexp.QuoteMeta(source)

	return Function{
		Source: source,
		Target: target,
		call:   regexp.MustCompile(quoted + `\((.*?)\)`),
		head:   regexp.MustCompile(quoted + `\(`),
	}
}

// Functions is the fixed rewrite catalog, applied in this order.
var Functions = []Function{
	newFunction("parseDate", "new Date"),
	newFunction("formatDate", "$items[0].json.date ? $items[0].json.date.toISOString() : ''"),
	newFunction("toString", "String"),
	newFunction("toNumber", "Number"),
	newFunction("sum", "reduce((accumulator, currentValue) => accumulator + currentValue, 0)"),
	newFunction("substring", "substring"),
	newFunction("replace", "replace"),
	newFunction("length", "length"),
	newFunction("lower", "toLowerCase"),
	newFunction("upper", "toUpperCase"),
	newFunction("trim", "trim"),
	newFunction("split", "split"),
	newFunction("join", "join"),
}

// rewriteFunctions replaces every recognized call head, keeping argument lists untouched.
// A call head without a closing parenthesis is reported and left as is.
func rewriteFunctions(content string) (string, []string) {
	var diagnostics []string

	for _, fn := range Functions {
		if !fn.head.MatchString(content) {
			continue
		}

		if !fn.call.MatchString(content) {
			diagnostics = append(diagnostics, "Error converting function "+fn.Source+": unterminated argument list in {{"+content+"}}")

			continue
		}

		content = fn.call.ReplaceAllString(content, strings.ReplaceAll(fn.Target, "$", "$$")+"(${1})")
	}

	return content, diagnostics
}
