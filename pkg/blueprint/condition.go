package blueprint

import (
	"strings"

	"github.com/dukex/flowbridge/pkg/models"
)

// filterOperators normalizes Make's native filter operators to the canonical names
// used by route conditions.
var filterOperators = map[string]string{
	"text:equal":            "equal",
	"text:equal:ci":         "equal",
	"text:notequal":         "notEqual",
	"text:notequal:ci":      "notEqual",
	"text:contain":          "contains",
	"text:contain:ci":       "contains",
	"text:notcontain":       "notContains",
	"text:notcontain:ci":    "notContains",
	"text:startwith":        "startsWith",
	"text:startwith:ci":     "startsWith",
	"text:notstartwith":     "notStartsWith",
	"text:notstartwith:ci":  "notStartsWith",
	"text:endwith":          "endsWith",
	"text:endwith:ci":       "endsWith",
	"text:notendwith":       "notEndsWith",
	"text:notendwith:ci":    "notEndsWith",
	"text:pattern":          "regex",
	"text:pattern:ci":       "regex",
	"number:equal":          "equal",
	"number:notequal":       "notEqual",
	"number:greater":        "greaterThan",
	"number:greaterorequal": "greaterThanOrEqual",
	"number:less":           "lessThan",
	"number:lessorequal":    "lessThanOrEqual",
	"date:equal":            "equal",
	"date:notequal":         "notEqual",
	"date:greater":          "greaterThan",
	"date:greaterorequal":   "greaterThanOrEqual",
	"date:less":             "lessThan",
	"date:lessorequal":      "lessThanOrEqual",
	"array:contain":         "contains",
	"array:notcontain":      "notContains",
	"exist":                 "notEmpty",
	"notexist":              "isEmpty",
	"boolean:equal":         "equal",
	"boolean:notequal":      "notEqual",
}

// routeCondition returns the single binary predicate of a route, if it exposes one.
// The explicit route condition wins over a filter on the route's first module.
func routeCondition(route map[string]any, routeFlow []any) *models.Condition {
	if cond, ok := route["condition"].(map[string]any); ok {
		op1, has1 := cond["operand1"]
		op2, has2 := cond["operand2"]
		operator, hasOp := cond["operator"]

		if has1 && has2 && hasOp {
			name, _ := operator.(string)

			return &models.Condition{Operand1: op1, Operator: name, Operand2: op2}
		}
	}

	if len(routeFlow) == 0 {
		return nil
	}

	first, ok := routeFlow[0].(map[string]any)
	if !ok {
		return nil
	}

	return filterCondition(first)
}

// filterCondition reads `filter.conditions`, an OR-list of AND-lists. Only a single
// group holding a single term with both operands is a binary predicate.
func filterCondition(module map[string]any) *models.Condition {
	filter, ok := module["filter"].(map[string]any)
	if !ok {
		return nil
	}

	groups, ok := filter["conditions"].([]any)
	if !ok || len(groups) != 1 {
		return nil
	}

	terms, ok := groups[0].([]any)
	if !ok || len(terms) != 1 {
		return nil
	}

	term, ok := terms[0].(map[string]any)
	if !ok {
		return nil
	}

	operand1, hasA := term["a"]
	operand2, hasB := term["b"]
	operator, _ := term["o"].(string)

	// unary terms such as exist carry no b
	if !hasA || !hasB || operator == "" {
		return nil
	}

	return &models.Condition{
		Operand1: operand1,
		Operator: normalizeOperator(operator),
		Operand2: operand2,
	}
}

func normalizeOperator(operator string) string {
	if canonical, ok := filterOperators[strings.ToLower(operator)]; ok {
		return canonical
	}

	return operator
}
