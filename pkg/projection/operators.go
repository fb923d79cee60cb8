package projection

// UnknownOperator marks a branch operator with no n8n counterpart.
const UnknownOperator = "unknown"

var operators = map[string]string{
	"equal":              "equal",
	"notEqual":           "notEqual",
	"greaterThan":        "larger",
	"greaterThanOrEqual": "largerEqual",
	"lessThan":           "smaller",
	"lessThanOrEqual":    "smallerEqual",
	"contains":           "contains",
	"notContains":        "notContains",
	"startsWith":         "startsWith",
	"notStartsWith":      "notStartsWith",
	"endsWith":           "endsWith",
	"notEndsWith":        "notEndsWith",
	"isEmpty":            "empty",
	"notEmpty":           "notEmpty",
	"in":                 "in",
	"notIn":              "notIn",
	"regex":              "regex",
}

// TranslateOperator returns the n8n operation for a branch operator, or UnknownOperator.
func TranslateOperator(operator string) string {
	if translated, ok := operators[operator]; ok {
		return translated
	}

	return UnknownOperator
}
