// Package gateargs parses the free-text argument column of a gating
// template into an ordered list of named values.
//
// Two modes exist. Split mode handles ordinary methods, whose argument
// text is a comma-separated list of name=value pairs with HCL-expression
// values. Deferred mode handles reference-family methods, whose argument
// text is a dependency expression (`cd3&cd4`, `a:b:c`); that text may
// contain characters like `!`, `&`, `|` and `:` that are not valid in an
// expression, so it is captured verbatim and resolved later by the graph
// builder.
package gateargs

import (
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
)

// ParseError reports a malformed argument expression, carrying the
// underlying syntax diagnostic.
type ParseError struct {
	Text string
	Diag string
}

// Error implements the error interface for ParseError.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing arguments %q: %s", e.Text, e.Diag)
}

// Arg is a single parsed argument. Unnamed arguments keep an empty Name.
// Value holds the literal cty value when the expression evaluates without
// a scope; bare symbols and calls fall back to their source text as a
// string value, with Symbolic set.
type Arg struct {
	Name     string
	Value    cty.Value
	Raw      string
	Symbolic bool
}

// List is an ordered argument list.
type List []Arg

// Map collapses the list into a name-keyed value map. Unnamed entries are
// skipped; later duplicates win.
func (l List) Map() map[string]cty.Value {
	out := make(map[string]cty.Value, len(l))
	for _, a := range l {
		if a.Name == "" {
			continue
		}
		out[a.Name] = a.Value
	}
	return out
}

// Merge layers caller-supplied overrides on top of the stored arguments.
// Keys absent from overrides are left untouched.
func Merge(base List, overrides map[string]cty.Value) map[string]cty.Value {
	merged := base.Map()
	for name, val := range overrides {
		merged[name] = val
	}
	return merged
}

// Parse splits text into comma-separated name=value items and parses each
// value as an HCL expression. Surrounding whitespace is trimmed; an empty
// string yields an empty list.
func Parse(text string) (List, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	var list List
	for _, item := range splitTop(text, ',') {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}

		name := ""
		valText := item
		if eq := indexTop(item, '='); eq >= 0 {
			name = strings.TrimSpace(item[:eq])
			valText = strings.TrimSpace(item[eq+1:])
		}

		arg, err := parseValue(name, valText)
		if err != nil {
			return nil, err
		}
		list = append(list, arg)
	}
	return list, nil
}

// ParseDeferred captures a reference expression without running it through
// the expression parser. An empty string is a ParseError because a
// reference method with no dependency expression is meaningless.
func ParseDeferred(text string) (List, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &ParseError{Text: text, Diag: "empty reference expression"}
	}
	return List{{Name: "", Value: cty.StringVal(text), Raw: text, Symbolic: true}}, nil
}

// parseValue parses one argument value. Syntax errors are fatal; a
// well-formed expression that merely needs a scope (a bare symbol or a
// call) is kept as symbolic text.
func parseValue(name, valText string) (Arg, error) {
	expr, diags := hclsyntax.ParseExpression([]byte(valText), "gating_args", hcl.InitialPos)
	if diags.HasErrors() {
		return Arg{}, &ParseError{Text: valText, Diag: diags.Error()}
	}

	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return Arg{Name: name, Value: cty.StringVal(valText), Raw: valText, Symbolic: true}, nil
	}
	return Arg{Name: name, Value: val, Raw: valText}, nil
}

// splitTop splits s on sep, ignoring separators nested inside quotes,
// parentheses, brackets or braces.
func splitTop(s string, sep byte) []string {
	var parts []string
	start := 0
	depth := 0
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '(' || c == '[' || c == '{':
			depth++
		case c == ')' || c == ']' || c == '}':
			depth--
		case c == sep && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	parts = append(parts, s[start:])
	return parts
}

// indexTop returns the index of the first top-level occurrence of sep, or -1.
func indexTop(s string, sep byte) int {
	head := splitTop(s, sep)[0]
	if len(head) == len(s) {
		return -1
	}
	return len(head)
}
