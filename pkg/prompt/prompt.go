// Package prompt provides brace-placeholder templates for system and
// user prompts. Placeholders are written {name}; doubled braces render
// as literal braces.
package prompt

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/agentkit-dev/agentkit"
)

var placeholderPattern = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Template is an immutable prompt template.
type Template struct {
	text      string
	variables []string
}

// New parses text and records its placeholder names.
func New(text string) *Template {
	seen := make(map[string]bool)
	var variables []string

	// Doubled braces are literals, not placeholder delimiters.
	scannable := strings.ReplaceAll(strings.ReplaceAll(text, "{{", "\x00"), "}}", "\x01")
	for _, match := range placeholderPattern.FindAllStringSubmatch(scannable, -1) {
		if !seen[match[1]] {
			seen[match[1]] = true
			variables = append(variables, match[1])
		}
	}
	sort.Strings(variables)

	return &Template{text: text, variables: variables}
}

// Variables returns the distinct placeholder names in sorted order.
func (t *Template) Variables() []string {
	out := make([]string, len(t.variables))
	copy(out, t.variables)
	return out
}

// Render substitutes values into the template. Every placeholder must
// be supplied; missing names are reported sorted in a configuration
// error. Extra values are ignored.
func (t *Template) Render(values map[string]string) (string, error) {
	var missing []string
	for _, name := range t.variables {
		if _, ok := values[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return "", agentkit.NewConfigurationError(
			"missing template variables: %s", strings.Join(missing, ", "))
	}

	escaped := strings.ReplaceAll(strings.ReplaceAll(t.text, "{{", "\x00"), "}}", "\x01")
	rendered := placeholderPattern.ReplaceAllStringFunc(escaped, func(m string) string {
		name := m[1 : len(m)-1]
		return values[name]
	})
	rendered = strings.ReplaceAll(strings.ReplaceAll(rendered, "\x00", "{"), "\x01", "}")
	return rendered, nil
}

// MustRender is Render for templates whose values are known complete at
// call time; it panics on missing variables.
func (t *Template) MustRender(values map[string]string) string {
	out, err := t.Render(values)
	if err != nil {
		panic(fmt.Sprintf("prompt: %v", err))
	}
	return out
}
