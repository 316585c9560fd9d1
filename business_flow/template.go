package businessflow

import (
	"regexp"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)

// RenderTemplate substitutes {{variable}} placeholders in a template body.
// Declared variables missing from the value map render as empty strings;
// placeholders that are neither declared nor supplied stay untouched.
func RenderTemplate(content string, declared []string, values map[string]string) string {
	known := make(map[string]struct{}, len(declared))
	for _, v := range declared {
		known[strings.TrimSpace(v)] = struct{}{}
	}

	return placeholderPattern.ReplaceAllStringFunc(content, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]
		if value, ok := values[name]; ok {
			return value
		}
		if _, ok := known[name]; ok {
			return ""
		}
		return match
	})
}

// ExtractTemplateVariables lists the distinct placeholder names in a template
// body, in order of first appearance.
func ExtractTemplateVariables(content string) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, m := range placeholderPattern.FindAllStringSubmatch(content, -1) {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		names = append(names, m[1])
	}
	return names
}
