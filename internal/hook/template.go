// Package hook renders and executes the user-supplied lifecycle commands
// (install, update, extract, uninstall) a binary can configure. Commands
// are templates over the platform facts plus call-site values, and run
// through an embedded POSIX shell interpreter rather than an external
// /bin/sh, so hooks behave identically everywhere the tool runs.
package hook

import (
	"fmt"
	"strings"
	"text/template"
)

// Render expands a hook command template with the given values. Templates
// use the standard {{.key}} syntax; referencing a key absent from data is
// an error rather than silently producing "<no value>".
func Render(tmpl string, data map[string]string) (string, error) {
	t, err := template.New("hook").Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("parse hook template %q: %w", tmpl, err)
	}

	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("render hook template %q: %w", tmpl, err)
	}
	return sb.String(), nil
}
