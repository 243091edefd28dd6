package confluence

import (
	"bytes"
	"fmt"
	"os"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// RenderPageTemplate renders a storage-format page body from a template
// file and a set of variables.
func RenderPageTemplate(path string, vars map[string]any) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", opErr(fmt.Sprintf("read template %s", path), err)
	}
	return RenderTemplate(string(raw), vars)
}

// RenderTemplate renders template text with the sprig function set.
// References to variables that were not supplied fail the render.
func RenderTemplate(text string, vars map[string]any) (string, error) {
	tmpl, err := template.New("page").Funcs(sprig.FuncMap()).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", opErr("parse template", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", opErr("render template", err)
	}
	return buf.String(), nil
}
