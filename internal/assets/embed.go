package assets

import (
	"embed"
	"strings"
	"text/template"
)

//go:embed agents/*.md
var Agents embed.FS

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"upper": strings.ToUpper,
	"join":  strings.Join,
	"inc":   func(i int) int { return i + 1 },
}).ParseFS(templateFS, "templates/*.tmpl"))

// Render executes the embedded template with the given name (without the
// .tmpl extension).
func Render(name string, data any) (string, error) {
	var sb strings.Builder
	if err := templates.ExecuteTemplate(&sb, name+".tmpl", data); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// Has reports whether a template with the given name exists.
func Has(name string) bool {
	return templates.Lookup(name+".tmpl") != nil
}
