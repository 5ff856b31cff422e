package web

import (
	"embed"
	"html/template"
	"io"
)

//go:embed templates/*.html
var templateFS embed.FS

// Pages holds the parsed page templates, keyed by file name without extension.
type Pages struct {
	tmpl *template.Template
}

func Load() (*Pages, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	return &Pages{tmpl: tmpl}, nil
}

func (p *Pages) Render(w io.Writer, name string, data any) error {
	return p.tmpl.ExecuteTemplate(w, name+".html", data)
}
