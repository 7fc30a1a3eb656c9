package view

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"

	"github.com/labstack/echo/v4"

	"example.com/networth-optimizer/web/internal/catalog"
)

//go:embed templates
var templateFS embed.FS

// Renderer implements echo.Renderer. Each page is parsed together with the
// shared layout and partials.
type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer разбирает встроенные шаблоны страниц.
func NewRenderer(c *catalog.Catalog) (*Renderer, error) {
	pageFiles, err := fs.Glob(templateFS, "templates/pages/*.html")
	if err != nil {
		return nil, err
	}

	funcs := funcMap(c)
	pages := make(map[string]*template.Template, len(pageFiles))
	for _, file := range pageFiles {
		name := path.Base(file)
		tmpl, err := template.New(name).Funcs(funcs).ParseFS(templateFS,
			"templates/layout.html",
			"templates/partials/*.html",
			file,
		)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		pages[name] = tmpl
	}

	return &Renderer{pages: pages}, nil
}

// Render рендерит страницу name (например, "dashboard.html") в layout.
func (r *Renderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	tmpl, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}
	return tmpl.ExecuteTemplate(w, "layout", data)
}

// Has сообщает, есть ли шаблон страницы.
func (r *Renderer) Has(name string) bool {
	_, ok := r.pages[name]
	return ok
}
