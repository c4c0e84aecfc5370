package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	// ViewerKey is the echo context key under which the session middleware
	// stores the logged-in *Viewer.
	ViewerKey = "viewer"
	// CSRFContextKey and CSRFFormField must match the CSRF middleware config.
	CSRFContextKey = "csrf"
	CSRFFormField  = "csrf_token"

	baseTemplate = "base.html"
)

// Viewer is the logged-in user as the layout sees it.
type Viewer struct {
	Username  string
	Role      string
	RoleLabel string
	Staff     bool
	Dashboard string
}

// Page is the root value every template executes against.
type Page struct {
	Title     string
	Viewer    *Viewer
	Flashes   []Message
	CSRFToken string
	CSRFField string
	Data      any
}

// Renderer executes one template set per page, each page sharing base.html.
type Renderer struct {
	pages map[string]*template.Template
}

var funcs = template.FuncMap{
	"date": func(t *time.Time) string {
		if t == nil || t.IsZero() {
			return ""
		}
		return t.Format("Jan 2, 2006")
	},
	"datetime": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("Jan 2, 2006 15:04")
	},
	"lower": strings.ToLower,
}

func NewRenderer() (*Renderer, error) {
	names, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("glob templates: %w", err)
	}

	r := &Renderer{pages: make(map[string]*template.Template, len(names))}
	for _, name := range names {
		page := path.Base(name)
		if page == baseTemplate {
			continue
		}
		t, err := template.New(baseTemplate).Funcs(funcs).ParseFS(templateFS, "templates/"+baseTemplate, name)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", page, err)
		}
		r.pages[page] = t
	}
	return r, nil
}

// Render implements echo.Renderer.
func (r *Renderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}
	return t.ExecuteTemplate(w, baseTemplate, data)
}

// Render wraps data in a Page carrying the viewer, pending flashes and the
// CSRF token, then renders the named template.
func Render(c echo.Context, code int, name, title string, data any) error {
	return c.Render(code, name, NewPage(c, title, data))
}

func NewPage(c echo.Context, title string, data any) *Page {
	viewer, _ := c.Get(ViewerKey).(*Viewer)
	token, _ := c.Get(CSRFContextKey).(string)
	return &Page{
		Title:     title,
		Viewer:    viewer,
		Flashes:   PopFlashes(c),
		CSRFToken: token,
		CSRFField: CSRFFormField,
		Data:      data,
	}
}
