package server

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
)

//go:embed templates/*.html
var templateFiles embed.FS

//go:embed static
var staticFiles embed.FS

// Pages renders the embedded HTML templates.
type Pages struct {
	tmpl *template.Template
}

// LoadPages parses the embedded templates.
func LoadPages() (*Pages, error) {
	tmpl, err := template.ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Pages{tmpl: tmpl}, nil
}

// MustLoadPages is [LoadPages] for package initialization; the templates are compiled in,
// so a failure is a programming error.
func MustLoadPages() *Pages {
	p, err := LoadPages()
	if err != nil {
		panic(err)
	}
	return p
}

// ProfilePage is the data for the post-login page.
type ProfilePage struct {
	WidgetKey string
	WidgetURL string
}

// ErrorPage is the data for the error page.
type ErrorPage struct {
	Title  string
	Detail string
}

// Render executes the named template into a buffer first so a template error never
// produces a half-written page.
func (p *Pages) Render(w http.ResponseWriter, status int, name string, data any) error {
	var buf bytes.Buffer
	if err := p.tmpl.ExecuteTemplate(&buf, name+".html", data); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// Static returns a handler rendering a template without data.
func (p *Pages) Static(name string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		p.Render(w, http.StatusOK, name, nil)
	})
}

// StaticFiles serves the embedded /static/ assets.
func StaticFiles() http.Handler {
	return http.FileServerFS(staticFiles)
}
