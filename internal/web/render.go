package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/gorilla/sessions"
)

//go:embed templates/*.html
var templateFS embed.FS

type cookieSession = *sessions.Session

var pageFiles = []string{"login.html", "app.html"}

// parsePages builds one template set per page, each with the shared layout.
func parsePages() (map[string]*template.Template, error) {
	pages := make(map[string]*template.Template, len(pageFiles))
	for _, name := range pageFiles {
		tmpl, err := template.New(name).ParseFS(templateFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = tmpl
	}
	return pages, nil
}

// render executes a page into a buffer first so template errors produce a
// clean 500.
func (s *Server) render(w http.ResponseWriter, name string, status int, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		s.fail(w, "unknown template", fmt.Errorf("template %s not found", name))
		return
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		s.fail(w, "failed to render template", err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
