package web

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/a-h/templ"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/khbm0110/JUUUU/internal/i18n"
)

//go:embed templates
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// StaticFS returns the embedded css/js assets.
func StaticFS() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// Renderer executes page templates inside the base layout. In dev mode the
// templates are reparsed on every render.
type Renderer struct {
	fsys   fs.FS
	funcs  template.FuncMap
	dev    bool
	mu     sync.RWMutex
	pages  map[string]*template.Template
	bundle *i18n.Bundle
}

// NewRenderer parses every page under templates/pages. A nil fsys uses the
// embedded templates.
func NewRenderer(fsys fs.FS, bundle *i18n.Bundle, dev bool) (*Renderer, error) {
	if fsys == nil {
		sub, err := fs.Sub(templateFS, "templates")
		if err != nil {
			return nil, err
		}
		fsys = sub
	}
	r := &Renderer{fsys: fsys, dev: dev, bundle: bundle}
	r.funcs = r.funcMap()
	pages, err := r.parse()
	if err != nil {
		return nil, err
	}
	r.pages = pages
	return r, nil
}

func (r *Renderer) parse() (map[string]*template.Template, error) {
	shared := []string{"layouts/*.tmpl", "partials/*.tmpl"}
	entries, err := fs.Glob(r.fsys, "pages/*.tmpl")
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("web: no page templates found")
	}
	out := make(map[string]*template.Template, len(entries))
	for _, page := range entries {
		name := strings.TrimSuffix(path.Base(page), ".tmpl")
		tmpl, err := template.New(name).Funcs(r.funcs).ParseFS(r.fsys, append(shared, page)...)
		if err != nil {
			return nil, fmt.Errorf("web: parse %s: %w", page, err)
		}
		out[name] = tmpl
	}
	return out, nil
}

func (r *Renderer) lookup(page string) (*template.Template, error) {
	if r.dev {
		pages, err := r.parse()
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.pages = pages
		r.mu.Unlock()
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	tmpl, ok := r.pages[page]
	if !ok {
		return nil, fmt.Errorf("web: unknown page %q", page)
	}
	return tmpl, nil
}

// Render writes page into w using the base layout.
func (r *Renderer) Render(w io.Writer, page string, data any) error {
	tmpl, err := r.lookup(page)
	if err != nil {
		return err
	}
	return tmpl.ExecuteTemplate(w, "base", data)
}

// Component adapts a page to templ so handlers can serve it with
// templ.Handler. Rendering is buffered so a template error never leaves a
// half-written page behind.
func (r *Renderer) Component(page string, data any) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		var buf bytes.Buffer
		if err := r.Render(&buf, page, data); err != nil {
			return err
		}
		_, err := buf.WriteTo(w)
		return err
	})
}

// Serve renders page with status through templ.Handler.
func (r *Renderer) Serve(w http.ResponseWriter, req *http.Request, status int, page string, data any) {
	templ.Handler(r.Component(page, data), templ.WithStatus(status)).ServeHTTP(w, req)
}

var (
	markdown = goldmark.New(goldmark.WithRendererOptions(html.WithHardWraps()))
	ugc      = bluemonday.UGCPolicy()
)

// renderMarkdown turns admin-edited copy into safe HTML.
func renderMarkdown(src string) template.HTML {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(ugc.SanitizeBytes(buf.Bytes()))
}

func (r *Renderer) funcMap() template.FuncMap {
	return template.FuncMap{
		"t": func(lang i18n.Language, key string) string {
			return r.bundle.T(lang, key)
		},
		"markdown": renderMarkdown,
		"number": func(lang i18n.Language, v float64) string {
			return i18n.FormatNumber(lang, strconv.FormatFloat(v, 'f', -1, 64))
		},
		"stars": func(n int) []bool {
			out := make([]bool, 5)
			for i := range out {
				out[i] = i < n
			}
			return out
		},
		"year": func() int { return time.Now().Year() },
	}
}
