package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"

	"github.com/marcus/taskboard/internal/i18n"
	"github.com/marcus/taskboard/internal/store"
)

//go:embed templates/*.html
var templateFS embed.FS

const dateLayout = "Jan 2, 2006"

var pageNames = []string{"login", "register", "todos"}

// parseTemplates builds one template set per page, each a clone of the
// layout with the page's "content" block parsed on top.
func parseTemplates() (map[string]*template.Template, error) {
	layout, err := template.New("layout.html").Funcs(template.FuncMap{
		"date": formatDate,
		"ago":  humanize.Time,
	}).ParseFS(templateFS, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t := template.Must(layout.Clone())
		if _, err := t.ParseFS(templateFS, "templates/"+name+".html"); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		pages[name] = t
	}
	return pages, nil
}

func formatDate(t time.Time) string {
	return t.Local().Format(dateLayout)
}

// markdownPolicy strips anything a todo description could use to inject
// script or style.
var markdownPolicy = bluemonday.UGCPolicy()

// renderMarkdown turns a todo description into sanitized HTML.
func renderMarkdown(src string) template.HTML {
	if src == "" {
		return ""
	}
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	r := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: mdhtml.CommonFlags | mdhtml.HrefTargetBlank})
	out := markdown.ToHTML([]byte(src), p, r)
	return template.HTML(markdownPolicy.SanitizeBytes(out))
}

// flash is a one-shot notification shown after a redirect.
type flash struct {
	Kind    string
	Message string
}

// page is the data every template renders against.
type page struct {
	Lang   string
	User   *store.User
	Flash  *flash
	Title  string
	Path   string
	Next   string
	Values map[string]string
	Errors map[string]string
	Error  string
	Signup bool

	*todosPage
}

// T translates key into the page language.
func (p *page) T(key string, args ...any) string {
	return i18n.T(p.Lang, key, args...)
}

// OtherLang is the language the toggle switches to.
func (p *page) OtherLang() string {
	return i18n.Toggle(p.Lang)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name string, p *page) {
	t, ok := h.pages[name]
	if !ok {
		h.log(r).Error("unknown template", "name", name)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if p.Flash == nil {
		p.Flash = h.takeFlash(w, r)
	}
	p.Path = r.URL.RequestURI()

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout.html", p); err != nil {
		h.log(r).Error("render", "template", name, "err", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
