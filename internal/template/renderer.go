package template

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/ghaggin/roadmap/internal/model"
)

const (
	templateDir string = "tmpl"
	baseFile    string = "base.html"
)

// Pages lists every page template; each one wraps itself in base.html.
var Pages = []string{"home.html", "signin.html", "signup.html", "onboarding.html", "dashboard.html"}

type Data struct {
	PageTitle   string
	User        *model.Session
	Error       string
	Flash       string
	CallbackURL string
	Providers   []string
	SAML        bool
}

type Renderer struct {
	pages map[string]*template.Template
}

// New parses every page against the base layout up front so a broken
// template fails at start rather than on first request.
func New(fsys fs.FS) (*Renderer, error) {
	pages := make(map[string]*template.Template, len(Pages))
	for _, name := range Pages {
		t, err := template.ParseFS(fsys,
			templateDir+"/"+name,
			templateDir+"/"+baseFile,
		)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		pages[name] = t
	}
	return &Renderer{pages: pages}, nil
}

func (r *Renderer) Render(w http.ResponseWriter, status int, tmpl string, td *Data) error {
	t, ok := r.pages[tmpl]
	if !ok {
		return fmt.Errorf("unknown template %q", tmpl)
	}

	buf := &bytes.Buffer{}
	if err := t.Execute(buf, td); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
