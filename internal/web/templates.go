package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"path"
	"strconv"
	"sync"
	"time"

	"github.com/Masterminds/sprig/v3"
)

//go:embed tpl/**/*.tmpl
//go:embed tpl/*.tmpl
var tplFS embed.FS

// Renderer parses each page template once, on first use.
type Renderer struct {
	mu    sync.Mutex
	pages map[string]*template.Template
}

func NewRenderer() (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template)}
	// Fail at startup rather than on the first request.
	if _, err := r.page("page"); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Renderer) Render(w io.Writer, name string, data any) error {
	t, err := r.page(name)
	if err != nil {
		return err
	}
	return t.ExecuteTemplate(w, name, data)
}

func (r *Renderer) page(name string) (*template.Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.pages[name]; ok {
		return t, nil
	}
	funcs := template.FuncMap{
		"nowUTC":      func() time.Time { return time.Now().UTC() },
		"formatCoins": FormatAmount,
	}
	t := template.New("root").Funcs(sprig.FuncMap()).Funcs(funcs)
	if _, err := t.ParseFS(tplFS, "tpl/base.tmpl", "tpl/partials/*.tmpl"); err != nil {
		return nil, err
	}
	if _, err := t.ParseFS(tplFS, path.Join("tpl/pages", name+".tmpl")); err != nil {
		return nil, fmt.Errorf("page %q: %w", name, err)
	}
	r.pages[name] = t
	return t, nil
}

// FormatAmount groups thousands with commas: 15000000 -> "15,000,000".
func FormatAmount(v int64) string {
	s := strconv.FormatInt(v, 10)
	neg := s[0] == '-'
	if neg {
		s = s[1:]
	}
	var out []byte
	for i := range len(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}
