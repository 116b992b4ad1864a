package httpx

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	domainauth "github.com/target/exam-portal/internal/domain/auth"
	"github.com/target/exam-portal/internal/domain/exam"
)

// TemplateRenderer renders the HTML pages. Every page is wrapped in the "layout"
// template, which pulls the page body in by name through the "page" func.
type TemplateRenderer struct {
	t      *template.Template
	logger *slog.Logger
}

// TemplateRendererConfig holds configuration for creating a TemplateRenderer.
type TemplateRendererConfig struct {
	TemplateFS fs.FS        // Filesystem containing layout.tmpl and pages/*.tmpl (required)
	Logger     *slog.Logger // Optional
}

// NewTemplateRenderer parses the templates in cfg.TemplateFS.
func NewTemplateRenderer(cfg TemplateRendererConfig) (*TemplateRenderer, error) {
	if cfg.TemplateFS == nil {
		return nil, errors.New("TemplateFS is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var t *template.Template
	t, err := template.New("root").Funcs(templateFuncs(&t)).ParseFS(cfg.TemplateFS, "*.tmpl", "pages/*.tmpl")
	if err != nil {
		logger.Error("template parsing failed", slog.Any("error", err), slog.String("phase", "initialization"))
		return nil, err
	}
	return &TemplateRenderer{t: t, logger: logger}, nil
}

// Render writes the full page with status.
func (r *TemplateRenderer) Render(w http.ResponseWriter, status int, p Page) error {
	return r.execute(w, status, "layout", p)
}

// RenderFragment writes a single named template, for htmx swaps.
func (r *TemplateRenderer) RenderFragment(w http.ResponseWriter, name string, data any) error {
	return r.execute(w, http.StatusOK, name, data)
}

func (r *TemplateRenderer) execute(w http.ResponseWriter, status int, name string, data any) error {
	var buf bytes.Buffer
	if err := r.t.ExecuteTemplate(&buf, name, data); err != nil {
		r.logger.Error("template execution failed", slog.String("template", name), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		r.logger.Debug("failed to write rendered template", slog.String("template", name), slog.Any("error", err))
		return err
	}
	return nil
}

func templateFuncs(t **template.Template) template.FuncMap {
	return template.FuncMap{
		// page executes the named template and embeds its output.
		"page": func(name string, data any) (template.HTML, error) {
			var buf bytes.Buffer
			if err := (*t).ExecuteTemplate(&buf, name, data); err != nil {
				return "", err
			}
			// #nosec G203 -- output of html/template is already escaped.
			return template.HTML(buf.String()), nil
		},
		"roles": domainauth.Roles,
		"profile": func(r domainauth.Role) domainauth.RoleProfile {
			p, _ := r.Profile()
			return p
		},
		"remaining": func(a exam.ActiveExam, now time.Time) string { return a.Remaining(now) },
		"initial": func(s string) string {
			s = strings.TrimSpace(s)
			if s == "" {
				return "?"
			}
			return strings.ToUpper(string([]rune(s)[:1]))
		},
		"fmtTime": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("Jan 2, 2006 15:04")
		},
		"clock": func(t time.Time) string { return t.Format("15:04") },
		"ago": func(t, now time.Time) string {
			d := now.Sub(t)
			switch {
			case d < time.Minute:
				return "Just now"
			case d < time.Hour:
				return fmt.Sprintf("%dm ago", int(d/time.Minute))
			default:
				return fmt.Sprintf("%dh ago", int(d/time.Hour))
			}
		},
		"score": func(p *int) string {
			if p == nil {
				return "-"
			}
			return fmt.Sprint(*p)
		},
		"title": func(s string) string {
			if s == "" {
				return s
			}
			return strings.ToUpper(s[:1]) + s[1:]
		},
	}
}
