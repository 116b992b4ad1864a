package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/target/exam-portal/internal/apiclient"
	domainauth "github.com/target/exam-portal/internal/domain/auth"
	apperrors "github.com/target/exam-portal/internal/errors"
	"github.com/target/exam-portal/internal/guard"
	"github.com/target/exam-portal/internal/session"
)

// Recorder receives HTTP-level metrics.
type Recorder interface {
	APIErrorRecorder
	RecordGuard(view, kind string)
}

type nopRecorder struct{}

func (nopRecorder) RecordAPIError(string, string) {}
func (nopRecorder) RecordGuard(string, string)    {}

// Page is the data every full page renders with. Template names the body template
// that the layout embeds.
type Page struct {
	Title    string
	Template string
	State    domainauth.State
	Profile  domainauth.RoleProfile
	Notice   string
	Error    string
	// Refresh adds a meta refresh, used by the loading placeholder.
	Refresh bool
	Now     time.Time
	// CSRFToken is echoed by every form and by htmx requests.
	CSRFToken string
	Data      any
}

// UIHandlers serves the server-rendered dashboards. Each browser device owns a
// session.Store resolved by DeviceSession; dashboard data comes from the JSON API
// through the device's bearer token.
type UIHandlers struct {
	Renderer *TemplateRenderer
	API      *apiclient.Client
	Metrics  Recorder
	Logger   *slog.Logger
	Now      func() time.Time
}

func (h *UIHandlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *UIHandlers) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func (h *UIHandlers) metrics() Recorder {
	if h.Metrics != nil {
		return h.Metrics
	}
	return nopRecorder{}
}

func (h *UIHandlers) page(r *http.Request, st *session.Store, template, title string) Page {
	state := st.State()
	p := Page{
		Title:    title,
		Template: template,
		State:    state,
		Notice:   r.URL.Query().Get("notice"),
		Error:    r.URL.Query().Get("error"),
		Now:      h.now(),

		CSRFToken: GetCSRFToken(r),
	}
	if profile, ok := state.Role.Profile(); ok {
		p.Profile = profile
	}
	return p
}

func (h *UIHandlers) render(w http.ResponseWriter, status int, p Page) {
	if err := h.Renderer.Render(w, status, p); err != nil {
		h.logger().Error("render page failed", "template", p.Template, "error", err)
	}
}

// storeHandler is a UI handler that needs the device's session store.
type storeHandler func(w http.ResponseWriter, r *http.Request, st *session.Store)

// withStore resolves the store attached by DeviceSession.
func (h *UIHandlers) withStore(next storeHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, ok := GetStoreFromContext(r.Context())
		if !ok {
			h.logger().ErrorContext(r.Context(), "no session store on request", "path", r.URL.Path)
			http.Error(w, "Session unavailable", http.StatusInternalServerError)
			return
		}
		next(w, r, st)
	}
}

// guarded applies the route table's guard for path before calling next. next only
// runs for a Render decision and receives the view to render.
func (h *UIHandlers) guarded(path string, next func(w http.ResponseWriter, r *http.Request, st *session.Store, view guard.View)) http.HandlerFunc {
	route, ok := guard.Lookup(path)
	if !ok {
		panic("httpx: no route for " + path)
	}
	return h.withStore(func(w http.ResponseWriter, r *http.Request, st *session.Store) {
		d := route.Apply(st.State())
		label := string(d.View)
		if label == "" {
			label = route.Path
		}
		h.metrics().RecordGuard(label, string(d.Kind))

		switch d.Kind {
		case guard.KindRender:
			next(w, r, st, d.View)
		case guard.KindLoading:
			h.renderLoading(w, r, st)
		case guard.KindNotFound:
			h.notFound(w, r, st)
		default:
			redirect(w, r, d.Location)
		}
	})
}

func (h *UIHandlers) renderLoading(w http.ResponseWriter, r *http.Request, st *session.Store) {
	p := h.page(r, st, "page-loading", "Loading")
	p.Refresh = true
	w.Header().Set("Cache-Control", "no-store")
	h.render(w, http.StatusOK, p)
}

func (h *UIHandlers) notFound(w http.ResponseWriter, r *http.Request, st *session.Store) {
	h.render(w, http.StatusNotFound, h.page(r, st, "page-notfound", "Page not found"))
}

// client returns an API session bound to st. A 401 from the API tears st down.
func (h *UIHandlers) client(st *session.Store) *apiclient.Session {
	return h.API.Session(apiclient.SessionOptions{
		Tokens: st,
		OnUnauthorized: func(ctx context.Context) {
			if err := st.Expire(context.WithoutCancel(ctx)); err != nil {
				h.logger().WarnContext(ctx, "session teardown after 401 incomplete", "error", err)
			}
		},
	})
}

// expired redirects to login when err is an authorization failure. The unauthorized
// hook has already cleared the session by then.
func expired(w http.ResponseWriter, r *http.Request, err error) bool {
	if !errors.Is(err, domainauth.ErrUnauthorized) {
		return false
	}
	redirect(w, r, guard.PathLogin)
	return true
}

func loadError(err error) string {
	return apperrors.PublicMessage(err, "Unable to load dashboard data")
}

// backTo builds a redirect target under path with the given query parameters.
// Empty values are dropped.
func backTo(path string, kv ...string) string {
	q := url.Values{}
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i+1] != "" {
			q.Set(kv[i], kv[i+1])
		}
	}
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

// action runs fn against the API and redirects back with either its notice or the
// error message. An authorization failure redirects to login instead.
func (h *UIHandlers) action(w http.ResponseWriter, r *http.Request, st *session.Store, back func(notice, errMsg string) string, fn func(ctx context.Context, c *apiclient.Session) (string, error)) {
	if err := r.ParseForm(); err != nil {
		redirect(w, r, back("", "Invalid form submission"))
		return
	}
	notice, err := fn(r.Context(), h.client(st))
	if err != nil {
		if expired(w, r, err) {
			return
		}
		h.logger().InfoContext(r.Context(), "dashboard action failed", "path", r.URL.Path, "error", err)
		redirect(w, r, back("", apperrors.PublicMessage(err, "Something went wrong")))
		return
	}
	redirect(w, r, back(notice, ""))
}
