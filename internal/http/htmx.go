package httpx

import (
	"net/http"
	"strings"
)

// IsHTMX reports whether the request was initiated by htmx (Hx-Request: true).
func IsHTMX(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Hx-Request"), "true")
}

// SetHXRedirect instructs htmx to navigate the browser to url.
func SetHXRedirect(w http.ResponseWriter, url string) { w.Header().Set("Hx-Redirect", url) }

// redirect sends the browser to location. htmx requests get Hx-Redirect so the whole
// page navigates instead of swapping a fragment; everything else gets a 303.
func redirect(w http.ResponseWriter, r *http.Request, location string) {
	if IsHTMX(r) {
		SetHXRedirect(w, location)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}
