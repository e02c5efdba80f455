package api

import (
	"net/http"
	"strings"

	"github.com/vocdoni/zkvote/auth"
	"github.com/vocdoni/zkvote/log"
)

// AccessGate returns a middleware that requires a valid credential cookie on
// every path under the given prefixes. A request without the cookie is
// redirected to verifyURL; a request with an invalid or expired one is
// redirected too and the cookie is cleared. Valid requests go through
// untouched. The gate never issues credentials.
func AccessGate(issuer *auth.Issuer, verifyURL string, prefixes []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !gated(r.URL.Path, prefixes) {
				next.ServeHTTP(w, r)
				return
			}
			cookie, err := r.Cookie(CookieName)
			if err != nil || cookie.Value == "" {
				log.Debugw("access gate: no credential", "path", r.URL.Path)
				http.Redirect(w, r, verifyURL, http.StatusTemporaryRedirect)
				return
			}
			if _, err := issuer.Verify(cookie.Value); err != nil {
				log.Debugw("access gate: invalid credential", "path", r.URL.Path, "error", err.Error())
				http.SetCookie(w, &http.Cookie{
					Name:     CookieName,
					Value:    "",
					Path:     "/",
					MaxAge:   -1,
					HttpOnly: true,
				})
				http.Redirect(w, r, verifyURL, http.StatusTemporaryRedirect)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// gated reports whether path is one of the prefixes or below one of them.
func gated(path string, prefixes []string) bool {
	for _, p := range prefixes {
		p = strings.TrimSuffix(p, "/")
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}
