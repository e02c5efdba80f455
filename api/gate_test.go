package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/zkvote/auth"
)

func TestGated(t *testing.T) {
	c := qt.New(t)
	prefixes := []string{"/vote", "/admin/"}
	for path, want := range map[string]bool{
		"/vote":             true,
		"/vote/":            true,
		"/vote/proposals/1": true,
		"/voter":            false,
		"/verify":           false,
		"/admin":            true,
		"/admin/x":          true,
		"/":                 false,
	} {
		c.Assert(gated(path, prefixes), qt.Equals, want, qt.Commentf("path %s", path))
	}
}

func TestAccessGate(t *testing.T) {
	c := qt.New(t)
	issuer, err := auth.NewIssuer(testSecret, auth.DefaultTTL)
	c.Assert(err, qt.IsNil)
	reached := 0
	handler := AccessGate(issuer, "/verify", DefaultGatedPaths)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached++
		w.WriteHeader(http.StatusNoContent)
	}))
	serve := func(path string, cookie *http.Cookie) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if cookie != nil {
			req.AddCookie(cookie)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	// public paths are not touched
	rec := serve("/ping", nil)
	c.Assert(rec.Code, qt.Equals, http.StatusNoContent)

	// no credential: redirect, nothing cleared
	rec = serve("/vote", nil)
	c.Assert(rec.Code, qt.Equals, http.StatusTemporaryRedirect)
	c.Assert(rec.Header().Get("Location"), qt.Equals, "/verify")
	c.Assert(findCookie(rec, CookieName), qt.IsNil)

	// forged credential: redirect and clear
	other, err := auth.NewIssuer("another-secret", auth.DefaultTTL)
	c.Assert(err, qt.IsNil)
	forged, err := other.Issue("someone")
	c.Assert(err, qt.IsNil)
	rec = serve("/vote/proposals", &http.Cookie{Name: CookieName, Value: forged})
	c.Assert(rec.Code, qt.Equals, http.StatusTemporaryRedirect)
	c.Assert(rec.Header().Get("Location"), qt.Equals, "/verify")
	cleared := findCookie(rec, CookieName)
	c.Assert(cleared, qt.IsNotNil)
	c.Assert(cleared.MaxAge < 0, qt.IsTrue)
	c.Assert(cleared.Value, qt.Equals, "")

	// expired credential: redirect and clear
	issuedAt := time.Now().Add(-25 * time.Hour)
	old, err := auth.NewIssuer(testSecret, auth.DefaultTTL)
	c.Assert(err, qt.IsNil)
	old.SetClock(func() time.Time { return issuedAt })
	expired, err := old.Issue("someone")
	c.Assert(err, qt.IsNil)
	rec = serve("/vote/proposals", &http.Cookie{Name: CookieName, Value: expired})
	c.Assert(rec.Code, qt.Equals, http.StatusTemporaryRedirect)
	c.Assert(findCookie(rec, CookieName).MaxAge < 0, qt.IsTrue)

	c.Assert(reached, qt.Equals, 1)

	// valid credential goes through untouched
	token, err := issuer.Issue("someone")
	c.Assert(err, qt.IsNil)
	rec = serve("/vote/proposals/3", &http.Cookie{Name: CookieName, Value: token})
	c.Assert(rec.Code, qt.Equals, http.StatusNoContent)
	c.Assert(rec.Result().Cookies(), qt.HasLen, 0)
	c.Assert(reached, qt.Equals, 2)
}

func TestRouterGate(t *testing.T) {
	c := qt.New(t)
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, ProposalsEndpoint, nil)
	c.Assert(rec.Code, qt.Equals, http.StatusTemporaryRedirect)
	c.Assert(rec.Header().Get("Location"), qt.Equals, DefaultVerifyURL)

	rec = env.do(t, http.MethodGet, ProposalsEndpoint, nil, env.credential(t))
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	c.Assert(decode[ProposalList](t, rec).Count, qt.Equals, uint64(0))
}
