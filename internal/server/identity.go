package server

import (
	"net/http"
	"net/url"
)

// IdentityCookie is the cookie carrying the caller's self-asserted username.
// It is not signed; whatever the browser presents is trusted.
const IdentityCookie = "X-Authorization"

// IdentityFromRequest returns the identity stored in the request's cookie.
// Values that do not decode are treated as absent.
func IdentityFromRequest(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(IdentityCookie)
	if err != nil {
		return "", false
	}
	identity, err := url.QueryUnescape(cookie.Value)
	if err != nil || identity == "" {
		return "", false
	}
	return identity, true
}

// SetIdentity instructs the browser to present username on future requests.
// The value is query-escaped because cookie values only allow a subset of
// ASCII. The cookie is HttpOnly so page scripts cannot read it.
func SetIdentity(w http.ResponseWriter, username string) {
	http.SetCookie(w, &http.Cookie{
		Name:     IdentityCookie,
		Value:    url.QueryEscape(username),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
