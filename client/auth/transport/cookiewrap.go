package transport

import (
	"net/http"
)

const (
	// CSRFCookie names the cookie carrying the anti-forgery token.
	CSRFCookie = "csrftoken"
	// CSRFHeader echoes CSRFCookie on state-changing requests.
	CSRFHeader = "X-CSRFToken"
)

// cookieWrap sends session cookies from a jar, echoes the CSRF cookie on
// unsafe methods and stores response cookies back into the jar.
type cookieWrap struct {
	inner http.RoundTripper
	jar   http.CookieJar
}

// WrapWithCookieJar wraps inner so that requests carry cookies held by jar.
func WrapWithCookieJar(inner http.RoundTripper, jar http.CookieJar) http.RoundTripper {
	if jar == nil || inner == nil {
		return inner
	}
	return &cookieWrap{inner: inner, jar: jar}
}

func (w *cookieWrap) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	for _, c := range w.jar.Cookies(clone.URL) {
		clone.AddCookie(c)
		if c.Name == CSRFCookie && unsafeMethod(clone.Method) && clone.Header.Get(CSRFHeader) == "" {
			clone.Header.Set(CSRFHeader, c.Value)
		}
	}
	resp, err := w.inner.RoundTrip(clone)
	if err != nil {
		return nil, err
	}
	if cookies := resp.Cookies(); len(cookies) > 0 {
		w.jar.SetCookies(clone.URL, cookies)
	}
	return resp, nil
}

func unsafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return false
	}
	return true
}
