package edge

import "net/http"

// PendingCookies accumulates Set-Cookie instructions discovered while the
// response does not exist yet. It is applied once, by the response finalizer.
type PendingCookies struct {
	cookies []*http.Cookie
}

// Add queues cookies in order. Nil entries are ignored.
func (p *PendingCookies) Add(cookies ...*http.Cookie) {
	for _, c := range cookies {
		if c != nil {
			p.cookies = append(p.cookies, c)
		}
	}
}

// Len returns the number of queued cookies.
func (p PendingCookies) Len() int { return len(p.cookies) }

// Cookies returns a copy of the queued cookies.
func (p PendingCookies) Cookies() []*http.Cookie {
	out := make([]*http.Cookie, len(p.cookies))
	copy(out, p.cookies)
	return out
}

// Apply writes every queued cookie to h as a Set-Cookie header.
// Invalid cookies are skipped by http.Cookie.String.
func (p PendingCookies) Apply(h http.Header) {
	for _, c := range p.cookies {
		if v := c.String(); v != "" {
			h.Add("Set-Cookie", v)
		}
	}
}
