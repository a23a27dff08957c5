package cookie

import (
	"time"
)

// SessionCookieName is the cookie whose presence means the account is logged in
const SessionCookieName = "web_session"

// Record is one persisted browser cookie.
// Expires is seconds since the Unix epoch; zero or negative means a session cookie.
type Record struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite,omitempty"`
}

// Key identifies a record within a jar
func (r Record) Key() string {
	return r.Name + "@" + r.Domain
}

// Expired reports whether a persistent cookie is past its expiry at now
func (r Record) Expired(now time.Time) bool {
	return r.Expires > 0 && int64(r.Expires) < now.Unix()
}

// Dedupe collapses records sharing name and domain. The last occurrence wins
// and the order of first appearance is kept.
func Dedupe(records []Record) []Record {
	index := make(map[string]int, len(records))
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if i, ok := index[r.Key()]; ok {
			out[i] = r
			continue
		}
		index[r.Key()] = len(out)
		out = append(out, r)
	}
	return out
}

// HasSession reports whether the jar carries a non-empty, unexpired session cookie
func HasSession(records []Record, now time.Time) bool {
	for _, r := range records {
		if r.Name == SessionCookieName && r.Value != "" && !r.Expired(now) {
			return true
		}
	}
	return false
}

// Live drops expired records
func Live(records []Record, now time.Time) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if !r.Expired(now) {
			out = append(out, r)
		}
	}
	return out
}
