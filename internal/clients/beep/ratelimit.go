// FilePath: internal/clients/beep/ratelimit.go
package beep

import (
	"net/http"
	"strconv"
	"time"
)

const (
	headerRemaining = "X-RateLimit-Remaining"
	headerLimit     = "X-RateLimit-Limit"
	headerReset     = "X-RateLimit-Reset"

	// DefaultBackoff applies when the limit is low and no reset time is given.
	DefaultBackoff = 60 * time.Second
	minBackoff     = time.Second
)

// RateLimit is the quota state reported with a response.
type RateLimit struct {
	Remaining int
	Limit     int
	Reset     *time.Time
}

// ParseRateLimit reads the rate limit headers. It returns false when
// remaining or limit is missing or malformed.
func ParseRateLimit(h http.Header) (RateLimit, bool) {
	remaining, err := strconv.Atoi(h.Get(headerRemaining))
	if err != nil {
		return RateLimit{}, false
	}
	limit, err := strconv.Atoi(h.Get(headerLimit))
	if err != nil {
		return RateLimit{}, false
	}
	rl := RateLimit{Remaining: remaining, Limit: limit}
	if v := h.Get(headerReset); v != "" {
		if epoch, err := strconv.ParseInt(v, 10, 64); err == nil {
			reset := time.Unix(epoch, 0).UTC()
			rl.Reset = &reset
		}
	}
	return rl, true
}

// Delay returns how long to pause before the next request, zero while more
// than a tenth of the quota is left.
func (r RateLimit) Delay(now time.Time) time.Duration {
	if float64(r.Remaining) >= 0.1*float64(r.Limit) {
		return 0
	}
	if r.Reset == nil {
		return DefaultBackoff
	}
	// the header has whole-second resolution, so compare whole seconds
	d := time.Duration(r.Reset.Unix()-now.Unix()) * time.Second
	if d < minBackoff {
		return minBackoff
	}
	return d
}
