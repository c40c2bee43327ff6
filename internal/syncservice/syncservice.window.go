// FilePath: internal/syncservice/syncservice.window.go
package syncservice

import "time"

// MinHistoryLimit is the smallest page requested from the source.
const MinHistoryLimit = 100

// HistoryLimit sizes the history request for an entity whose newest stored
// reading is latest: one record per 86.4 s elapsed, at least MinHistoryLimit.
// A nil latest counts from the epoch. maxLimit caps the result when positive.
func HistoryLimit(latest *time.Time, now time.Time, maxLimit int) int {
	var latestTS int64
	if latest != nil {
		latestTS = latest.Unix()
	}
	limit := (now.UTC().Unix() - latestTS) * 10 / 864
	if limit < MinHistoryLimit {
		limit = MinHistoryLimit
	}
	if maxLimit > 0 && limit > int64(maxLimit) {
		limit = int64(maxLimit)
	}
	return int(limit)
}
