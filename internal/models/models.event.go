// FilePath: internal/models/models.event.go
package models

import (
	"time"

	"github.com/lib/pq"
)

// Event is a free-form annotation on the timeline (a hive inspection, a
// swarm, a feeding). Events are written out of band and never by the sync run.
type Event struct {
	ID      int64          `json:"id" db:"id"`
	Time    time.Time      `json:"time" db:"time"`
	EndTime *time.Time     `json:"end_time,omitempty" db:"end_time"`
	Title   string         `json:"title" db:"title"`
	Tags    pq.StringArray `json:"tags,omitempty" db:"tags"`
}
