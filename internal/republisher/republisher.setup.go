// FilePath: internal/republisher/republisher.setup.go
package republisher

import (
	"context"
	"fmt"
	"io"
	"time"
)

// Setup checks every mapping against BEEP and prints its current watermark.
// It returns an error when at least one destination is unreachable.
func (r *Republisher) Setup(ctx context.Context, w io.Writer) error {
	unreachable := 0
	for _, m := range r.cfg.Mappings {
		t, err := r.dest.LastValues(ctx, m.HiveID)
		if err != nil {
			unreachable++
			fmt.Fprintf(w, "entity %d -> %s: unreachable: %v\n", m.EntityID, m.HiveID, err)
			continue
		}
		fmt.Fprintf(w, "entity %d -> %s: watermark %s (scale key set: %t, heart key set: %t)\n",
			m.EntityID, m.HiveID, t.Format(time.RFC3339), m.ScaleKey != "", m.HeartKey != "")
	}
	if unreachable > 0 {
		return fmt.Errorf("%d of %d beep destinations unreachable", unreachable, len(r.cfg.Mappings))
	}
	return nil
}
