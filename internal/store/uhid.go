package store

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewUniqueID mints a patient-facing UHID: "P", the registration date,
// and a short random suffix. The suffix comes from a v4 UUID, so
// collisions within a day are vanishingly unlikely; the unique index on
// patients.unique_id catches the rest.
func NewUniqueID(at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:5]
	return "P" + at.UTC().Format("20060102") + suffix
}
