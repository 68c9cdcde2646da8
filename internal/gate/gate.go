// Package gate implements the self-service identity check: a patient may
// read their own queue and appointment data only with a matching
// UHID + date-of-birth pair. The check deliberately does not reveal
// which half of the pair was wrong.
package gate

import (
	"time"

	"github.com/rs/zerolog/log"

	"mhcqms/queue-engine/internal/models"
)

// Verify compares the supplied date of birth against the stored one
// using an exact whole-date match. Both a missing patient and a
// mismatched date return the caller the same store.ErrAccessDenied (via
// the returned false); the distinguishing detail goes only to the
// operational log.
func Verify(patient models.Patient, found bool, uniqueID string, dateOfBirth time.Time) bool {
	if !found {
		log.Warn().Str("unique_id", uniqueID).Str("reason", "unknown_uhid").Msg("portal access denied")
		return false
	}
	if !sameDate(patient.DateOfBirth, dateOfBirth) {
		log.Warn().Str("unique_id", uniqueID).Str("reason", "dob_mismatch").Msg("portal access denied")
		return false
	}
	return true
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
