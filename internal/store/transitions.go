package store

import "mhcqms/queue-engine/internal/models"

// Target status -> set of statuses it may be entered from. Completed is
// terminal for assignments; re-completing is handled as an idempotent
// no-op by the stores, not by this table.
var testTransitionMap = map[string][]string{
	models.TestStatusInProgress: {models.TestStatusPending},
	models.TestStatusCompleted:  {models.TestStatusInProgress},
}

var appointmentTransitionMap = map[string][]string{
	models.AppointmentInProgress: {models.AppointmentScheduled},
	models.AppointmentCompleted:  {models.AppointmentInProgress},
	models.AppointmentCancelled:  {models.AppointmentScheduled},
}

func ValidTestTransition(target, fromStatus string) bool {
	return validTransition(testTransitionMap, target, fromStatus)
}

func ValidAppointmentTransition(target, fromStatus string) bool {
	return validTransition(appointmentTransitionMap, target, fromStatus)
}

func validTransition(table map[string][]string, target, fromStatus string) bool {
	allowed, ok := table[target]
	if !ok {
		return false
	}
	for _, status := range allowed {
		if status == fromStatus {
			return true
		}
	}
	return false
}
