package risk

import (
	"time"

	"mhcqms/queue-engine/internal/models"
)

type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// Score computes the raw risk score from the boolean factors plus the
// age contribution. Adding any true factor can only increase it.
func Score(factors models.RiskFactors, age int) int {
	score := 0
	if factors.Smoking {
		score += 2
	}
	if factors.Diabetes {
		score += 2
	}
	if factors.Hypertension {
		score += 2
	}
	if factors.Obesity {
		score++
	}
	if factors.FamilyHistory {
		score++
	}
	switch {
	case age >= 61:
		score += 2
	case age >= 41:
		score++
	}
	return score
}

func levelForScore(score int) Level {
	switch {
	case score >= 5:
		return LevelHigh
	case score >= 3:
		return LevelMedium
	default:
		return LevelLow
	}
}

// Assess derives the risk level for a patient with the given factors and
// date of birth, evaluated at the supplied instant. It is pure: no clock
// access, no side effects.
func Assess(factors models.RiskFactors, dateOfBirth, at time.Time) (Level, int) {
	score := Score(factors, Age(dateOfBirth, at))
	return levelForScore(score), score
}

// Age returns whole years elapsed between dateOfBirth and at. Counting
// by calendar components rather than dividing by a year length keeps
// Feb 29 birthdays correct: the year increments only once the birthday
// (or Mar 1 in non-leap years) has passed.
func Age(dateOfBirth, at time.Time) int {
	years := at.Year() - dateOfBirth.Year()
	anniversary := dateOfBirth.AddDate(years, 0, 0)
	if anniversary.After(at) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}
