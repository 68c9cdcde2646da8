package models

import "time"

// RiskFactors are the boolean inputs to risk assessment, captured at
// registration and mutable only through patient updates. The derived risk
// level is never stored alongside them.
type RiskFactors struct {
	Smoking       bool `json:"smoking"`
	Diabetes      bool `json:"diabetes"`
	Hypertension  bool `json:"hypertension"`
	Obesity       bool `json:"obesity"`
	FamilyHistory bool `json:"family_history"`
}

type Patient struct {
	PatientID   string      `json:"patient_id"`
	UniqueID    string      `json:"unique_id"`
	FirstName   string      `json:"first_name"`
	LastName    string      `json:"last_name"`
	DateOfBirth time.Time   `json:"date_of_birth"`
	Gender      string      `json:"gender"`
	Phone       string      `json:"phone,omitempty"`
	Email       string      `json:"email,omitempty"`
	Address     string      `json:"address,omitempty"`
	Factors     RiskFactors `json:"risk_factors"`
	CreatedAt   time.Time   `json:"created_at"`
}

func (p Patient) FullName() string {
	return p.FirstName + " " + p.LastName
}
