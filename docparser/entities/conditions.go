package entities

import "time"

// KnownCondition is a chronic condition the user has declared as an
// existing diagnosis. Externally owned; this service only reads it.
type KnownCondition struct {
	ConditionName     string    `json:"conditionName"`
	DeclaredAt        time.Time `json:"declaredAt"`
	ManagementMethods []string  `json:"managementMethods,omitempty"`
}

// UserProfile carries the declared name used for the name_match check and
// the user's declared conditions.
type UserProfile struct {
	FirstName  string           `json:"firstName,omitempty"`
	LastName   string           `json:"lastName,omitempty"`
	Conditions []KnownCondition `json:"conditions,omitempty"`
}

// StatusEntry is the most recent outcome for one distinct test name across
// the user's full history.
type StatusEntry struct {
	Name   string     `json:"name"`
	Result string     `json:"result,omitempty"`
	Status TestStatus `json:"status"`
	Date   *time.Time `json:"date,omitempty"`
}

// StatusSummary partitions current statuses into routine screening results
// and known (declared) conditions. Overall is computed from the routine
// subset only, so a managed chronic condition never drives the headline.
type StatusSummary struct {
	Routine []StatusEntry `json:"routine"`
	Known   []StatusEntry `json:"known"`
	Overall TestStatus    `json:"overall"`
}
