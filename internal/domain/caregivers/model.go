package caregivers

import "time"

type Scope string

const (
	ScopeMedsRead      Scope = "meds:read"
	ScopeMedsEdit      Scope = "meds:edit"
	ScopeDosesRead     Scope = "doses:read"
	ScopeDosesLog      Scope = "doses:log"
	ScopeAdherenceRead Scope = "adherence:read"
)

type Status string

const (
	StatusInvited Status = "invited"
	StatusActive  Status = "active"
	StatusRevoked Status = "revoked"
)

type Grant struct {
	ID string

	PatientUserID   string // quien comparte su tratamiento
	CaregiverUserID string // cuidador delegado

	Scopes []Scope
	Status Status

	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
}
