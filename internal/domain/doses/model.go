package doses

import "time"

// DoseEvent es una instancia concreta y fechada de un medicamento por tomar.
// La identidad (MedicationID, ScheduledAt) es inmutable: ninguna transición
// puede cambiar a qué medicamento o instante refiere el evento.
type DoseEvent struct {
	ID           string
	MedicationID string
	UserID       string

	ScheduledAt time.Time

	Status     Status
	ResolvedAt *time.Time

	SnoozedUntil *time.Time
	SnoozeCount  int

	Note string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Warning anota un resultado exitoso con una condición no bloqueante.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
