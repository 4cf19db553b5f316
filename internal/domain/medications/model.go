package medications

import "time"

// Status del tratamiento.
// @Enum active, paused, archived
type Status string

const (
	StatusActive   Status = "active"
	StatusPaused   Status = "paused"
	StatusArchived Status = "archived"
)

// RuleKind define la forma de la regla de dosificación.
// @Enum times, interval, as_needed
type RuleKind string

const (
	// RuleTimes: horarios fijos por día ("08:00", "20:00").
	RuleTimes RuleKind = "times"
	// RuleInterval: cada N horas desde el ancla (Start).
	RuleInterval RuleKind = "interval"
	// RuleAsNeeded: sin calendario; no genera dosis programadas.
	RuleAsNeeded RuleKind = "as_needed"
)

// Rule es la regla de recurrencia de un medicamento.
// Los horarios son "HH:MM" en 24h. Start ancla la regla (y su hora, para
// reglas de intervalo); End es opcional (nil = tratamiento abierto).
type Rule struct {
	Kind          RuleKind
	Times         []string
	IntervalHours int
	Start         time.Time
	End           *time.Time
}

// Medication es un medicamento del usuario.
// DrugID referencia la identidad canónica (nil hasta que se resuelve contra
// el dataset de referencia, p.ej. al aceptar un escaneo de etiqueta).
type Medication struct {
	ID     string
	UserID string

	Name    string
	DrugID  *string
	Purpose string

	DosageAmount float64
	DosageUnit   string

	Rule Rule

	// Inventario: nil = sin tracking de stock.
	PillCount         *int
	LowStockThreshold int

	Status Status
	Notes  string

	CreatedAt time.Time
	UpdatedAt time.Time
}
