package doses

// Status es el estado de resolución de una dosis programada.
// @Enum pending, taken, missed, snoozed, cancelled
type Status string

const (
	StatusPending Status = "pending"
	StatusTaken   Status = "taken"
	StatusMissed  Status = "missed"
	StatusSnoozed Status = "snoozed"
	// StatusCancelled: soft-delete por cambio de regla o borrado del
	// medicamento. No cuenta para adherencia.
	StatusCancelled Status = "cancelled"
)

// Action es la acción del usuario sobre una dosis.
// @Enum taken, missed, snoozed
type Action string

const (
	ActionTaken   Action = "taken"
	ActionMissed  Action = "missed"
	ActionSnoozed Action = "snoozed"
)

// DayStatus es el estado agregado de un día de calendario.
// @Enum taken, missed, partial, none
type DayStatus string

const (
	DayTaken   DayStatus = "taken"
	DayMissed  DayStatus = "missed"
	DayPartial DayStatus = "partial"
	DayNone    DayStatus = "none"
)

// resolved indica si el estado ya no admite acción del usuario pendiente.
func (s Status) resolved() bool {
	return s == StatusTaken || s == StatusMissed
}
