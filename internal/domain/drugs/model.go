package drugs

// Severity de una interacción conocida entre dos drogas.
// @Enum none, moderate, severe
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
)

// Rank permite ordenar severidades (mayor = más grave).
func (s Severity) Rank() int {
	switch s {
	case SeveritySevere:
		return 2
	case SeverityModerate:
		return 1
	default:
		return 0
	}
}

// Identity es el registro canónico de una droga.
// Data de referencia: se lee mucho, no se muta desde este core.
type Identity struct {
	ID          string
	Name        string
	GenericName string
	BrandNames  []string
	Category    string
}

// InteractionRule describe una interacción conocida entre dos identidades.
// El par (DrugA, DrugB) es no-ordenado; se guarda una sola vez.
type InteractionRule struct {
	DrugA          string
	DrugB          string
	Severity       Severity
	Description    string
	Recommendation string
}
