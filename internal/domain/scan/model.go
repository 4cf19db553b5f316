package scan

import "med-adherence/internal/domain/drugs"

// FieldCandidate es un valor extraído con su confianza individual (0..1).
type FieldCandidate struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// DosageCandidate es la dosis extraída de la etiqueta.
type DosageCandidate struct {
	Amount     float64 `json:"amount"`
	Unit       string  `json:"unit"`
	Confidence float64 `json:"confidence"`
}

// RuleCandidate es la frecuencia extraída, ya mapeada a una forma canónica.
type RuleCandidate struct {
	Kind          string   `json:"kind"` // times | interval | as_needed
	Times         []string `json:"times,omitempty"`
	IntervalHours int      `json:"interval_hours,omitempty"`
	Confidence    float64  `json:"confidence"`
	SourcePhrase  string   `json:"source_phrase,omitempty"`
}

// LabelCandidate es el resultado estructurado de parsear una etiqueta.
// Ningún campo es obligatorio: el parse es best-effort y el usuario
// confirma o corrige antes de crear el medicamento.
type LabelCandidate struct {
	DrugName *FieldCandidate  `json:"drug_name,omitempty"`
	DrugID   string           `json:"drug_id,omitempty"` // seteado si el nombre matcheó el índice local
	Dosage   *DosageCandidate `json:"dosage,omitempty"`
	Rule     *RuleCandidate   `json:"rule,omitempty"`
}

// InteractionAlert es una interacción detectada entre la droga escaneada
// y un medicamento activo del usuario.
type InteractionAlert struct {
	MedicationID   string         `json:"medication_id"`
	MedicationName string         `json:"medication_name"`
	DrugName       string         `json:"drug_name"`
	Severity       drugs.Severity `json:"severity"`
	Description    string         `json:"description"`
	Recommendation string         `json:"recommendation"`
}

// Warning es una degradación no fatal durante la ingesta: el candidato
// se devuelve igual pero alguna parte del pipeline no pudo completarse.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Result es la respuesta completa de una ingesta.
type Result struct {
	RawText           string             `json:"raw_text"`
	OverallConfidence float64            `json:"overall_confidence"`
	Candidate         LabelCandidate     `json:"candidate"`
	Interactions      []InteractionAlert `json:"interactions,omitempty"`
	Warnings          []Warning          `json:"warnings,omitempty"`
}
