package interactions

import "med-adherence/internal/domain/drugs"

// Finding es una interacción detectada entre dos medicamentos activos
// del usuario, ya resuelta a sus drogas canónicas.
type Finding struct {
	MedicationAID  string         `json:"medication_a_id"`
	MedicationBID  string         `json:"medication_b_id"`
	DrugAName      string         `json:"drug_a_name"`
	DrugBName      string         `json:"drug_b_name"`
	Severity       drugs.Severity `json:"severity"`
	Description    string         `json:"description"`
	Recommendation string         `json:"recommendation"`
}

// Warning anota medicamentos que no pudieron chequearse
// (sin drug_id, o con un drug_id desconocido). No bloquea el chequeo.
type Warning struct {
	MedicationID string `json:"medication_id,omitempty"`
	Code         string `json:"code"`
	Message      string `json:"message"`
}

// Report es el resultado completo de un chequeo.
type Report struct {
	Findings []Finding `json:"findings"`
	Warnings []Warning `json:"warnings,omitempty"`
}
