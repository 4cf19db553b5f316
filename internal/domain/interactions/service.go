package interactions

import (
	"context"
	"errors"
	"sort"
	"strings"

	"med-adherence/internal/domain/drugs"
	"med-adherence/internal/domain/medications"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrForbidden    = errors.New("forbidden")
)

type Service struct {
	meds  *medications.Service
	drugs *drugs.Service
}

func NewService(meds *medications.Service, drugsSvc *drugs.Service) *Service {
	return &Service{
		meds:  meds,
		drugs: drugsSvc,
	}
}

// Check evalúa interacciones entre los medicamentos indicados del usuario.
// Con medicationIDs vacío chequea todos los medicamentos activos.
// IDs desconocidos y medicamentos sin droga canónica asociada no bloquean:
// se reportan como warnings y se excluyen del chequeo pairwise.
func (s *Service) Check(ctx context.Context, userID string, medicationIDs []string) (Report, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Report{}, ErrInvalidInput
	}

	meds, warns, err := s.resolveMedications(ctx, userID, medicationIDs)
	if err != nil {
		return Report{}, err
	}

	report := Report{Findings: []Finding{}, Warnings: warns}

	type resolved struct {
		med  medications.Medication
		drug drugs.Identity
	}
	chequeables := make([]resolved, 0, len(meds))

	for _, m := range meds {
		if m.DrugID == nil || strings.TrimSpace(*m.DrugID) == "" {
			report.Warnings = append(report.Warnings, Warning{
				MedicationID: m.ID,
				Code:         "unresolved_drug",
				Message:      "medication has no linked drug; interactions not checked for " + m.Name,
			})
			continue
		}
		d, err := s.drugs.GetByID(ctx, *m.DrugID)
		if err != nil {
			if errors.Is(err, drugs.ErrNotFound) {
				report.Warnings = append(report.Warnings, Warning{
					MedicationID: m.ID,
					Code:         "unknown_drug",
					Message:      "linked drug not found in the reference index: " + *m.DrugID,
				})
				continue
			}
			return Report{}, err
		}
		chequeables = append(chequeables, resolved{med: m, drug: d})
	}

	for i := 0; i < len(chequeables); i++ {
		for j := i + 1; j < len(chequeables); j++ {
			a, b := chequeables[i], chequeables[j]
			if a.drug.ID == b.drug.ID {
				continue
			}
			rule, found, err := s.drugs.InteractionBetween(ctx, a.drug.ID, b.drug.ID)
			if err != nil {
				return Report{}, err
			}
			if !found {
				continue
			}
			report.Findings = append(report.Findings, Finding{
				MedicationAID:  a.med.ID,
				MedicationBID:  b.med.ID,
				DrugAName:      a.drug.Name,
				DrugBName:      b.drug.Name,
				Severity:       rule.Severity,
				Description:    rule.Description,
				Recommendation: rule.Recommendation,
			})
		}
	}

	// Más graves primero; dentro de la misma severidad, orden estable por nombres.
	sort.SliceStable(report.Findings, func(i, j int) bool {
		fi, fj := report.Findings[i], report.Findings[j]
		if fi.Severity.Rank() != fj.Severity.Rank() {
			return fi.Severity.Rank() > fj.Severity.Rank()
		}
		return fi.DrugAName+fi.DrugBName < fj.DrugAName+fj.DrugBName
	})

	return report, nil
}

// resolveMedications resuelve los IDs pedidos. Un ID desconocido no corta
// el chequeo: se reporta como warning y se sigue con el resto. Un ID de
// otro usuario sí es error duro.
func (s *Service) resolveMedications(ctx context.Context, userID string, ids []string) ([]medications.Medication, []Warning, error) {
	if len(ids) == 0 {
		all, err := s.meds.ListByUser(ctx, userID)
		if err != nil {
			return nil, nil, err
		}
		active := make([]medications.Medication, 0, len(all))
		for _, m := range all {
			if m.Status == medications.StatusActive {
				active = append(active, m)
			}
		}
		return active, nil, nil
	}

	seen := map[string]struct{}{}
	out := make([]medications.Medication, 0, len(ids))
	var warns []Warning
	for _, raw := range ids {
		id := strings.TrimSpace(raw)
		if id == "" {
			return nil, nil, ErrInvalidInput
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		m, err := s.meds.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, medications.ErrNotFound) {
				warns = append(warns, Warning{
					MedicationID: id,
					Code:         "unknown_medication",
					Message:      "medication not found: " + id,
				})
				continue
			}
			return nil, nil, err
		}
		if m.UserID != userID {
			return nil, nil, ErrForbidden
		}
		out = append(out, m)
	}
	return out, warns, nil
}
