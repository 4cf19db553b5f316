package scan

import (
	"context"
	"errors"
	"strings"
	"testing"

	"med-adherence/internal/domain/drugs"
	"med-adherence/internal/domain/medications"
	"med-adherence/internal/ports/ocr"
)

// -------------------------
// Test repos
// -------------------------

type testDrugRepo struct {
	byID           map[string]drugs.Identity
	rules          []drugs.InteractionRule
	interactionErr error
}

func (r *testDrugRepo) GetByID(ctx context.Context, id string) (drugs.Identity, error) {
	d, ok := r.byID[id]
	if !ok {
		return drugs.Identity{}, drugs.ErrNotFound
	}
	return d, nil
}

func (r *testDrugRepo) GetByName(ctx context.Context, name string) (drugs.Identity, error) {
	for _, d := range r.byID {
		if strings.EqualFold(d.Name, name) {
			return d, nil
		}
	}
	return drugs.Identity{}, drugs.ErrNotFound
}

func (r *testDrugRepo) List(ctx context.Context) ([]drugs.Identity, error) {
	out := make([]drugs.Identity, 0, len(r.byID))
	for _, d := range r.byID {
		out = append(out, d)
	}
	return out, nil
}

func (r *testDrugRepo) Search(ctx context.Context, query string, limit int) ([]drugs.Identity, error) {
	return nil, nil
}

func (r *testDrugRepo) InteractionBetween(ctx context.Context, a, b string) (drugs.InteractionRule, bool, error) {
	if r.interactionErr != nil {
		return drugs.InteractionRule{}, false, r.interactionErr
	}
	for _, rule := range r.rules {
		if (rule.DrugA == a && rule.DrugB == b) || (rule.DrugA == b && rule.DrugB == a) {
			return rule, true, nil
		}
	}
	return drugs.InteractionRule{}, false, nil
}

type testMedRepo struct {
	byID map[string]medications.Medication
}

func (r *testMedRepo) Create(ctx context.Context, m medications.Medication) error {
	r.byID[m.ID] = m
	return nil
}

func (r *testMedRepo) Update(ctx context.Context, m medications.Medication) error {
	r.byID[m.ID] = m
	return nil
}

func (r *testMedRepo) GetByID(ctx context.Context, id string) (medications.Medication, error) {
	m, ok := r.byID[id]
	if !ok {
		return medications.Medication{}, medications.ErrNotFound
	}
	return m, nil
}

func (r *testMedRepo) ListByUser(ctx context.Context, userID string) ([]medications.Medication, error) {
	out := make([]medications.Medication, 0)
	for _, m := range r.byID {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *testMedRepo) Delete(ctx context.Context, id string) error {
	delete(r.byID, id)
	return nil
}

type fakeExtractor struct {
	extraction ocr.Extraction
	err        error
}

func (f *fakeExtractor) Extract(ctx context.Context, image []byte, mimeType string) (ocr.Extraction, error) {
	if f.err != nil {
		return ocr.Extraction{}, f.err
	}
	return f.extraction, nil
}

// -------------------------
// Fixture
// -------------------------

func newTestService(extractor ocr.TextExtractor) (*Service, *testMedRepo, *testDrugRepo) {
	drugRepo := &testDrugRepo{byID: map[string]drugs.Identity{}}
	for _, d := range drugs.SeedIdentities() {
		drugRepo.byID[d.ID] = d
	}
	drugRepo.rules = drugs.SeedInteractions()

	medRepo := &testMedRepo{byID: map[string]medications.Medication{}}

	svc := NewService(
		drugs.NewService(drugRepo, nil),
		medications.NewService(medRepo),
		extractor,
		Config{ConfidenceThreshold: DefaultConfidenceThreshold},
	)
	return svc, medRepo, drugRepo
}

// -------------------------
// Tests
// -------------------------

func TestService_Ingest_ParsesTypicalLabel(t *testing.T) {
	svc, _, _ := newTestService(nil)
	ctx := context.Background()

	res, err := svc.Ingest(ctx, "user-1", IngestInput{
		Text: "Metformin 500mg\nTake one tablet twice daily with food",
	})
	if err != nil {
		t.Fatalf("Ingest error: %v", err)
	}

	if res.Candidate.DrugName == nil || res.Candidate.DrugName.Value != "Metformin" {
		t.Fatalf("expected Metformin candidate, got %+v", res.Candidate.DrugName)
	}
	if res.Candidate.DrugID != "drug-metformin" {
		t.Fatalf("expected drug-metformin, got %q", res.Candidate.DrugID)
	}
	if res.Candidate.Dosage == nil || res.Candidate.Dosage.Amount != 500 || res.Candidate.Dosage.Unit != "mg" {
		t.Fatalf("expected 500 mg dosage, got %+v", res.Candidate.Dosage)
	}
	if res.Candidate.Rule == nil || res.Candidate.Rule.Kind != "times" {
		t.Fatalf("expected times rule, got %+v", res.Candidate.Rule)
	}
	if len(res.Candidate.Rule.Times) != 2 || res.Candidate.Rule.Times[0] != "08:00" || res.Candidate.Rule.Times[1] != "20:00" {
		t.Fatalf("expected twice-daily defaults, got %v", res.Candidate.Rule.Times)
	}
	if res.OverallConfidence < DefaultConfidenceThreshold {
		t.Fatalf("expected confidence above threshold, got %f", res.OverallConfidence)
	}
}

func TestService_Ingest_ToleratesOCRGlyphConfusion(t *testing.T) {
	svc, _, _ := newTestService(nil)
	ctx := context.Background()

	// El cero por la o y el uno por la ele son confusiones comunes
	// en etiquetas impresas.
	res, err := svc.Ingest(ctx, "user-1", IngestInput{Text: "Metf0rm1n 500 mg"})
	if err != nil {
		t.Fatalf("Ingest error: %v", err)
	}
	if res.Candidate.DrugID != "drug-metformin" {
		t.Fatalf("expected fuzzy match to drug-metformin, got %q", res.Candidate.DrugID)
	}
}

func TestService_Ingest_IntervalFrequency(t *testing.T) {
	svc, _, _ := newTestService(nil)
	ctx := context.Background()

	res, err := svc.Ingest(ctx, "user-1", IngestInput{Text: "Take every 8 hours"})
	if err != nil {
		t.Fatalf("Ingest error: %v", err)
	}
	if res.Candidate.Rule == nil || res.Candidate.Rule.Kind != "interval" || res.Candidate.Rule.IntervalHours != 8 {
		t.Fatalf("expected 8h interval rule, got %+v", res.Candidate.Rule)
	}
}

func TestService_Ingest_AsNeeded(t *testing.T) {
	svc, _, _ := newTestService(nil)
	ctx := context.Background()

	res, err := svc.Ingest(ctx, "user-1", IngestInput{Text: "Ibuprofen 200mg as needed for pain"})
	if err != nil {
		t.Fatalf("Ingest error: %v", err)
	}
	if res.Candidate.Rule == nil || res.Candidate.Rule.Kind != "as_needed" {
		t.Fatalf("expected as_needed rule, got %+v", res.Candidate.Rule)
	}
}

func TestService_Ingest_UnreadableLabel(t *testing.T) {
	svc, _, _ := newTestService(nil)
	ctx := context.Background()

	_, err := svc.Ingest(ctx, "user-1", IngestInput{Text: "   "})
	if !errors.Is(err, ErrEmptyScan) {
		t.Fatalf("expected ErrEmptyScan, got %v", err)
	}
}

func TestService_Ingest_ImageWithoutExtractor(t *testing.T) {
	svc, _, _ := newTestService(nil)
	ctx := context.Background()

	_, err := svc.Ingest(ctx, "user-1", IngestInput{Image: []byte{0x89, 0x50}, MimeType: "image/png"})
	if !errors.Is(err, ErrOCRUnavailable) {
		t.Fatalf("expected ErrOCRUnavailable, got %v", err)
	}
}

func TestService_Ingest_ImageUsesExtractor(t *testing.T) {
	extractor := &fakeExtractor{extraction: ocr.Extraction{
		Text:       "Lisinopril 10mg once daily",
		Confidence: 0.95,
	}}
	svc, _, _ := newTestService(extractor)
	ctx := context.Background()

	res, err := svc.Ingest(ctx, "user-1", IngestInput{Image: []byte("fake-bytes"), MimeType: "image/jpeg"})
	if err != nil {
		t.Fatalf("Ingest error: %v", err)
	}
	if res.Candidate.DrugID != "drug-lisinopril" {
		t.Fatalf("expected drug-lisinopril, got %q", res.Candidate.DrugID)
	}
	// La confianza del OCR escala la confianza global.
	if res.OverallConfidence >= 0.95 {
		t.Fatalf("ocr confidence must scale the overall score, got %f", res.OverallConfidence)
	}
}

func TestService_Ingest_EagerInteractionAlert(t *testing.T) {
	svc, medRepo, _ := newTestService(nil)
	ctx := context.Background()

	warfarinID := "drug-warfarin"
	medRepo.byID["med-w"] = medications.Medication{
		ID:     "med-w",
		UserID: "user-1",
		Name:   "Warfarin 5mg",
		DrugID: &warfarinID,
		Status: medications.StatusActive,
	}

	res, err := svc.Ingest(ctx, "user-1", IngestInput{Text: "Ibuprofen 200mg twice daily"})
	if err != nil {
		t.Fatalf("Ingest error: %v", err)
	}
	if len(res.Interactions) != 1 {
		t.Fatalf("expected 1 interaction alert, got %d", len(res.Interactions))
	}
	alert := res.Interactions[0]
	if alert.MedicationID != "med-w" || alert.Severity != drugs.SeveritySevere {
		t.Fatalf("unexpected alert: %+v", alert)
	}
}

func TestService_Ingest_NoAlertsForOtherUsersMeds(t *testing.T) {
	svc, medRepo, _ := newTestService(nil)
	ctx := context.Background()

	warfarinID := "drug-warfarin"
	medRepo.byID["med-w"] = medications.Medication{
		ID:     "med-w",
		UserID: "user-2",
		Name:   "Warfarin 5mg",
		DrugID: &warfarinID,
		Status: medications.StatusActive,
	}

	res, err := svc.Ingest(ctx, "user-1", IngestInput{Text: "Ibuprofen 200mg twice daily"})
	if err != nil {
		t.Fatalf("Ingest error: %v", err)
	}
	if len(res.Interactions) != 0 {
		t.Fatalf("expected no alerts, got %d", len(res.Interactions))
	}
}

func TestService_Ingest_AlertsDespiteLowOCRConfidence(t *testing.T) {
	// Un OCR mediocre baja la confianza global, pero si el nombre de la
	// droga matcheó con certeza el chequeo de seguridad corre igual.
	extractor := &fakeExtractor{extraction: ocr.Extraction{
		Text:       "Warfarin 5mg once daily",
		Confidence: 0.69,
	}}
	svc, medRepo, _ := newTestService(extractor)
	ctx := context.Background()

	ibuprofenID := "drug-ibuprofen"
	medRepo.byID["med-i"] = medications.Medication{
		ID:     "med-i",
		UserID: "user-1",
		Name:   "Ibuprofen 200mg",
		DrugID: &ibuprofenID,
		Status: medications.StatusActive,
	}

	res, err := svc.Ingest(ctx, "user-1", IngestInput{Image: []byte("fake-bytes"), MimeType: "image/jpeg"})
	if err != nil {
		t.Fatalf("Ingest error: %v", err)
	}
	if res.OverallConfidence >= DefaultConfidenceThreshold {
		t.Fatalf("fixture should land below the overall threshold, got %f", res.OverallConfidence)
	}
	if res.Candidate.DrugName == nil || res.Candidate.DrugName.Confidence < DefaultConfidenceThreshold {
		t.Fatalf("expected a confident name match, got %+v", res.Candidate.DrugName)
	}
	if len(res.Interactions) != 1 {
		t.Fatalf("expected 1 interaction alert, got %d", len(res.Interactions))
	}
	if res.Interactions[0].MedicationID != "med-i" || res.Interactions[0].Severity != drugs.SeveritySevere {
		t.Fatalf("unexpected alert: %+v", res.Interactions[0])
	}
}

func TestService_Ingest_InteractionLookupFailureDegradesToWarning(t *testing.T) {
	svc, medRepo, drugRepo := newTestService(nil)
	ctx := context.Background()

	warfarinID := "drug-warfarin"
	medRepo.byID["med-w"] = medications.Medication{
		ID:     "med-w",
		UserID: "user-1",
		Name:   "Warfarin 5mg",
		DrugID: &warfarinID,
		Status: medications.StatusActive,
	}
	drugRepo.interactionErr = errors.New("connection refused")

	res, err := svc.Ingest(ctx, "user-1", IngestInput{Text: "Ibuprofen 200mg twice daily"})
	if err != nil {
		t.Fatalf("expected the candidate back despite the lookup failure, got %v", err)
	}
	if res.Candidate.DrugID != "drug-ibuprofen" {
		t.Fatalf("expected drug-ibuprofen candidate, got %q", res.Candidate.DrugID)
	}
	if len(res.Interactions) != 0 {
		t.Fatalf("expected no alerts, got %d", len(res.Interactions))
	}
	if len(res.Warnings) != 1 || res.Warnings[0].Code != "upstream_unavailable" {
		t.Fatalf("expected an upstream_unavailable warning, got %+v", res.Warnings)
	}
}

func TestParseDosage_CanonicalUnits(t *testing.T) {
	cases := []struct {
		text   string
		amount float64
		unit   string
	}{
		{"take 2 tabs daily", 2, "tablet"},
		{"1 capsule at bedtime", 1, "capsule"},
		{"insulin 10 units", 10, "iu"},
		{"0.5 ml twice daily", 0.5, "ml"},
	}
	for _, c := range cases {
		got := parseDosage(c.text)
		if got == nil {
			t.Fatalf("%q: expected a dosage candidate", c.text)
		}
		if got.Amount != c.amount || got.Unit != c.unit {
			t.Fatalf("%q: got %+v", c.text, got)
		}
	}
}

func TestContainsPhrase_WordBoundaries(t *testing.T) {
	if containsPhrase("this is forbidden text", "bid") {
		t.Fatalf("bid must not match inside forbidden")
	}
	if !containsPhrase("take 1 tab bid with food", "bid") {
		t.Fatalf("bid should match as a standalone word")
	}
}
