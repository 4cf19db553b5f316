package medications

import (
	"context"
	"errors"
	"testing"
	"time"
)

// -------------------------
// Test repo (in-memory)
// -------------------------

type testRepo struct {
	byID map[string]Medication
}

func newTestRepo() *testRepo {
	return &testRepo{byID: map[string]Medication{}}
}

func (r *testRepo) Create(ctx context.Context, m Medication) error {
	if m.ID == "" {
		return errors.New("repo: id required")
	}
	if _, ok := r.byID[m.ID]; ok {
		return errors.New("repo: already exists")
	}
	r.byID[m.ID] = m
	return nil
}

func (r *testRepo) Update(ctx context.Context, m Medication) error {
	if _, ok := r.byID[m.ID]; !ok {
		return ErrNotFound
	}
	r.byID[m.ID] = m
	return nil
}

func (r *testRepo) GetByID(ctx context.Context, id string) (Medication, error) {
	m, ok := r.byID[id]
	if !ok {
		return Medication{}, ErrNotFound
	}
	return m, nil
}

func (r *testRepo) ListByUser(ctx context.Context, userID string) ([]Medication, error) {
	out := make([]Medication, 0)
	for _, m := range r.byID {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *testRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.byID[id]; !ok {
		return ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

// testCanceller registra las cancelaciones pedidas al módulo de dosis.
type testCanceller struct {
	calls []time.Time
}

func (c *testCanceller) CancelPendingFrom(ctx context.Context, medicationID string, from time.Time) (int, error) {
	c.calls = append(c.calls, from)
	return 1, nil
}

// -------------------------
// Tests
// -------------------------

func TestService_Create_NormalizesTimesRule(t *testing.T) {
	svc := NewService(newTestRepo())

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	m, err := svc.Create(context.Background(), "user-1", CreateInput{
		Name:         "Metformin",
		DosageAmount: 500,
		DosageUnit:   "mg",
		Rule: RuleInput{
			Kind:  RuleTimes,
			Times: []string{"20:00", "08:00", "08:00"}, // desorden + duplicado
		},
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if len(m.Rule.Times) != 2 || m.Rule.Times[0] != "08:00" || m.Rule.Times[1] != "20:00" {
		t.Fatalf("expected deduped sorted times, got %v", m.Rule.Times)
	}
	if !m.Rule.Start.Equal(now) {
		t.Fatalf("expected start defaulted to now, got %v", m.Rule.Start)
	}
	if m.Status != StatusActive {
		t.Fatalf("expected active, got %s", m.Status)
	}
	if m.LowStockThreshold != 7 {
		t.Fatalf("expected default threshold 7, got %d", m.LowStockThreshold)
	}
}

func TestService_Create_RejectsBadRules(t *testing.T) {
	svc := NewService(newTestRepo())

	cases := []RuleInput{
		{Kind: RuleTimes},                               // sin horarios
		{Kind: RuleTimes, Times: []string{"25:00"}},     // hora inválida
		{Kind: RuleInterval, IntervalHours: 0},          // intervalo fuera de rango
		{Kind: RuleInterval, IntervalHours: 49},         // intervalo fuera de rango
		{Kind: RuleKind("weekly")},                      // kind desconocido
	}
	for i, rule := range cases {
		_, err := svc.Create(context.Background(), "user-1", CreateInput{
			Name: "X",
			Rule: rule,
		})
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("case %d: expected ErrInvalidInput, got %v", i, err)
		}
	}
}

func TestService_Create_RejectsEndBeforeStart(t *testing.T) {
	svc := NewService(newTestRepo())

	start := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, -1)
	_, err := svc.Create(context.Background(), "user-1", CreateInput{
		Name: "X",
		Rule: RuleInput{Kind: RuleTimes, Times: []string{"08:00"}, Start: start, End: &end},
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestService_Update_RuleChange_CancelsFutureDoses(t *testing.T) {
	repo := newTestRepo()
	svc := NewService(repo)
	canceller := &testCanceller{}
	svc.SetDoseCanceller(canceller)

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	m, err := svc.Create(context.Background(), "user-1", CreateInput{
		Name: "Metformin",
		Rule: RuleInput{Kind: RuleTimes, Times: []string{"08:00"}},
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	later := now.Add(time.Hour)
	svc.now = func() time.Time { return later }

	newRule := RuleInput{Kind: RuleInterval, IntervalHours: 12}
	if _, err := svc.Update(context.Background(), m.ID, UpdateInput{Rule: &newRule}); err != nil {
		t.Fatalf("Update error: %v", err)
	}

	if len(canceller.calls) != 1 {
		t.Fatalf("expected 1 cancellation on rule change, got %d", len(canceller.calls))
	}
	if !canceller.calls[0].Equal(later) {
		t.Fatalf("cancellation must be prospective (from now), got %v", canceller.calls[0])
	}
}

func TestService_Update_NoRuleChange_NoCancellation(t *testing.T) {
	svc := NewService(newTestRepo())
	canceller := &testCanceller{}
	svc.SetDoseCanceller(canceller)

	m, err := svc.Create(context.Background(), "user-1", CreateInput{
		Name: "Metformin",
		Rule: RuleInput{Kind: RuleTimes, Times: []string{"08:00"}},
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	notes := "con comida"
	if _, err := svc.Update(context.Background(), m.ID, UpdateInput{Notes: &notes}); err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if len(canceller.calls) != 0 {
		t.Fatalf("notes-only update must not cancel doses, got %d calls", len(canceller.calls))
	}
}

func TestService_Delete_CancelsAllPending(t *testing.T) {
	svc := NewService(newTestRepo())
	canceller := &testCanceller{}
	svc.SetDoseCanceller(canceller)

	m, err := svc.Create(context.Background(), "user-1", CreateInput{
		Name: "Metformin",
		Rule: RuleInput{Kind: RuleAsNeeded},
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	if err := svc.Delete(context.Background(), m.ID); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if len(canceller.calls) != 1 || !canceller.calls[0].IsZero() {
		t.Fatalf("expected cancellation with zero from (all pending), got %+v", canceller.calls)
	}
}

func TestService_DecrementSupply(t *testing.T) {
	repo := newTestRepo()
	svc := NewService(repo)

	count := 2
	repo.byID["med-1"] = Medication{
		ID:                "med-1",
		UserID:            "user-1",
		Name:              "Metformin",
		PillCount:         &count,
		LowStockThreshold: 1,
		Status:            StatusActive,
	}

	// 2 -> 1 == threshold: low.
	m, warning, err := svc.DecrementSupply(context.Background(), "med-1")
	if err != nil {
		t.Fatalf("DecrementSupply error: %v", err)
	}
	if *m.PillCount != 1 || warning != SupplyLow {
		t.Fatalf("expected count 1 with low_supply, got %d / %s", *m.PillCount, warning)
	}

	// 1 -> 0: sigue low.
	m, warning, err = svc.DecrementSupply(context.Background(), "med-1")
	if err != nil {
		t.Fatalf("DecrementSupply error: %v", err)
	}
	if *m.PillCount != 0 || warning != SupplyLow {
		t.Fatalf("expected count 0 with low_supply, got %d / %s", *m.PillCount, warning)
	}

	// En cero: no decrementa, reporta insufficient.
	m, warning, err = svc.DecrementSupply(context.Background(), "med-1")
	if err != nil {
		t.Fatalf("DecrementSupply error: %v", err)
	}
	if *m.PillCount != 0 || warning != SupplyInsufficient {
		t.Fatalf("expected count 0 with insufficient_supply, got %d / %s", *m.PillCount, warning)
	}
}

func TestService_DecrementSupply_NoTracking(t *testing.T) {
	repo := newTestRepo()
	svc := NewService(repo)

	repo.byID["med-1"] = Medication{ID: "med-1", UserID: "user-1", Name: "X", Status: StatusActive}

	_, warning, err := svc.DecrementSupply(context.Background(), "med-1")
	if err != nil {
		t.Fatalf("DecrementSupply error: %v", err)
	}
	if warning != SupplyOK {
		t.Fatalf("expected no warning without pill tracking, got %s", warning)
	}
}
