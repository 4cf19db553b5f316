package doses

import (
	"testing"
	"time"

	"med-adherence/internal/domain/medications"
)

func TestGenerateDue_FixedTimes_TwiceDaily(t *testing.T) {
	rule := medications.Rule{
		Kind:  medications.RuleTimes,
		Times: []string{"08:00", "20:00"},
		Start: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 3)

	got := GenerateDue(rule, from, to)
	if len(got) != 6 {
		t.Fatalf("expected 6 instants over 3 days, got %d: %v", len(got), got)
	}

	want := []time.Time{
		time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 2, 20, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 3, 20, 0, 0, 0, time.UTC),
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Fatalf("instant %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestGenerateDue_FixedTimes_HalfOpenRange(t *testing.T) {
	rule := medications.Rule{
		Kind:  medications.RuleTimes,
		Times: []string{"08:00"},
		Start: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}

	// [08:00 del día 1, 08:00 del día 2): el límite superior queda afuera.
	from := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	got := GenerateDue(rule, from, to)
	if len(got) != 1 {
		t.Fatalf("expected 1 instant, got %d: %v", len(got), got)
	}
	if !got[0].Equal(from) {
		t.Fatalf("expected %v, got %v", from, got[0])
	}
}

func TestGenerateDue_Interval_AnchoredAtStart(t *testing.T) {
	start := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	rule := medications.Rule{
		Kind:          medications.RuleInterval,
		IntervalHours: 8,
		Start:         start,
	}

	// from cae entre dos instantes del tren: el primero generado debe ser
	// el siguiente múltiplo del ancla, no from.
	from := time.Date(2026, 3, 1, 7, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)

	got := GenerateDue(rule, from, to)
	want := []time.Time{
		time.Date(2026, 3, 1, 14, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 1, 22, 0, 0, 0, time.UTC),
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d instants, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Fatalf("instant %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestGenerateDue_RespectsRuleEnd(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC) // inclusivo
	rule := medications.Rule{
		Kind:  medications.RuleTimes,
		Times: []string{"08:00"},
		Start: start,
		End:   &end,
	}

	got := GenerateDue(rule, start, start.AddDate(0, 0, 10))
	if len(got) != 2 {
		t.Fatalf("expected 2 instants (end is inclusive), got %d: %v", len(got), got)
	}
	if !got[1].Equal(end) {
		t.Fatalf("expected last instant at end %v, got %v", end, got[1])
	}
}

func TestGenerateDue_AsNeeded_NoSchedule(t *testing.T) {
	rule := medications.Rule{
		Kind:  medications.RuleAsNeeded,
		Start: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}

	got := GenerateDue(rule, rule.Start, rule.Start.AddDate(0, 0, 7))
	if len(got) != 0 {
		t.Fatalf("as_needed should not generate instants, got %v", got)
	}
}

func TestGenerateDue_EmptyRange(t *testing.T) {
	rule := medications.Rule{
		Kind:  medications.RuleTimes,
		Times: []string{"08:00"},
		Start: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}

	from := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	if got := GenerateDue(rule, from, from); got != nil {
		t.Fatalf("expected nil for empty range, got %v", got)
	}
}
