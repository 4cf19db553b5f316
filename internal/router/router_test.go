package router_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"med-adherence/internal/domain/caregivers"
	"med-adherence/internal/router"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	h, _ := router.NewRouter(router.Options{AuthVerifier: nil})
	return httptest.NewServer(h)
}

func TestHTTP_EndToEnd_ScheduleAndAdherence(t *testing.T) {
	ts := newTestServer(t)
	defer ts.Close()

	patientID := "patient-1"

	// 1) Paciente crea medicamento con regla de horarios fijos
	medID := createMedication(t, ts.URL, patientID, map[string]any{
		"name":          "Metformin 500mg",
		"drug_id":       "drug-metformin",
		"dosage_amount": 500,
		"dosage_unit":   "mg",
		"rule": map[string]any{
			"kind":  "times",
			"times": []string{"08:00", "20:00"},
			"start": "2026-01-01T00:00:00Z",
		},
	})

	// 2) Genera calendario para 3 días => 6 dosis
	var schedule []map[string]any
	{
		st, body := doReq(t, ts.URL, "POST", "/medications/"+medID+"/schedule", patientID, map[string]any{
			"from": "2026-02-01",
			"to":   "2026-02-04",
		})
		if st != http.StatusOK {
			t.Fatalf("expected 200 generate schedule, got %d body=%s", st, string(body))
		}
		if err := json.Unmarshal(body, &schedule); err != nil {
			t.Fatalf("unmarshal schedule: %v", err)
		}
		if len(schedule) != 6 {
			t.Fatalf("expected 6 doses for 3 days, got %d", len(schedule))
		}
	}

	// 3) Regenerar el mismo rango es idempotente
	{
		st, body := doReq(t, ts.URL, "POST", "/medications/"+medID+"/schedule", patientID, map[string]any{
			"from": "2026-02-01",
			"to":   "2026-02-04",
		})
		if st != http.StatusOK {
			t.Fatalf("expected 200 regenerate, got %d body=%s", st, string(body))
		}
		var again []map[string]any
		_ = json.Unmarshal(body, &again)
		if len(again) != 6 {
			t.Fatalf("regenerate must not duplicate, got %d doses", len(again))
		}
	}

	doseID, _ := schedule[0]["id"].(string)
	scheduledAt, _ := schedule[0]["scheduled_at"].(string)
	if doseID == "" || scheduledAt == "" {
		t.Fatalf("schedule items must carry id and scheduled_at: %+v", schedule[0])
	}

	// 4) Resuelve la primera dosis como tomada (con instante explícito)
	{
		st, body := doReq(t, ts.URL, "POST", "/doses/"+doseID+"/resolve", patientID, map[string]any{
			"action": "taken",
			"at":     "2026-02-01T08:25:00Z",
		})
		if st != http.StatusOK {
			t.Fatalf("expected 200 resolve taken, got %d body=%s", st, string(body))
		}
		var resp struct {
			Dose map[string]any `json:"dose"`
		}
		_ = json.Unmarshal(body, &resp)
		if resp.Dose["status"] != "taken" {
			t.Fatalf("expected taken, got %v", resp.Dose["status"])
		}
		// El horario programado no cambia con una toma tardía.
		if resp.Dose["scheduled_at"] != scheduledAt {
			t.Fatalf("scheduled_at must not move: %v vs %v", resp.Dose["scheduled_at"], scheduledAt)
		}
	}

	// 5) Replay de la misma resolución => 409
	{
		st, _ := doReq(t, ts.URL, "POST", "/doses/"+doseID+"/resolve", patientID, map[string]any{
			"action": "taken",
		})
		if st != http.StatusConflict {
			t.Fatalf("expected 409 on replay, got %d", st)
		}
	}

	// 6) Reporte de adherencia sobre el rango
	{
		st, body := doReq(t, ts.URL, "GET", "/adherence?from=2026-02-01&to=2026-02-04", patientID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 adherence, got %d body=%s", st, string(body))
		}
		var report struct {
			Days       []map[string]any `json:"days"`
			Percentage *float64         `json:"percentage"`
		}
		if err := json.Unmarshal(body, &report); err != nil {
			t.Fatalf("unmarshal adherence: %v", err)
		}
		if len(report.Days) != 3 {
			t.Fatalf("expected 3 days, got %d", len(report.Days))
		}
		if report.Percentage == nil || *report.Percentage != 100 {
			t.Fatalf("expected 100%% over resolved events, got %v", report.Percentage)
		}
	}
}

func TestHTTP_EndToEnd_CaregiverSharing(t *testing.T) {
	ts := newTestServer(t)
	defer ts.Close()

	patientID := "patient-1"
	caregiverID := "caregiver-1"

	medID := createMedication(t, ts.URL, patientID, map[string]any{
		"name":          "Lisinopril 10mg",
		"drug_id":       "drug-lisinopril",
		"dosage_amount": 10,
		"dosage_unit":   "mg",
		"rule": map[string]any{
			"kind":  "times",
			"times": []string{"09:00"},
			"start": "2026-01-01T00:00:00Z",
		},
	})

	// Sin grant, el caregiver no ve nada del paciente
	{
		st, _ := doReq(t, ts.URL, "GET", "/medications/"+medID, caregiverID, nil)
		if st != http.StatusForbidden {
			t.Fatalf("expected 403 before grant, got %d", st)
		}
	}
	{
		st, _ := doReq(t, ts.URL, "GET", "/medications?user_id="+patientID, caregiverID, nil)
		if st != http.StatusForbidden {
			t.Fatalf("expected 403 listing before grant, got %d", st)
		}
	}

	// Paciente invita con scopes de lectura
	grantID := inviteGrant(t, ts.URL, patientID, caregiverID, []string{
		string(caregivers.ScopeMedsRead),
		string(caregivers.ScopeDosesRead),
		string(caregivers.ScopeAdherenceRead),
	})

	// El caregiver ve su invitación pendiente
	{
		st, body := doReq(t, ts.URL, "GET", "/me/grants", caregiverID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 my grants, got %d body=%s", st, string(body))
		}
	}

	// Invitado pero sin aceptar: sigue sin acceso
	{
		st, _ := doReq(t, ts.URL, "GET", "/medications/"+medID, caregiverID, nil)
		if st != http.StatusForbidden {
			t.Fatalf("expected 403 while invited, got %d", st)
		}
	}

	// Acepta y gana acceso de lectura
	{
		st, body := doReq(t, ts.URL, "POST", "/grants/"+grantID+"/accept", caregiverID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 accept, got %d body=%s", st, string(body))
		}
	}
	{
		st, body := doReq(t, ts.URL, "GET", "/medications/"+medID, caregiverID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 get med as caregiver, got %d body=%s", st, string(body))
		}
	}
	{
		st, body := doReq(t, ts.URL, "GET", "/adherence?user_id="+patientID+"&from=2026-02-01&to=2026-02-02", caregiverID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 adherence as caregiver, got %d body=%s", st, string(body))
		}
	}

	// Sin meds:edit no puede modificar
	{
		st, _ := doReq(t, ts.URL, "PATCH", "/medications/"+medID, caregiverID, map[string]any{
			"notes": "should fail",
		})
		if st != http.StatusForbidden {
			t.Fatalf("expected 403 patch without meds:edit, got %d", st)
		}
	}

	// Revocación corta el acceso de inmediato
	{
		st, body := doReq(t, ts.URL, "POST", "/grants/"+grantID+"/revoke", patientID, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 revoke, got %d body=%s", st, string(body))
		}
	}
	{
		st, _ := doReq(t, ts.URL, "GET", "/medications/"+medID, caregiverID, nil)
		if st != http.StatusForbidden {
			t.Fatalf("expected 403 after revoke, got %d", st)
		}
	}
}

func TestHTTP_InviteGrant_RejectsUnknownScope(t *testing.T) {
	ts := newTestServer(t)
	defer ts.Close()

	st, _ := doReq(t, ts.URL, "POST", "/grants", "patient-1", map[string]any{
		"caregiver_user_id": "caregiver-1",
		"scopes":            []string{"meds:read", "meds:unknown"},
	})
	if st != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown scope, got %d", st)
	}
}

func TestHTTP_InteractionsCheck(t *testing.T) {
	ts := newTestServer(t)
	defer ts.Close()

	patientID := "patient-1"

	createMedication(t, ts.URL, patientID, map[string]any{
		"name":          "Warfarin 5mg",
		"drug_id":       "drug-warfarin",
		"dosage_amount": 5,
		"dosage_unit":   "mg",
		"rule": map[string]any{
			"kind":  "times",
			"times": []string{"09:00"},
			"start": "2026-01-01T00:00:00Z",
		},
	})
	createMedication(t, ts.URL, patientID, map[string]any{
		"name":          "Ibuprofen 200mg",
		"drug_id":       "drug-ibuprofen",
		"dosage_amount": 200,
		"dosage_unit":   "mg",
		"rule": map[string]any{
			"kind": "as_needed",
		},
	})

	// Body vacío => chequea todos los activos
	st, body := doReq(t, ts.URL, "POST", "/interactions/check", patientID, nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 check, got %d body=%s", st, string(body))
	}
	var report struct {
		Findings []map[string]any `json:"findings"`
	}
	if err := json.Unmarshal(body, &report); err != nil {
		t.Fatalf("unmarshal report: %v", err)
	}
	if len(report.Findings) != 1 {
		t.Fatalf("expected 1 finding, got %d body=%s", len(report.Findings), string(body))
	}
	if report.Findings[0]["severity"] != "severe" {
		t.Fatalf("expected severe, got %v", report.Findings[0]["severity"])
	}
}

func TestHTTP_ScanLabel(t *testing.T) {
	ts := newTestServer(t)
	defer ts.Close()

	st, body := doReq(t, ts.URL, "POST", "/scan", "patient-1", map[string]any{
		"text": "Metformin 500mg\nTake one tablet twice daily",
	})
	if st != http.StatusOK {
		t.Fatalf("expected 200 scan, got %d body=%s", st, string(body))
	}

	var res struct {
		Candidate struct {
			DrugID string `json:"drug_id"`
			Dosage struct {
				Amount float64 `json:"amount"`
				Unit   string  `json:"unit"`
			} `json:"dosage"`
			Rule struct {
				Kind  string   `json:"kind"`
				Times []string `json:"times"`
			} `json:"rule"`
		} `json:"candidate"`
	}
	if err := json.Unmarshal(body, &res); err != nil {
		t.Fatalf("unmarshal scan result: %v", err)
	}
	if res.Candidate.DrugID != "drug-metformin" {
		t.Fatalf("expected drug-metformin, got %q", res.Candidate.DrugID)
	}
	if res.Candidate.Dosage.Amount != 500 || res.Candidate.Dosage.Unit != "mg" {
		t.Fatalf("expected 500 mg, got %+v", res.Candidate.Dosage)
	}
	if res.Candidate.Rule.Kind != "times" || len(res.Candidate.Rule.Times) != 2 {
		t.Fatalf("expected twice-daily rule, got %+v", res.Candidate.Rule)
	}

	// Sin motor de OCR configurado, una imagen => 503
	st, _ = doReq(t, ts.URL, "POST", "/scan", "patient-1", map[string]any{
		"image_base64": "aGVsbG8=",
		"mime_type":    "image/png",
	})
	if st != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without ocr engine, got %d", st)
	}
}

func createMedication(t *testing.T, baseURL, userID string, payload map[string]any) string {
	t.Helper()

	st, body := doReq(t, baseURL, "POST", "/medications", userID, payload)
	if st != http.StatusCreated {
		t.Fatalf("expected 201 create medication, got %d body=%s", st, string(body))
	}

	var resp struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(body, &resp)
	if resp.ID == "" {
		t.Fatalf("create medication: missing id body=%s", string(body))
	}
	return resp.ID
}

func inviteGrant(t *testing.T, baseURL, patientID, caregiverID string, scopes []string) string {
	t.Helper()

	st, body := doReq(t, baseURL, "POST", "/grants", patientID, map[string]any{
		"caregiver_user_id": caregiverID,
		"scopes":            scopes,
	})
	if st != http.StatusCreated {
		t.Fatalf("expected 201 invite grant, got %d body=%s", st, string(body))
	}

	var resp struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(body, &resp)
	if resp.ID == "" {
		t.Fatalf("invite grant: missing id body=%s", string(body))
	}
	return resp.ID
}

func doReq(t *testing.T, baseURL, method, path, debugUserID string, body any) (int, []byte) {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("json marshal: %v", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, baseURL+path, rdr)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if debugUserID != "" {
		req.Header.Set("X-Debug-User-ID", debugUserID)
	}

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()

	respBody, _ := io.ReadAll(res.Body)
	return res.StatusCode, respBody
}
