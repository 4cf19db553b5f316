package medications

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"med-adherence/internal/domain/caregivers"
	"med-adherence/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service, grantsSvc *caregivers.Service) {
	r.Route("/medications", func(mr chi.Router) {
		mr.Post("/", createMedicationHandler(svc))
		mr.Get("/", listMedicationsHandler(svc, grantsSvc))

		mr.Route("/{medicationID}", func(ir chi.Router) {
			ir.Get("/", getMedicationHandler(svc, grantsSvc))
			ir.Patch("/", updateMedicationHandler(svc, grantsSvc))
			ir.Delete("/", deleteMedicationHandler(svc))
		})
	})
}

type ruleRequest struct {
	Kind          RuleKind   `json:"kind"`
	Times         []string   `json:"times,omitempty"`
	IntervalHours int        `json:"interval_hours,omitempty"`
	Start         time.Time  `json:"start"`
	End           *time.Time `json:"end,omitempty"`
}

type createMedicationRequest struct {
	Name    string  `json:"name"`
	DrugID  *string `json:"drug_id,omitempty"`
	Purpose string  `json:"purpose,omitempty"`

	DosageAmount float64 `json:"dosage_amount"`
	DosageUnit   string  `json:"dosage_unit"`

	Rule ruleRequest `json:"rule"`

	PillCount         *int   `json:"pill_count,omitempty"`
	LowStockThreshold int    `json:"low_stock_threshold,omitempty"`
	Notes             string `json:"notes,omitempty"`
}

type updateMedicationRequest struct {
	Name    *string `json:"name,omitempty"`
	DrugID  *string `json:"drug_id,omitempty"`
	Purpose *string `json:"purpose,omitempty"`

	DosageAmount *float64 `json:"dosage_amount,omitempty"`
	DosageUnit   *string  `json:"dosage_unit,omitempty"`

	Rule *ruleRequest `json:"rule,omitempty"`

	PillCount         *int    `json:"pill_count,omitempty"`
	LowStockThreshold *int    `json:"low_stock_threshold,omitempty"`
	Status            *Status `json:"status,omitempty"`
	Notes             *string `json:"notes,omitempty"`
}

type medicationResponse struct {
	ID      string  `json:"id"`
	UserID  string  `json:"user_id"`
	Name    string  `json:"name"`
	DrugID  *string `json:"drug_id,omitempty"`
	Purpose string  `json:"purpose,omitempty"`

	DosageAmount float64 `json:"dosage_amount"`
	DosageUnit   string  `json:"dosage_unit"`

	Rule ruleRequest `json:"rule"`

	PillCount         *int   `json:"pill_count,omitempty"`
	LowStockThreshold int    `json:"low_stock_threshold"`
	Status            Status `json:"status"`
	Notes             string `json:"notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// createMedicationHandler godoc
// @Summary Crear un medicamento
// @Description Registra un medicamento del usuario autenticado con su regla de horario. La regla debe ser `times`, `interval` o `as_needed`.
// @Tags medications
// @Accept json
// @Produce json
// @Param payload body createMedicationRequest true "Medicamento"
// @Success 201 {object} medicationResponse
// @Failure 400 {string} string "input inválido"
// @Failure 401 {string} string "unauthorized"
// @Router /medications [post]
func createMedicationHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req createMedicationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		m, err := svc.Create(r.Context(), claims.UserID, CreateInput{
			Name:              req.Name,
			DrugID:            req.DrugID,
			Purpose:           req.Purpose,
			DosageAmount:      req.DosageAmount,
			DosageUnit:        req.DosageUnit,
			Rule:              toRuleInput(req.Rule),
			PillCount:         req.PillCount,
			LowStockThreshold: req.LowStockThreshold,
			Notes:             req.Notes,
		})
		if err != nil {
			writeMedError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toMedicationResponse(m))
	}
}

// listMedicationsHandler godoc
// @Summary Listar medicamentos
// @Description Lista los medicamentos del usuario autenticado. Con `user_id` un caregiver con scope `meds:read` puede listar los del paciente.
// @Tags medications
// @Produce json
// @Param user_id query string false "Paciente (solo caregivers con grant activo)"
// @Success 200 {array} medicationResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Router /medications [get]
func listMedicationsHandler(svc *Service, grantsSvc *caregivers.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		owner := claims.UserID
		if qid := strings.TrimSpace(r.URL.Query().Get("user_id")); qid != "" {
			owner = qid
		}
		if !canAccess(r, grantsSvc, owner, claims.UserID, caregivers.ScopeMedsRead) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		items, err := svc.ListByUser(r.Context(), owner)
		if err != nil {
			writeMedError(w, err)
			return
		}

		out := make([]medicationResponse, 0, len(items))
		for _, m := range items {
			out = append(out, toMedicationResponse(m))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// getMedicationHandler godoc
// @Summary Obtener un medicamento
// @Tags medications
// @Produce json
// @Param medicationID path string true "ID del medicamento"
// @Success 200 {object} medicationResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "not found"
// @Router /medications/{medicationID} [get]
func getMedicationHandler(svc *Service, grantsSvc *caregivers.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		m, err := svc.GetByID(r.Context(), chi.URLParam(r, "medicationID"))
		if err != nil {
			writeMedError(w, err)
			return
		}
		if !canAccess(r, grantsSvc, m.UserID, claims.UserID, caregivers.ScopeMedsRead) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		writeJSON(w, http.StatusOK, toMedicationResponse(m))
	}
}

// updateMedicationHandler godoc
// @Summary Actualizar un medicamento
// @Description Actualización parcial. Si cambia la regla, las dosis pendientes futuras de la regla vieja se cancelan; el historial no se toca.
// @Tags medications
// @Accept json
// @Produce json
// @Param medicationID path string true "ID del medicamento"
// @Param payload body updateMedicationRequest true "Campos a actualizar"
// @Success 200 {object} medicationResponse
// @Failure 400 {string} string "input inválido"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "not found"
// @Router /medications/{medicationID} [patch]
func updateMedicationHandler(svc *Service, grantsSvc *caregivers.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		id := chi.URLParam(r, "medicationID")
		owner, err := svc.OwnerOf(r.Context(), id)
		if err != nil {
			writeMedError(w, err)
			return
		}
		if !canAccess(r, grantsSvc, owner, claims.UserID, caregivers.ScopeMedsEdit) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		var req updateMedicationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		var rule *RuleInput
		if req.Rule != nil {
			ri := toRuleInput(*req.Rule)
			rule = &ri
		}

		m, err := svc.Update(r.Context(), id, UpdateInput{
			Name:              req.Name,
			DrugID:            req.DrugID,
			Purpose:           req.Purpose,
			DosageAmount:      req.DosageAmount,
			DosageUnit:        req.DosageUnit,
			Rule:              rule,
			PillCount:         req.PillCount,
			LowStockThreshold: req.LowStockThreshold,
			Status:            req.Status,
			Notes:             req.Notes,
		})
		if err != nil {
			writeMedError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toMedicationResponse(m))
	}
}

// deleteMedicationHandler godoc
// @Summary Eliminar un medicamento
// @Description Solo el dueño puede eliminar. Las dosis pendientes se cancelan; el historial resuelto queda.
// @Tags medications
// @Param medicationID path string true "ID del medicamento"
// @Success 204 {string} string "sin contenido"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "not found"
// @Router /medications/{medicationID} [delete]
func deleteMedicationHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		id := chi.URLParam(r, "medicationID")
		owner, err := svc.OwnerOf(r.Context(), id)
		if err != nil {
			writeMedError(w, err)
			return
		}
		if owner != claims.UserID {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		if err := svc.Delete(r.Context(), id); err != nil {
			writeMedError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// canAccess permite al dueño siempre; a un caregiver solo con grant
// activo que incluya el scope pedido.
func canAccess(r *http.Request, grantsSvc *caregivers.Service, ownerID, callerID string, scope caregivers.Scope) bool {
	if ownerID == callerID {
		return true
	}
	if grantsSvc == nil {
		return false
	}
	g, err := grantsSvc.GetActiveGrant(r.Context(), ownerID, callerID)
	if err != nil {
		return false
	}
	return caregivers.HasScope(g, scope)
}

func toRuleInput(req ruleRequest) RuleInput {
	return RuleInput{
		Kind:          req.Kind,
		Times:         req.Times,
		IntervalHours: req.IntervalHours,
		Start:         req.Start,
		End:           req.End,
	}
}

func toMedicationResponse(m Medication) medicationResponse {
	return medicationResponse{
		ID:                m.ID,
		UserID:            m.UserID,
		Name:              m.Name,
		DrugID:            m.DrugID,
		Purpose:           m.Purpose,
		DosageAmount:      m.DosageAmount,
		DosageUnit:        m.DosageUnit,
		Rule: ruleRequest{
			Kind:          m.Rule.Kind,
			Times:         m.Rule.Times,
			IntervalHours: m.Rule.IntervalHours,
			Start:         m.Rule.Start,
			End:           m.Rule.End,
		},
		PillCount:         m.PillCount,
		LowStockThreshold: m.LowStockThreshold,
		Status:            m.Status,
		Notes:             m.Notes,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

func writeMedError(w http.ResponseWriter, err error) {
	switch err {
	case ErrNotFound:
		http.Error(w, "not found", http.StatusNotFound)
	case ErrInvalidInput:
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// writeJSON está duplicado intencionalmente en handlers de distintos módulos
// para evitar crear paquetes/helpers compartidos demasiado pronto.
// Si más adelante se repite en más módulos, recién conviene extraerlo a un helper común.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
