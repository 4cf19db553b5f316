package doses

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"med-adherence/internal/domain/caregivers"
	"med-adherence/internal/domain/medications"
	"med-adherence/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service, medsSvc *medications.Service, grantsSvc *caregivers.Service) {
	r.Post("/medications/{medicationID}/schedule", generateScheduleHandler(svc, medsSvc, grantsSvc))

	r.Route("/doses", func(dr chi.Router) {
		dr.Get("/", listDosesHandler(svc, grantsSvc))
		dr.Post("/sweep", sweepHandler(svc))
		dr.Post("/{doseID}/resolve", resolveDoseHandler(svc, grantsSvc))
		dr.Patch("/{doseID}", editDoseHandler(svc, grantsSvc))
	})

	r.Get("/adherence", adherenceHandler(svc, grantsSvc))
}

// doseResponse representa una dosis programada con su estado de resolución.
type doseResponse struct {
	ID           string     `json:"id"`
	MedicationID string     `json:"medication_id"`
	UserID       string     `json:"user_id"`
	ScheduledAt  time.Time  `json:"scheduled_at"`
	Status       Status     `json:"status"`
	ResolvedAt   *time.Time `json:"resolved_at,omitempty"`
	SnoozedUntil *time.Time `json:"snoozed_until,omitempty"`
	SnoozeCount  int        `json:"snooze_count,omitempty"`
	Note         string     `json:"note,omitempty"`
}

type resolveDoseRequest struct {
	Action Action `json:"action" enums:"taken,missed,snoozed"`
	At     string `json:"at"` // RFC3339, opcional (default ahora)
	Note   string `json:"note"`
}

type resolveDoseResponse struct {
	Dose     doseResponse `json:"dose"`
	Warnings []Warning    `json:"warnings,omitempty"`
}

type editDoseRequest struct {
	Status     Status  `json:"status" enums:"taken,missed"`
	ResolvedAt *string `json:"resolved_at"` // RFC3339, opcional
	Note       *string `json:"note"`
}

type generateScheduleRequest struct {
	From string `json:"from"` // RFC3339 o YYYY-MM-DD
	To   string `json:"to"`   // RFC3339 o YYYY-MM-DD (exclusivo)
}

// generateScheduleHandler godoc
// @Summary Generar calendario de dosis
// @Description Materializa las dosis del medicamento en [from, to). Regenerar un rango ya generado es idempotente: no duplica instantes ni toca dosis resueltas. El dueño siempre puede; un caregiver necesita scope `doses:log`.
// @Tags doses
// @Accept json
// @Produce json
// @Param medicationID path string true "ID del medicamento"
// @Param payload body generateScheduleRequest true "Rango semiabierto"
// @Success 200 {array} doseResponse
// @Failure 400 {string} string "rango inválido"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "medication not found"
// @Router /medications/{medicationID}/schedule [post]
func generateScheduleHandler(svc *Service, medsSvc *medications.Service, grantsSvc *caregivers.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		medicationID := chi.URLParam(r, "medicationID")
		owner, err := medsSvc.OwnerOf(r.Context(), medicationID)
		if err != nil {
			http.Error(w, "medication not found", http.StatusNotFound)
			return
		}
		if !allowed(r, grantsSvc, owner, claims.UserID, caregivers.ScopeDosesLog) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		var req generateScheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		from, err := parseInstant(req.From)
		if err != nil {
			http.Error(w, "from must be RFC3339 or YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		to, err := parseInstant(req.To)
		if err != nil {
			http.Error(w, "to must be RFC3339 or YYYY-MM-DD", http.StatusBadRequest)
			return
		}

		items, err := svc.GenerateSchedule(r.Context(), medicationID, from, to)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				http.Error(w, "medication not found", http.StatusNotFound)
				return
			}
			if errors.Is(err, ErrInvalidInput) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]doseResponse, 0, len(items))
		for _, e := range items {
			out = append(out, toDoseResponse(e))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// listDosesHandler godoc
// @Summary Listar dosis
// @Description Lista las dosis del usuario autenticado (o de un paciente, si quien consulta es caregiver con scope `doses:read`). Filtros por medicamento, estados y rango.
// @Tags doses
// @Produce json
// @Param user_id query string false "Paciente a consultar (default: uno mismo)"
// @Param medication_id query string false "Filtrar por medicamento"
// @Param statuses query string false "Lista CSV de estados (ej: pending,taken)"
// @Param from query string false "Mínimo scheduled_at (RFC3339 o YYYY-MM-DD)"
// @Param to query string false "Máximo scheduled_at, exclusivo (RFC3339 o YYYY-MM-DD)"
// @Param limit query int false "Máximo de dosis a devolver (1-500). Por defecto 200"
// @Success 200 {array} doseResponse
// @Failure 400 {string} string "filtros inválidos"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Router /doses [get]
func listDosesHandler(svc *Service, grantsSvc *caregivers.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		target := strings.TrimSpace(r.URL.Query().Get("user_id"))
		if target == "" {
			target = claims.UserID
		}
		if !allowed(r, grantsSvc, target, claims.UserID, caregivers.ScopeDosesRead) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		filter, err := parseDoseFilter(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		items, err := svc.ListByUser(r.Context(), target, filter)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]doseResponse, 0, len(items))
		for _, e := range items {
			out = append(out, toDoseResponse(e))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// resolveDoseHandler godoc
// @Summary Resolver una dosis
// @Description Ejecuta una transición de la dosis (taken, missed o snoozed). Un retry o replay contra una dosis ya resuelta devuelve 409 (stale state) en vez de aplicarse dos veces. Marcarla como tomada descuenta stock y puede adjuntar warnings no bloqueantes.
// @Tags doses
// @Accept json
// @Produce json
// @Param doseID path string true "ID de la dosis"
// @Param payload body resolveDoseRequest true "Acción y metadata"
// @Success 200 {object} resolveDoseResponse
// @Failure 400 {string} string "acción inválida"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "dose not found"
// @Failure 409 {string} string "stale state"
// @Failure 422 {string} string "invalid transition"
// @Router /doses/{doseID}/resolve [post]
func resolveDoseHandler(svc *Service, grantsSvc *caregivers.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		doseID := chi.URLParam(r, "doseID")
		e, err := svc.GetByID(r.Context(), doseID)
		if err != nil {
			http.Error(w, "dose not found", http.StatusNotFound)
			return
		}
		if !allowed(r, grantsSvc, e.UserID, claims.UserID, caregivers.ScopeDosesLog) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		var req resolveDoseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		var at time.Time
		if strings.TrimSpace(req.At) != "" {
			at, err = time.Parse(time.RFC3339, req.At)
			if err != nil {
				http.Error(w, "at must be RFC3339", http.StatusBadRequest)
				return
			}
		}

		updated, warnings, err := svc.Resolve(r.Context(), doseID, ResolveInput{
			Action: req.Action,
			At:     at,
			Note:   req.Note,
		})
		if err != nil {
			writeDoseError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, resolveDoseResponse{
			Dose:     toDoseResponse(updated),
			Warnings: warnings,
		})
	}
}

// editDoseHandler godoc
// @Summary Corregir una dosis resuelta
// @Description Permite corregir historial: cambiar taken <-> missed, ajustar el instante resuelto o la nota. El instante no puede quedar antes de scheduled_at menos la ventana de gracia. Nunca cambia medicamento ni horario programado.
// @Tags doses
// @Accept json
// @Produce json
// @Param doseID path string true "ID de la dosis"
// @Param payload body editDoseRequest true "Corrección"
// @Success 200 {object} doseResponse
// @Failure 400 {string} string "payload inválido"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "dose not found"
// @Failure 422 {string} string "invalid transition"
// @Router /doses/{doseID} [patch]
func editDoseHandler(svc *Service, grantsSvc *caregivers.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		doseID := chi.URLParam(r, "doseID")
		e, err := svc.GetByID(r.Context(), doseID)
		if err != nil {
			http.Error(w, "dose not found", http.StatusNotFound)
			return
		}
		if !allowed(r, grantsSvc, e.UserID, claims.UserID, caregivers.ScopeDosesLog) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		var req editDoseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		in := EditInput{NewStatus: req.Status, Note: req.Note}
		if req.ResolvedAt != nil {
			t, err := time.Parse(time.RFC3339, *req.ResolvedAt)
			if err != nil {
				http.Error(w, "resolved_at must be RFC3339", http.StatusBadRequest)
				return
			}
			in.NewInstant = &t
		}

		updated, err := svc.Edit(r.Context(), doseID, in)
		if err != nil {
			writeDoseError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toDoseResponse(updated))
	}
}

// sweepHandler godoc
// @Summary Barrido de dosis vencidas
// @Description Fuerza la evaluación de missed sobre las dosis pendientes vencidas. Es la misma transición idempotente que corre el sweeper recurrente; invocarla de más es inocuo.
// @Tags doses
// @Produce json
// @Success 200 {object} map[string]int
// @Router /doses/sweep [post]
func sweepHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := svc.SweepMissed(r.Context(), time.Time{})
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"transitioned": n})
	}
}

// adherenceHandler godoc
// @Summary Reporte de adherencia
// @Description Devuelve, para [from, to), el estado agregado por día, el porcentaje de adherencia (null si no hay eventos resueltos) y la racha de días taken. Siempre se recalcula; nunca se cachea.
// @Tags adherence
// @Produce json
// @Param user_id query string false "Paciente a consultar (default: uno mismo; caregiver necesita scope `adherence:read`)"
// @Param from query string true "Inicio del rango (YYYY-MM-DD o RFC3339)"
// @Param to query string true "Fin del rango, exclusivo (YYYY-MM-DD o RFC3339)"
// @Success 200 {object} AdherenceReport
// @Failure 400 {string} string "rango inválido"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Router /adherence [get]
func adherenceHandler(svc *Service, grantsSvc *caregivers.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		target := strings.TrimSpace(r.URL.Query().Get("user_id"))
		if target == "" {
			target = claims.UserID
		}
		if !allowed(r, grantsSvc, target, claims.UserID, caregivers.ScopeAdherenceRead) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		from, err := parseInstant(r.URL.Query().Get("from"))
		if err != nil {
			http.Error(w, "from must be RFC3339 or YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		to, err := parseInstant(r.URL.Query().Get("to"))
		if err != nil {
			http.Error(w, "to must be RFC3339 or YYYY-MM-DD", http.StatusBadRequest)
			return
		}

		report, err := svc.Adherence(r.Context(), target, from, to)
		if err != nil {
			if errors.Is(err, ErrInvalidInput) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

// allowed: el dueño siempre puede; otro usuario necesita un grant activo
// con el scope pedido.
func allowed(r *http.Request, grantsSvc *caregivers.Service, ownerUserID, callerUserID string, scope caregivers.Scope) bool {
	if ownerUserID == callerUserID {
		return true
	}
	g, err := grantsSvc.GetActiveGrant(r.Context(), ownerUserID, callerUserID)
	return err == nil && caregivers.HasScope(g, scope)
}

func parseDoseFilter(r *http.Request) (ListFilter, error) {
	limit := 200
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	filter := ListFilter{
		Limit:        limit,
		MedicationID: strings.TrimSpace(r.URL.Query().Get("medication_id")),
	}

	if v := strings.TrimSpace(r.URL.Query().Get("statuses")); v != "" {
		parts := strings.Split(v, ",")
		out := make([]Status, 0, len(parts))
		for _, p := range parts {
			s := Status(strings.TrimSpace(p))
			if s == "" {
				continue
			}
			out = append(out, s)
		}
		if len(out) > 0 {
			filter.Statuses = out
		}
	}

	if v := strings.TrimSpace(r.URL.Query().Get("from")); v != "" {
		t, err := parseInstant(v)
		if err != nil {
			return ListFilter{}, errors.New("from must be RFC3339 or YYYY-MM-DD")
		}
		filter.From = &t
	}
	if v := strings.TrimSpace(r.URL.Query().Get("to")); v != "" {
		t, err := parseInstant(v)
		if err != nil {
			return ListFilter{}, errors.New("to must be RFC3339 or YYYY-MM-DD")
		}
		filter.To = &t
	}

	return filter, nil
}

func parseInstant(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(dayKeyLayout, s)
}

func writeDoseError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		http.Error(w, "dose not found", http.StatusNotFound)
	case errors.Is(err, ErrStaleState):
		http.Error(w, "stale state", http.StatusConflict)
	case errors.Is(err, ErrInvalidTransition):
		http.Error(w, "invalid transition", http.StatusUnprocessableEntity)
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func toDoseResponse(e DoseEvent) doseResponse {
	return doseResponse{
		ID:           e.ID,
		MedicationID: e.MedicationID,
		UserID:       e.UserID,
		ScheduledAt:  e.ScheduledAt,
		Status:       e.Status,
		ResolvedAt:   e.ResolvedAt,
		SnoozedUntil: e.SnoozedUntil,
		SnoozeCount:  e.SnoozeCount,
		Note:         e.Note,
	}
}

// writeJSON está duplicado intencionalmente en handlers de distintos módulos
// para evitar crear paquetes/helpers compartidos demasiado pronto.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
