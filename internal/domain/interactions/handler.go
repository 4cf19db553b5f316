package interactions

import (
	"encoding/json"
	"net/http"
	"strings"

	"med-adherence/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Post("/interactions/check", checkInteractionsHandler(svc))
}

type checkInteractionsRequest struct {
	// medication_ids vacío chequea todos los medicamentos activos del usuario.
	MedicationIDs []string `json:"medication_ids,omitempty"`
}

// checkInteractionsHandler godoc
// @Summary Chequear interacciones
// @Description Evalúa pares de medicamentos del usuario contra el índice de interacciones conocidas. IDs desconocidos y medicamentos sin droga asociada se reportan como warnings sin bloquear el chequeo.
// @Tags interactions
// @Accept json
// @Produce json
// @Param payload body checkInteractionsRequest true "Medicamentos a chequear (vacío = todos los activos)"
// @Success 200 {object} Report
// @Failure 400 {string} string "input inválido"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Router /interactions/check [post]
func checkInteractionsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req checkInteractionsRequest
		if r.Body != nil && r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "invalid json", http.StatusBadRequest)
				return
			}
		}

		report, err := svc.Check(r.Context(), claims.UserID, req.MedicationIDs)
		if err != nil {
			switch err {
			case ErrInvalidInput:
				http.Error(w, err.Error(), http.StatusBadRequest)
			case ErrForbidden:
				http.Error(w, "forbidden", http.StatusForbidden)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusOK, report)
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
