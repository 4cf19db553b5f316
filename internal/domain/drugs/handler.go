package drugs

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"med-adherence/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/drugs", func(dr chi.Router) {
		dr.Get("/search", searchDrugsHandler(svc))
		dr.Get("/{drugID}", getDrugHandler(svc))
	})
}

// drugResponse representa una droga del dataset de referencia.
type drugResponse struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	GenericName string   `json:"generic_name,omitempty"`
	BrandNames  []string `json:"brand_names,omitempty"`
	Category    string   `json:"category,omitempty"`
}

// searchDrugsHandler godoc
// @Summary Buscar drogas en el dataset de referencia
// @Description Busca drogas por nombre (nombre comercial, genérico o marca). Intenta primero el dataset externo y degrada al índice local si no está disponible.
// @Tags drugs
// @Produce json
// @Param q query string true "Texto a buscar (mínimo 2 caracteres)"
// @Param limit query int false "Máximo de resultados (1-50). Por defecto 10"
// @Success 200 {array} drugResponse
// @Failure 401 {string} string "unauthorized"
// @Router /drugs/search [get]
func searchDrugsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		limit := 10
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 50 {
				limit = n
			}
		}

		items, err := svc.Search(r.Context(), r.URL.Query().Get("q"), limit)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]drugResponse, 0, len(items))
		for _, d := range items {
			out = append(out, toDrugResponse(d))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// getDrugHandler godoc
// @Summary Obtener una droga por ID
// @Tags drugs
// @Produce json
// @Param drugID path string true "ID de la droga"
// @Success 200 {object} drugResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 404 {string} string "drug not found"
// @Router /drugs/{drugID} [get]
func getDrugHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		d, err := svc.GetByID(r.Context(), chi.URLParam(r, "drugID"))
		if err != nil {
			http.Error(w, "drug not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, toDrugResponse(d))
	}
}

func toDrugResponse(d Identity) drugResponse {
	return drugResponse{
		ID:          d.ID,
		Name:        d.Name,
		GenericName: d.GenericName,
		BrandNames:  d.BrandNames,
		Category:    d.Category,
	}
}

// writeJSON está duplicado intencionalmente en handlers de distintos módulos
// para evitar crear paquetes/helpers compartidos demasiado pronto.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
