package scan

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"med-adherence/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Post("/scan", ingestScanHandler(svc))
}

type ingestScanRequest struct {
	// text ya extraído tiene prioridad sobre image_base64.
	Text        string `json:"text,omitempty"`
	ImageBase64 string `json:"image_base64,omitempty"`
	MimeType    string `json:"mime_type,omitempty"`
}

// ingestScanHandler godoc
// @Summary Escanear una etiqueta de medicamento
// @Description Parsea el texto de una etiqueta (o la imagen, vía OCR) y devuelve un candidato estructurado: droga, dosis y frecuencia con sus confianzas. Si la droga matchea el índice y la confianza supera el umbral, incluye interacciones contra los medicamentos activos del usuario.
// @Tags scan
// @Accept json
// @Produce json
// @Param payload body ingestScanRequest true "Texto o imagen de la etiqueta"
// @Success 200 {object} Result
// @Failure 400 {string} string "input inválido"
// @Failure 401 {string} string "unauthorized"
// @Failure 422 {string} string "sin texto legible"
// @Failure 503 {string} string "OCR no disponible"
// @Router /scan [post]
func ingestScanHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req ingestScanRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		var image []byte
		if raw := strings.TrimSpace(req.ImageBase64); raw != "" {
			decoded, err := base64.StdEncoding.DecodeString(raw)
			if err != nil {
				http.Error(w, "invalid image_base64", http.StatusBadRequest)
				return
			}
			image = decoded
		}

		result, err := svc.Ingest(r.Context(), claims.UserID, IngestInput{
			Text:     req.Text,
			Image:    image,
			MimeType: req.MimeType,
		})
		if err != nil {
			switch err {
			case ErrInvalidInput:
				http.Error(w, err.Error(), http.StatusBadRequest)
			case ErrEmptyScan:
				http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			case ErrOCRUnavailable:
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusOK, result)
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
