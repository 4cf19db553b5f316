package ocr

import "context"

// Extraction es el texto crudo devuelto por un motor de OCR,
// con la confianza global que el motor le asigna (0..1).
type Extraction struct {
	Text       string
	Confidence float64
}

// TextExtractor extrae texto de una imagen de etiqueta.
type TextExtractor interface {
	Extract(ctx context.Context, image []byte, mimeType string) (Extraction, error)
}
