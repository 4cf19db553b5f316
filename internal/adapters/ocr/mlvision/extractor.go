package mlvision

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"med-adherence/internal/ports/ocr"
)

// Extractor implementa ocr.TextExtractor usando el servicio ML Vision.
// No se integra automáticamente; queda listo para que lo instancien desde main/router.
type Extractor struct {
	client *Client
}

func NewExtractor(client *Client) *Extractor {
	return &Extractor{client: client}
}

func (e *Extractor) Extract(ctx context.Context, image []byte, mimeType string) (ocr.Extraction, error) {
	if e == nil || e.client == nil {
		return ocr.Extraction{}, ErrVisionNotConfigured
	}
	if len(image) == 0 {
		return ocr.Extraction{}, errors.New("image is empty")
	}

	text, confidence, err := e.client.RecognizeText(ctx, image, mimeType)
	if err != nil {
		return ocr.Extraction{}, fmt.Errorf("ml-vision extract failed: %w", err)
	}

	return ocr.Extraction{
		Text:       strings.TrimSpace(text),
		Confidence: confidence,
	}, nil
}
