package scan

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"med-adherence/internal/domain/drugs"
	"med-adherence/internal/domain/medications"
	"med-adherence/internal/ports/ocr"
)

var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrEmptyScan      = errors.New("no readable text in scan")
	ErrOCRUnavailable = errors.New("ocr engine not available")
)

type Service struct {
	drugs     *drugs.Service
	meds      *medications.Service
	extractor ocr.TextExtractor // puede ser nil: solo se acepta texto ya extraído
	cfg       Config
}

func NewService(drugsSvc *drugs.Service, meds *medications.Service, extractor ocr.TextExtractor, cfg Config) *Service {
	if cfg.ConfidenceThreshold <= 0 || cfg.ConfidenceThreshold > 1 {
		cfg.ConfidenceThreshold = DefaultConfidenceThreshold
	}
	return &Service{
		drugs:     drugsSvc,
		meds:      meds,
		extractor: extractor,
		cfg:       cfg,
	}
}

type IngestInput struct {
	// Texto ya extraído (p.ej. OCR hecho en el cliente). Tiene prioridad
	// sobre Image si vienen ambos.
	Text string

	Image    []byte
	MimeType string
}

// Ingest parsea una etiqueta de medicamento y devuelve un candidato
// estructurado. El parse es best-effort: campos que no se reconocen
// simplemente no vienen, sin error. El único error duro de parseo es
// una etiqueta sin texto legible.
//
// Si el candidato matchea una droga del índice y la confianza del
// nombre supera el umbral, se chequean interacciones contra los
// medicamentos activos del usuario en la misma pasada. Un fallo al
// resolver interacciones degrada a warning: el candidato se devuelve
// igual.
func (s *Service) Ingest(ctx context.Context, userID string, in IngestInput) (Result, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Result{}, ErrInvalidInput
	}

	text := strings.TrimSpace(in.Text)
	ocrConfidence := 1.0

	if text == "" {
		if len(in.Image) == 0 {
			return Result{}, ErrEmptyScan
		}
		if s.extractor == nil {
			return Result{}, ErrOCRUnavailable
		}
		ex, err := s.extractor.Extract(ctx, in.Image, in.MimeType)
		if err != nil {
			return Result{}, err
		}
		text = strings.TrimSpace(ex.Text)
		if ex.Confidence > 0 {
			ocrConfidence = ex.Confidence
		}
	}

	if text == "" {
		return Result{}, ErrEmptyScan
	}

	result := Result{
		RawText:   text,
		Candidate: LabelCandidate{},
	}

	if name, id, conf := s.matchDrugName(ctx, text); name != "" {
		result.Candidate.DrugName = &FieldCandidate{Value: name, Confidence: conf}
		result.Candidate.DrugID = id
	}
	result.Candidate.Dosage = parseDosage(text)
	result.Candidate.Rule = parseFrequency(text)

	result.OverallConfidence = overallConfidence(result.Candidate, ocrConfidence)

	// El gate es la confianza del nombre, no la global: una droga bien
	// matcheada con OCR mediocre igual merece el chequeo de seguridad.
	nameConfidence := 0.0
	if result.Candidate.DrugName != nil {
		nameConfidence = result.Candidate.DrugName.Confidence
	}
	if result.Candidate.DrugID != "" && nameConfidence >= s.cfg.ConfidenceThreshold {
		alerts, warns := s.checkAgainstActiveMeds(ctx, userID, result.Candidate.DrugID)
		result.Interactions = alerts
		result.Warnings = warns
	}

	return result, nil
}

// --- droga ---

// matchDrugName busca el nombre de droga más probable dentro del texto.
// Tolera confusiones típicas de OCR (0/O, 1/l, 5/S) comparando contra
// todas las identidades del índice local con distancia de edición.
func (s *Service) matchDrugName(ctx context.Context, text string) (name, drugID string, confidence float64) {
	identities, err := s.drugs.List(ctx)
	if err != nil {
		return "", "", 0
	}

	words := tokenize(text)

	best := 0.0
	for _, d := range identities {
		candidates := append([]string{d.Name, d.GenericName}, d.BrandNames...)
		for _, c := range candidates {
			c = strings.TrimSpace(c)
			if len(c) < 4 {
				continue
			}
			target := normalizeOCR(c)
			for _, w := range words {
				if len(w) < 4 {
					continue
				}
				ratio := editRatio(normalizeOCR(w), target)
				if ratio > best && ratio >= 0.8 {
					best = ratio
					name = d.Name
					drugID = d.ID
				}
			}
		}
	}
	return name, drugID, best
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
	return fields
}

// normalizeOCR colapsa los pares de glifos que los motores de OCR
// confunden con más frecuencia en etiquetas impresas.
func normalizeOCR(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	replacer := strings.NewReplacer(
		"0", "o",
		"1", "l",
		"5", "s",
		"8", "b",
		"i", "l",
	)
	return replacer.Replace(s)
}

// editRatio devuelve similitud 0..1 basada en distancia de Levenshtein.
func editRatio(a, b string) float64 {
	if a == b {
		return 1
	}
	la, lb := len(a), len(b)
	if la == 0 || lb == 0 {
		return 0
	}

	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}
	for i := 1; i <= la; i++ {
		curr[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	dist := prev[lb]

	longest := la
	if lb > longest {
		longest = lb
	}
	return 1 - float64(dist)/float64(longest)
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

// --- dosis ---

var dosageRe = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s*(mg|mcg|g|ml|iu|units?|tabs?|tablets?|caps?|capsules?)\b`)

func parseDosage(text string) *DosageCandidate {
	m := dosageRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	amount, err := strconv.ParseFloat(m[1], 64)
	if err != nil || amount <= 0 {
		return nil
	}
	return &DosageCandidate{
		Amount:     amount,
		Unit:       canonicalUnit(m[2]),
		Confidence: 0.9,
	}
}

func canonicalUnit(raw string) string {
	u := strings.ToLower(strings.TrimSpace(raw))
	switch u {
	case "tab", "tabs", "tablet", "tablets":
		return "tablet"
	case "cap", "caps", "capsule", "capsules":
		return "capsule"
	case "unit", "units":
		return "iu"
	}
	return u
}

// --- frecuencia ---

var everyHoursRe = regexp.MustCompile(`(?i)\bevery\s+(\d{1,2})\s*(?:hours|hrs|hr|h)\b`)

// parseFrequency mapea frases de frecuencia típicas de etiquetas a una
// regla canónica. Los horarios concretos son defaults razonables que el
// usuario ajusta al confirmar.
func parseFrequency(text string) *RuleCandidate {
	lower := strings.ToLower(text)

	if m := everyHoursRe.FindStringSubmatch(lower); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil && n >= 1 && n <= 48 {
			return &RuleCandidate{
				Kind:          "interval",
				IntervalHours: n,
				Confidence:    0.9,
				SourcePhrase:  strings.TrimSpace(m[0]),
			}
		}
	}

	type phraseRule struct {
		phrases []string
		times   []string
	}
	tables := []phraseRule{
		{[]string{"four times daily", "four times a day", "qid"}, []string{"08:00", "12:00", "16:00", "20:00"}},
		{[]string{"three times daily", "three times a day", "tid", "with meals"}, []string{"08:00", "14:00", "20:00"}},
		{[]string{"twice daily", "twice a day", "two times a day", "bid"}, []string{"08:00", "20:00"}},
		{[]string{"at bedtime", "before bed", "nightly"}, []string{"22:00"}},
		{[]string{"once daily", "once a day", "every day", "daily", "every morning"}, []string{"09:00"}},
	}

	for _, t := range tables {
		for _, p := range t.phrases {
			if containsPhrase(lower, p) {
				return &RuleCandidate{
					Kind:         "times",
					Times:        t.times,
					Confidence:   0.85,
					SourcePhrase: p,
				}
			}
		}
	}

	for _, p := range []string{"as needed", "as required", "prn", "when needed"} {
		if containsPhrase(lower, p) {
			return &RuleCandidate{
				Kind:         "as_needed",
				Confidence:   0.85,
				SourcePhrase: p,
			}
		}
	}

	return nil
}

// containsPhrase evita que abreviaturas tipo "bid" matcheen dentro de
// otras palabras ("forbidden").
func containsPhrase(text, phrase string) bool {
	idx := strings.Index(text, phrase)
	if idx < 0 {
		return false
	}
	if idx > 0 && isWordChar(text[idx-1]) {
		return false
	}
	end := idx + len(phrase)
	if end < len(text) && isWordChar(text[end]) {
		return false
	}
	return true
}

func isWordChar(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}

// --- confianza ---

// overallConfidence promedia los campos presentes (el nombre de la droga
// pesa doble) y lo escala por la confianza del OCR.
func overallConfidence(c LabelCandidate, ocrConfidence float64) float64 {
	sum, weight := 0.0, 0.0
	if c.DrugName != nil {
		sum += 2 * c.DrugName.Confidence
		weight += 2
	}
	if c.Dosage != nil {
		sum += c.Dosage.Confidence
		weight++
	}
	if c.Rule != nil {
		sum += c.Rule.Confidence
		weight++
	}
	if weight == 0 {
		return 0
	}
	return (sum / weight) * ocrConfidence
}

// --- interacciones eager ---

// checkAgainstActiveMeds cruza la droga escaneada contra los medicamentos
// activos del usuario. Nunca corta la ingesta: si el repo falla, devuelve
// lo detectado hasta ahí más un warning upstream_unavailable.
func (s *Service) checkAgainstActiveMeds(ctx context.Context, userID, drugID string) ([]InteractionAlert, []Warning) {
	meds, err := s.meds.ListByUser(ctx, userID)
	if err != nil {
		return nil, []Warning{{
			Code:    "upstream_unavailable",
			Message: "could not list active medications, interaction check skipped",
		}}
	}

	var alerts []InteractionAlert
	var warns []Warning
	for _, m := range meds {
		if m.Status != medications.StatusActive {
			continue
		}
		if m.DrugID == nil || strings.TrimSpace(*m.DrugID) == "" || *m.DrugID == drugID {
			continue
		}
		rule, found, err := s.drugs.InteractionBetween(ctx, drugID, *m.DrugID)
		if err != nil {
			warns = append(warns, Warning{
				Code:    "upstream_unavailable",
				Message: "interaction lookup failed for medication " + m.ID,
			})
			continue
		}
		if !found {
			continue
		}
		d, err := s.drugs.GetByID(ctx, *m.DrugID)
		if err != nil {
			continue
		}
		alerts = append(alerts, InteractionAlert{
			MedicationID:   m.ID,
			MedicationName: m.Name,
			DrugName:       d.Name,
			Severity:       rule.Severity,
			Description:    rule.Description,
			Recommendation: rule.Recommendation,
		})
	}
	return alerts, warns
}
