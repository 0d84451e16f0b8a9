package evaluator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/PhelGc/sig-rca/internal/rca"
)

const (
	defaultModel       = "gemini-3-flash-preview"
	defaultTimeout     = 45 * time.Second
	defaultTemperature = 0.2
)

// generator es el subconjunto de genai.Models que usa el cliente
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Config parámetros del cliente
type Config struct {
	APIKey      string
	Model       string
	Timeout     time.Duration
	Temperature float64
}

// Client servicio de recomendación y análisis sobre Gemini
type Client struct {
	models      generator
	model       string
	timeout     time.Duration
	temperature float32
	prompts     *Prompts
	logger      *zap.Logger
}

// NewClient crea un cliente de evaluación IA usando Gemini
func NewClient(ctx context.Context, cfg Config, prompts *Prompts, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("GEMINI_API_KEY es obligatorio")
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("error creando cliente Gemini: %w", err)
	}
	return newClient(gc.Models, cfg, prompts, logger), nil
}

func newClient(models generator, cfg Config, prompts *Prompts, logger *zap.Logger) *Client {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = defaultTemperature
	}
	if prompts == nil {
		prompts = DefaultPrompts()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		models:      models,
		model:       cfg.Model,
		timeout:     cfg.Timeout,
		temperature: float32(cfg.Temperature),
		prompts:     prompts,
		logger:      logger,
	}
}

// --- Esquemas de respuesta ---

var (
	stringSchema      = &genai.Schema{Type: genai.TypeString}
	stringArraySchema = &genai.Schema{Type: genai.TypeArray, Items: stringSchema}

	recommendSchema = &genai.Schema{
		Type: genai.TypeArray,
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"methodology": {Type: genai.TypeString, Enum: []string{"Ishikawa", "5 Porqués", "5W2H"}},
				"reason":      stringSchema,
				"score":       {Type: genai.TypeNumber},
			},
			Required: []string{"methodology", "reason", "score"},
		},
	}

	analysisSchema = &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"diagnostico":       stringSchema,
			"definicionTecnica": stringSchema,
			"impactoSIG":        stringSchema,
			"riesgoESG": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"ambiental":  {Type: genai.TypeInteger},
					"social":     {Type: genai.TypeInteger},
					"financiero": {Type: genai.TypeInteger},
					"gobernanza": {Type: genai.TypeInteger},
				},
				Required: []string{"ambiental", "social", "financiero", "gobernanza"},
			},
			"causasDirectas":       stringArraySchema,
			"causasContribuyentes": stringArraySchema,
			"causaRaiz":            stringSchema,
			"criticidad":           {Type: genai.TypeString, Enum: []string{"Alta", "Media", "Baja"}},
		},
		Required: []string{"diagnostico", "definicionTecnica", "impactoSIG", "riesgoESG",
			"causasDirectas", "causasContribuyentes", "causaRaiz", "criticidad"},
	}

	actionsSchema = &genai.Schema{
		Type: genai.TypeArray,
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"tipo":        {Type: genai.TypeString, Enum: []string{"Correctiva", "Preventiva", "Mejora"}},
				"descripcion": stringSchema,
				"responsable": stringSchema,
				"indicador":   stringSchema,
				"evidencia":   stringSchema,
			},
			Required: []string{"tipo", "descripcion", "responsable", "indicador", "evidencia"},
		},
	}
)

// RecommendMethodologies evalúa las tres metodologías y las devuelve ordenadas
// por puntaje descendente (los empates conservan el orden del modelo).
func (c *Client) RecommendMethodologies(ctx context.Context, p *rca.Problem) ([]rca.Recommendation, error) {
	const op = "recomendar metodologías"
	var raw []recommendationPayload
	if err := c.generate(ctx, op, c.prompts.Recommend, intakeMessage(p), recommendSchema, &raw); err != nil {
		return nil, err
	}

	recs := make([]rca.Recommendation, 0, len(raw))
	for _, r := range raw {
		m, err := rca.ParseMethodology(r.Methodology)
		if err != nil {
			c.logger.Warn("Metodología desconocida en la recomendación, se omite", zap.String("methodology", r.Methodology))
			continue
		}
		recs = append(recs, rca.Recommendation{
			Methodology: m,
			Reason:      r.Reason,
			Score:       clamp(r.Score, 1, 10),
		})
	}
	if len(recs) == 0 {
		return nil, fail(op, KindSchema, "ninguna metodología válida en %d recomendaciones", len(raw))
	}
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Score > recs[j].Score })
	return recs, nil
}

// SuggestIshikawa sugiere causas por categoría. El conjunto de llaves no está acotado.
func (c *Client) SuggestIshikawa(ctx context.Context, p *rca.Problem) (map[string][]string, error) {
	const op = "sugerir Ishikawa"
	var raw map[string][]string
	if err := c.generate(ctx, op, c.prompts.Ishikawa, intakeMessage(p), nil, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, fail(op, KindEmpty, "respuesta sin categorías")
	}
	return raw, nil
}

// SuggestFiveWhys sugiere la cadena inicial de porqués
func (c *Client) SuggestFiveWhys(ctx context.Context, p *rca.Problem) ([]string, error) {
	const op = "sugerir 5 porqués"
	var raw []string
	if err := c.generate(ctx, op, c.prompts.FiveWhys, intakeMessage(p), stringArraySchema, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, fail(op, KindEmpty, "cadena de porqués vacía")
	}
	if len(raw) != rca.DefaultWhys {
		c.logger.Warn("La cadena sugerida no tiene 5 niveles", zap.Int("niveles", len(raw)))
	}
	return raw, nil
}

// AnalyzeProblem sintetiza el análisis técnico y el riesgo ESG.
// Los puntajes ESG se acotan a [1,5].
func (c *Client) AnalyzeProblem(ctx context.Context, p *rca.Problem) (*rca.AnalysisResult, error) {
	const op = "analizar problema"
	var raw analysisPayload
	if err := c.generate(ctx, op, c.prompts.Analyze, analysisMessage(p), analysisSchema, &raw); err != nil {
		return nil, err
	}
	crit, ok := rca.ParseCriticality(raw.Criticidad)
	if !ok {
		return nil, fail(op, KindSchema, "criticidad inválida %q", raw.Criticidad)
	}
	if strings.TrimSpace(raw.CausaRaiz) == "" {
		return nil, fail(op, KindSchema, "causa raíz vacía")
	}

	risk := rca.ESGRisk{
		Ambiental:  clamp(raw.RiesgoESG.Ambiental, 1, 5),
		Social:     clamp(raw.RiesgoESG.Social, 1, 5),
		Financiero: clamp(raw.RiesgoESG.Financiero, 1, 5),
		Gobernanza: clamp(raw.RiesgoESG.Gobernanza, 1, 5),
	}
	if outOfRange(1, 5, raw.RiesgoESG.Ambiental, raw.RiesgoESG.Social, raw.RiesgoESG.Financiero, raw.RiesgoESG.Gobernanza) {
		c.logger.Warn("Puntajes ESG fuera de rango, se acotan a 1-5", zap.Any("recibido", raw.RiesgoESG))
	}

	return &rca.AnalysisResult{
		Diagnostico:          raw.Diagnostico,
		DefinicionTecnica:    raw.DefinicionTecnica,
		ImpactoSIG:           raw.ImpactoSIG,
		RiesgoESG:            risk,
		CausasDirectas:       nonNil(raw.CausasDirectas),
		CausasContribuyentes: nonNil(raw.CausasContribuyentes),
		CausaRaiz:            raw.CausaRaiz,
		Criticidad:           crit,
	}, nil
}

// SuggestActions sugiere el plan de acción. Los ids y fechas los asigna el asistente.
func (c *Client) SuggestActions(ctx context.Context, p *rca.Problem, a *rca.AnalysisResult) ([]rca.Action, error) {
	const op = "sugerir acciones"
	if a == nil {
		return nil, fail(op, KindSchema, "se requiere el análisis")
	}
	var raw []actionPayload
	if err := c.generate(ctx, op, c.prompts.Actions, actionsMessage(p, a), actionsSchema, &raw); err != nil {
		return nil, err
	}
	actions := make([]rca.Action, 0, len(raw))
	for _, r := range raw {
		if strings.TrimSpace(r.Descripcion) == "" {
			continue
		}
		actions = append(actions, r.toAction())
	}
	if len(actions) == 0 {
		return nil, fail(op, KindEmpty, "sin acciones sugeridas")
	}
	return actions, nil
}

// generate envía la instrucción a Gemini y decodifica el JSON de respuesta en out
func (c *Client) generate(ctx context.Context, op, system, user string, schema *genai.Schema, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       genai.Ptr(c.temperature),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    schema,
	}

	start := time.Now()
	resp, err := c.models.GenerateContent(ctx, c.model, genai.Text(user), cfg)
	if err != nil {
		return &Error{Op: op, Kind: KindTransport, Err: err}
	}
	if resp == nil {
		return fail(op, KindEmpty, "respuesta nula de Gemini")
	}
	text := cleanJSON(resp.Text())
	if text == "" {
		return fail(op, KindEmpty, "respuesta vacía de Gemini")
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return &Error{Op: op, Kind: KindParse, Err: fmt.Errorf("JSON inválido (%q): %w", truncate(text, 200), err)}
	}
	c.logger.Debug("Respuesta de Gemini recibida",
		zap.String("op", op),
		zap.String("model", c.model),
		zap.Duration("duracion", time.Since(start)))
	return nil
}

func intakeMessage(p *rca.Problem) string {
	impactos := make([]string, len(p.Impactos))
	for i, imp := range p.Impactos {
		impactos[i] = string(imp)
	}
	msg := fmt.Sprintf("Problema: %s\nÁrea: %s\nImpactos: %s\nFrecuencia: %s",
		p.Problema, p.Area, strings.Join(impactos, ", "), p.Frecuencia)
	if strings.TrimSpace(p.Evidencia) != "" {
		msg += "\nEvidencia: " + p.Evidencia
	}
	return msg
}

func analysisMessage(p *rca.Problem) string {
	var detail string
	switch w := p.Work().(type) {
	case *rca.IshikawaData:
		data, _ := json.Marshal(w)
		detail = "Datos de Ishikawa: " + string(data)
	case *rca.FiveWhysData:
		data, _ := json.Marshal(w)
		detail = "Datos de 5 Porqués: " + string(data)
	case rca.FiveW2H:
		detail = "Metodología 5W2H: el plan se estructurará como qué, por qué, quién, cuándo, dónde, cómo y cuánto."
	}
	return fmt.Sprintf("%s\nMetodología: %s\n%s", intakeMessage(p), p.MetodologiaElegida, detail)
}

func actionsMessage(p *rca.Problem, a *rca.AnalysisResult) string {
	return fmt.Sprintf("Problema: %s\nÁrea: %s\nCausa raíz: %s\nCriticidad: %s",
		p.Problema, p.Area, a.CausaRaiz, a.Criticidad)
}

// cleanJSON elimina bloques de código markdown que el modelo pueda agregar
// alrededor del JSON (```json ... ```)
func cleanJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func clamp(v float64, lo, hi int) int {
	n := int(math.Round(v))
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

func outOfRange(lo, hi float64, values ...float64) bool {
	for _, v := range values {
		if v < lo || v > hi {
			return true
		}
	}
	return false
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
