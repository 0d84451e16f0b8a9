package rca

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Errores del modelo
var (
	ErrValidation       = errors.New("datos inválidos")
	ErrIndexOutOfRange  = errors.New("índice fuera de rango")
	ErrUnknownCategory  = errors.New("categoría inexistente")
	ErrEmptyCause       = errors.New("la causa no puede estar vacía")
	ErrLastWhy          = errors.New("debe existir al menos un porqué")
	ErrActionNotFound   = errors.New("acción no encontrada")
	ErrUnknownImpact    = errors.New("impacto desconocido")
	ErrUnknownMethod    = errors.New("metodología desconocida")
	ErrCategoryExists   = errors.New("la categoría ya existe")
	ErrEmptyCategoryTag = errors.New("el nombre de la categoría no puede estar vacío")
)

// Impact etiqueta de impacto de un hallazgo
type Impact string

const (
	ImpactCalidad      Impact = "calidad"
	ImpactAmbiental    Impact = "ambiental"
	ImpactCliente      Impact = "cliente"
	ImpactFinanciero   Impact = "financiero"
	ImpactReputacional Impact = "reputacional"
)

// Impacts lista los impactos válidos en orden de presentación
var Impacts = []Impact{ImpactCalidad, ImpactAmbiental, ImpactCliente, ImpactFinanciero, ImpactReputacional}

// Valid indica si el impacto pertenece a la enumeración
func (i Impact) Valid() bool {
	for _, v := range Impacts {
		if v == i {
			return true
		}
	}
	return false
}

// Frequency frecuencia con la que ocurre el problema
type Frequency string

const (
	FrequencyFirstTime  Frequency = "Primera vez"
	FrequencyOccasional Frequency = "Ocasional"
	FrequencyRecurrent  Frequency = "Recurrente"
	FrequencySystemic   Frequency = "Sistémico"
)

// Frequencies lista las frecuencias válidas
var Frequencies = []Frequency{FrequencyFirstTime, FrequencyOccasional, FrequencyRecurrent, FrequencySystemic}

// Valid indica si la frecuencia pertenece a la enumeración
func (f Frequency) Valid() bool {
	for _, v := range Frequencies {
		if v == f {
			return true
		}
	}
	return false
}

// Methodology metodología de análisis de causa raíz
type Methodology string

const (
	MethodologyIshikawa Methodology = "Ishikawa"
	MethodologyFiveWhys Methodology = "5 Porqués"
	MethodologyFiveW2H  Methodology = "5W2H"
)

// Methodologies lista las metodologías soportadas
var Methodologies = []Methodology{MethodologyIshikawa, MethodologyFiveWhys, MethodologyFiveW2H}

// ParseMethodology normaliza el nombre devuelto por el usuario o por el modelo.
// Acepta variantes sin tilde ni espacios ("5 porques", "cinco porqués", "fishbone").
func ParseMethodology(s string) (Methodology, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("é", "e", " ", "", "-", "", "_", "").Replace(norm)
	switch norm {
	case "ishikawa", "fishbone", "espinadepescado":
		return MethodologyIshikawa, nil
	case "5porques", "cincoporques", "5whys", "fivewhys":
		return MethodologyFiveWhys, nil
	case "5w2h":
		return MethodologyFiveW2H, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMethod, s)
}

// Criticality nivel de criticidad del hallazgo
type Criticality string

const (
	CriticalityHigh   Criticality = "Alta"
	CriticalityMedium Criticality = "Media"
	CriticalityLow    Criticality = "Baja"
)

// ParseCriticality normaliza la criticidad sin distinguir mayúsculas
func ParseCriticality(s string) (Criticality, bool) {
	for _, c := range []Criticality{CriticalityHigh, CriticalityMedium, CriticalityLow} {
		if strings.EqualFold(strings.TrimSpace(s), string(c)) {
			return c, true
		}
	}
	return "", false
}

// ActionType tipo de acción del plan
type ActionType string

const (
	ActionCorrective  ActionType = "Correctiva"
	ActionPreventive  ActionType = "Preventiva"
	ActionImprovement ActionType = "Mejora"
)

// Valid indica si el tipo pertenece a la enumeración
func (t ActionType) Valid() bool {
	return t == ActionCorrective || t == ActionPreventive || t == ActionImprovement
}

// ParseActionType normaliza el tipo de acción, por defecto Correctiva
func ParseActionType(s string) ActionType {
	for _, t := range []ActionType{ActionCorrective, ActionPreventive, ActionImprovement} {
		if strings.EqualFold(strings.TrimSpace(s), string(t)) {
			return t
		}
	}
	return ActionCorrective
}

// ESGRisk puntajes de riesgo ESG (1-5)
type ESGRisk struct {
	Ambiental  int `json:"ambiental"`
	Social     int `json:"social"`
	Financiero int `json:"financiero"`
	Gobernanza int `json:"gobernanza"`
}

// AnalysisResult análisis técnico generado por el servicio de IA
type AnalysisResult struct {
	Diagnostico            string      `json:"diagnostico"`
	DefinicionTecnica      string      `json:"definicionTecnica"`
	ImpactoSIG             string      `json:"impactoSIG"`
	RiesgoESG              ESGRisk     `json:"riesgoESG"`
	CausasDirectas         []string    `json:"causasDirectas"`
	CausasContribuyentes   []string    `json:"causasContribuyentes"`
	CausaRaiz              string      `json:"causaRaiz"`
	Criticidad             Criticality `json:"criticidad"`
	MetodologiaRecomendada Methodology `json:"metodologiaRecomendada,omitempty"`
	MotivoRecomendacion    string      `json:"motivoRecomendacion,omitempty"`
}

// Recommendation recomendación de metodología con su puntaje (1-10)
type Recommendation struct {
	Methodology Methodology `json:"methodology"`
	Reason      string      `json:"reason"`
	Score       int         `json:"score"`
}

// Action acción del plan (correctiva, preventiva o de mejora)
type Action struct {
	ID          string     `json:"id"`
	Tipo        ActionType `json:"tipo"`
	Descripcion string     `json:"descripcion"`
	Responsable string     `json:"responsable"`
	Fecha       string     `json:"fecha"`
	Indicador   string     `json:"indicador"`
	Evidencia   string     `json:"evidencia"`
	Costo       *float64   `json:"costo,omitempty"`
}

// DateLayout formato de las fechas de acciones
const DateLayout = "2006-01-02"

// Problem registro de análisis de causa raíz (hallazgo)
type Problem struct {
	ID                 string          `json:"id,omitempty"`
	Problema           string          `json:"problema"`
	Area               string          `json:"area"`
	Impactos           []Impact        `json:"impactos"`
	Frecuencia         Frequency       `json:"frecuencia"`
	Evidencia          string          `json:"evidencia"`
	FechaCreacion      time.Time       `json:"fechaCreacion"`
	MetodologiaElegida Methodology     `json:"metodologiaElegida,omitempty"`
	IshikawaData       *IshikawaData   `json:"ishikawaData,omitempty"`
	FiveWhysData       *FiveWhysData   `json:"fiveWhysData,omitempty"`
	Analisis           *AnalysisResult `json:"analisis,omitempty"`
	PlanAccion         []Action        `json:"planAccion,omitempty"`
}

// NewProblem crea un registro vacío con ambos sub-documentos inicializados
func NewProblem(now time.Time) *Problem {
	return &Problem{
		Impactos:      []Impact{},
		Frecuencia:    FrequencyFirstTime,
		FechaCreacion: now,
		IshikawaData:  NewIshikawaData(),
		FiveWhysData:  NewFiveWhysData(),
	}
}

// ToggleImpact agrega o quita un impacto (semántica de interruptor)
func (p *Problem) ToggleImpact(i Impact) error {
	if !i.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownImpact, i)
	}
	for idx, v := range p.Impactos {
		if v == i {
			p.Impactos = append(p.Impactos[:idx:idx], p.Impactos[idx+1:]...)
			return nil
		}
	}
	p.Impactos = append(p.Impactos, i)
	return nil
}

// HasImpact indica si el impacto está seleccionado
func (p *Problem) HasImpact(i Impact) bool {
	for _, v := range p.Impactos {
		if v == i {
			return true
		}
	}
	return false
}

// Clone devuelve una copia profunda del registro
func (p *Problem) Clone() *Problem {
	if p == nil {
		return nil
	}
	c := *p
	c.Impactos = append([]Impact{}, p.Impactos...)
	c.IshikawaData = p.IshikawaData.Clone()
	c.FiveWhysData = p.FiveWhysData.Clone()
	if p.Analisis != nil {
		a := *p.Analisis
		a.CausasDirectas = cloneStrings(p.Analisis.CausasDirectas)
		a.CausasContribuyentes = cloneStrings(p.Analisis.CausasContribuyentes)
		c.Analisis = &a
	}
	c.PlanAccion = CloneActions(p.PlanAccion)
	return &c
}

// cloneStrings conserva la diferencia entre nil y vacío, que en JSON es null o []
func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string{}, s...)
}

// CloneActions copia un plan de acción, incluidos los costos
func CloneActions(actions []Action) []Action {
	if actions == nil {
		return nil
	}
	out := make([]Action, len(actions))
	for i, a := range actions {
		if a.Costo != nil {
			v := *a.Costo
			a.Costo = &v
		}
		out[i] = a
	}
	return out
}
