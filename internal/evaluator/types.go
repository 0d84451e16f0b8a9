package evaluator

import (
	"fmt"

	"github.com/PhelGc/sig-rca/internal/rca"
)

// ErrorKind clasifica la falla de una llamada al servicio de IA
type ErrorKind string

const (
	KindTransport ErrorKind = "transporte" // red, cuota, timeout
	KindParse     ErrorKind = "formato"    // respuesta que no es JSON válido
	KindSchema    ErrorKind = "esquema"    // JSON válido con valores fuera de contrato
	KindEmpty     ErrorKind = "vacío"      // sin contenido utilizable
)

// Error falla tipada de una operación del servicio. Siempre distinta de un
// resultado vacío.
type Error struct {
	Op   string
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: error de %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func fail(op string, kind ErrorKind, format string, args ...any) *Error {
	return &Error{Op: op, Kind: kind, Err: fmt.Errorf(format, args...)}
}

// --- Estructuras de respuesta del modelo ---

type recommendationPayload struct {
	Methodology string  `json:"methodology"`
	Reason      string  `json:"reason"`
	Score       float64 `json:"score"`
}

type esgPayload struct {
	Ambiental  float64 `json:"ambiental"`
	Social     float64 `json:"social"`
	Financiero float64 `json:"financiero"`
	Gobernanza float64 `json:"gobernanza"`
}

type analysisPayload struct {
	Diagnostico          string     `json:"diagnostico"`
	DefinicionTecnica    string     `json:"definicionTecnica"`
	ImpactoSIG           string     `json:"impactoSIG"`
	RiesgoESG            esgPayload `json:"riesgoESG"`
	CausasDirectas       []string   `json:"causasDirectas"`
	CausasContribuyentes []string   `json:"causasContribuyentes"`
	CausaRaiz            string     `json:"causaRaiz"`
	Criticidad           string     `json:"criticidad"`
}

type actionPayload struct {
	Tipo        string   `json:"tipo"`
	Descripcion string   `json:"descripcion"`
	Responsable string   `json:"responsable"`
	Indicador   string   `json:"indicador"`
	Evidencia   string   `json:"evidencia"`
	Costo       *float64 `json:"costo,omitempty"`
}

func (a actionPayload) toAction() rca.Action {
	return rca.Action{
		Tipo:        rca.ParseActionType(a.Tipo),
		Descripcion: a.Descripcion,
		Responsable: a.Responsable,
		Indicador:   a.Indicador,
		Evidencia:   a.Evidencia,
		Costo:       a.Costo,
	}
}
