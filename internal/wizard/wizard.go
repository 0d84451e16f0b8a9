// Package wizard implementa el asistente de análisis: una máquina de estados
// por sesión que lleva un hallazgo desde la captura hasta el informe final,
// consultando al servicio de IA y guardando el registro en el almacén.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/PhelGc/sig-rca/internal/rca"
)

var (
	// ErrBusy la sesión tiene una operación en curso
	ErrBusy = errors.New("la sesión tiene una operación en curso")
	// ErrInvalidTransition la operación no corresponde a la etapa actual
	ErrInvalidTransition = errors.New("transición inválida para la etapa actual")
	// ErrNoSession no existe la sesión
	ErrNoSession = errors.New("sesión no encontrada")
	// ErrNotRecommended la metodología elegida no está entre las recomendadas
	ErrNotRecommended = errors.New("metodología no recomendada")
	// ErrPersist falló el almacén al guardar el registro
	ErrPersist = errors.New("error guardando el registro")
)

// Service contrato del servicio de recomendación y análisis. Cada operación
// devuelve un error distinto de un resultado vacío.
type Service interface {
	RecommendMethodologies(ctx context.Context, p *rca.Problem) ([]rca.Recommendation, error)
	SuggestIshikawa(ctx context.Context, p *rca.Problem) (map[string][]string, error)
	SuggestFiveWhys(ctx context.Context, p *rca.Problem) ([]string, error)
	AnalyzeProblem(ctx context.Context, p *rca.Problem) (*rca.AnalysisResult, error)
	SuggestActions(ctx context.Context, p *rca.Problem, a *rca.AnalysisResult) ([]rca.Action, error)
}

// Notifier recibe el registro recién guardado
type Notifier interface {
	NotifySaved(ctx context.Context, p *rca.Problem) error
}

// Stage etapa del asistente
type Stage int

const (
	StageIntake Stage = iota + 1
	StageMethodologySelection
	StageMethodologyEditing
	StageActionPlanning
	StageReport
)

var stageNames = map[Stage]string{
	StageIntake:               "intake",
	StageMethodologySelection: "methodologySelection",
	StageMethodologyEditing:   "methodologyEditing",
	StageActionPlanning:       "actionPlanning",
	StageReport:               "report",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// MarshalText expone la etapa por nombre en JSON
func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Mode variante del asistente
type Mode string

const (
	// ModeStaged cinco etapas: análisis al entrar a la planificación y guardado explícito
	ModeStaged Mode = "staged"
	// ModeDeferred tres etapas: análisis, acciones y guardado juntos al finalizar
	ModeDeferred Mode = "deferred"
)

// ParseMode interpreta WIZARD_MODE; vacío equivale a staged
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeStaged:
		return ModeStaged, nil
	case ModeDeferred:
		return ModeDeferred, nil
	}
	return "", fmt.Errorf("modo de asistente desconocido %q", s)
}

// Policy qué hacer cuando falla el servicio durante una transición
type Policy int

const (
	// FailOpen la transición ocurre igual, sin los datos sugeridos
	FailOpen Policy = iota
	// FailClosed la transición se aborta y la sesión queda en la etapa actual
	FailClosed
)

func (p Policy) String() string {
	if p == FailClosed {
		return "fail-closed"
	}
	return "fail-open"
}

// StageError falla del servicio o del almacén durante una transición
type StageError struct {
	From   Stage
	To     Stage
	Policy Policy
	Err    error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("transición %s a %s (%s): %v", e.From, e.To, e.Policy, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Options configuración común de las sesiones
type Options struct {
	Mode          Mode
	SuggestPolicy Policy
	Notifiers     []Notifier
	Logger        *zap.Logger
	Now           func() time.Time
	NewID         func() string
	// SessionTTL tiempo sin uso tras el cual el Manager descarta la sesión
	SessionTTL    time.Duration
}

// DefaultSessionTTL inactividad tolerada cuando Options.SessionTTL es cero
const DefaultSessionTTL = 2 * time.Hour

func (o Options) withDefaults() Options {
	if o.Mode == "" {
		o.Mode = ModeStaged
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.NewID == nil {
		o.NewID = uuid.NewString
	}
	if o.SessionTTL <= 0 {
		o.SessionTTL = DefaultSessionTTL
	}
	return o
}
