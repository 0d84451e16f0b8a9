package wizard

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/PhelGc/sig-rca/internal/rca"
	"github.com/PhelGc/sig-rca/internal/storage"
)

// Session estado de un análisis en curso. Solo una operación a la vez: mientras
// una llamada al servicio o al almacén está en vuelo el resto devuelve ErrBusy.
type Session struct {
	id     string
	svc    Service
	store  storage.Store
	opts   Options
	logger *zap.Logger

	loading  atomic.Bool
	// último acceso en UnixNano, lo usa el barrido del Manager
	lastUsed atomic.Int64

	mu         sync.RWMutex
	stage      Stage
	problem    *rca.Problem
	recs       []rca.Recommendation
	planSeeded bool
	lastErr    error
}

// Snapshot vista de solo lectura de la sesión
type Snapshot struct {
	ID              string               `json:"id"`
	Mode            Mode                 `json:"mode"`
	Stage           Stage                `json:"stage"`
	Problem         *rca.Problem         `json:"problem"`
	Recommendations []rca.Recommendation `json:"recommendations"`
	Loading         bool                 `json:"loading"`
	Error           string               `json:"error,omitempty"`
}

func newSession(id string, svc Service, store storage.Store, opts Options, p *rca.Problem) *Session {
	opts = opts.withDefaults()
	return &Session{
		id:      id,
		svc:     svc,
		store:   store,
		opts:    opts,
		logger:  opts.Logger.With(zap.String("session", id)),
		stage:   StageIntake,
		problem: p,
	}
}

// ID identificador de la sesión
func (s *Session) ID() string { return s.id }

// Stage etapa actual
func (s *Session) Stage() Stage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stage
}

// Problem copia del registro en edición
func (s *Session) Problem() *rca.Problem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.problem.Clone()
}

// Recommendations recomendaciones ordenadas por puntaje descendente
func (s *Session) Recommendations() []rca.Recommendation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]rca.Recommendation{}, s.recs...)
}

// LastError última falla de transición, nil si la última operación tuvo éxito
func (s *Session) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Snapshot devuelve el estado completo de la sesión
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		ID:              s.id,
		Mode:            s.opts.Mode,
		Stage:           s.stage,
		Problem:         s.problem.Clone(),
		Recommendations: append([]rca.Recommendation{}, s.recs...),
		Loading:         s.loading.Load(),
	}
	if s.lastErr != nil {
		snap.Error = s.lastErr.Error()
	}
	return snap
}

// --- Etapa 1: captura ---

// SetIntake reemplaza los datos de captura. No exige los campos obligatorios:
// eso se valida al pedir recomendaciones.
func (s *Session) SetIntake(in rca.Intake) error {
	return s.edit(StageIntake, "", func(p *rca.Problem) error {
		return p.ApplyIntake(in)
	})
}

// ToggleImpact agrega o quita un impacto
func (s *Session) ToggleImpact(i rca.Impact) error {
	return s.edit(StageIntake, "", func(p *rca.Problem) error {
		return p.ToggleImpact(i)
	})
}

// Recommend valida la captura y pide las recomendaciones de metodología.
// Si el servicio falla la sesión sigue en la captura.
func (s *Session) Recommend(ctx context.Context) ([]rca.Recommendation, error) {
	done, err := s.begin()
	if err != nil {
		return nil, err
	}
	defer done()

	stage, p := s.current()
	if stage != StageIntake {
		return nil, invalid("recomendar", stage)
	}
	if err := p.Intake().Validate(); err != nil {
		return nil, s.fail(err)
	}

	recs, err := s.svc.RecommendMethodologies(ctx, p)
	if err == nil && len(recs) == 0 {
		err = errors.New("el servicio no devolvió recomendaciones")
	}
	if err != nil {
		s.logger.Error("Error obteniendo recomendaciones", zap.Error(err))
		return nil, s.fail(&StageError{From: StageIntake, To: StageMethodologySelection, Policy: FailClosed, Err: err})
	}

	recs = append([]rca.Recommendation{}, recs...)
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Score > recs[j].Score })

	s.mu.Lock()
	s.recs = recs
	s.stage = StageMethodologySelection
	s.lastErr = nil
	s.mu.Unlock()

	s.logger.Info("Recomendaciones obtenidas", zap.String("top", string(recs[0].Methodology)), zap.Int("score", recs[0].Score))
	return append([]rca.Recommendation{}, recs...), nil
}

// --- Etapa 2: selección de metodología ---

// SelectMethodology fija la metodología y pide las sugerencias iniciales.
// Ishikawa combina por categoría; 5 Porqués reemplaza la cadena; 5W2H no
// consulta al servicio. Con FailOpen la falla de la sugerencia no bloquea.
func (s *Session) SelectMethodology(ctx context.Context, m rca.Methodology) error {
	done, err := s.begin()
	if err != nil {
		return err
	}
	defer done()

	stage, p := s.current()
	if stage != StageMethodologySelection {
		return invalid("elegir metodología", stage)
	}
	if !s.recommended(m) {
		return fmt.Errorf("%w: %s", ErrNotRecommended, m)
	}

	p.MetodologiaElegida = m
	var suggestErr error
	switch w := p.Work().(type) {
	case *rca.IshikawaData:
		suggestions, err := s.svc.SuggestIshikawa(ctx, p)
		if err == nil {
			w.Merge(suggestions)
		}
		suggestErr = err
	case *rca.FiveWhysData:
		whys, err := s.svc.SuggestFiveWhys(ctx, p)
		if err == nil {
			err = w.Replace(whys)
		}
		suggestErr = err
	}

	var warning error
	if suggestErr != nil {
		se := &StageError{From: StageMethodologySelection, To: StageMethodologyEditing, Policy: s.opts.SuggestPolicy, Err: suggestErr}
		if se.Policy == FailClosed {
			s.logger.Error("Error obteniendo sugerencias", zap.String("methodology", string(m)), zap.Error(suggestErr))
			return s.fail(se)
		}
		s.logger.Warn("Sugerencias no disponibles, se continúa sin ellas", zap.String("methodology", string(m)), zap.Error(suggestErr))
		warning = se
	}

	s.mu.Lock()
	s.problem = p
	s.stage = StageMethodologyEditing
	s.lastErr = warning
	s.mu.Unlock()
	return nil
}

// Back retrocede una etapa. Solo se permite desde la edición y desde la
// planificación; no descarta datos ni consulta al servicio.
func (s *Session) Back() error {
	done, err := s.begin()
	if err != nil {
		return err
	}
	defer done()

	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.stage {
	case StageMethodologyEditing:
		s.stage = StageMethodologySelection
	case StageActionPlanning:
		s.stage = StageMethodologyEditing
	default:
		return invalid("retroceder", s.stage)
	}
	s.lastErr = nil
	return nil
}

// --- Etapa 3: edición, hacia la planificación ---

// Analyze pide el análisis técnico y, la primera vez, el plan de acción
// sugerido. Ambas llamadas deben tener éxito; si no, la sesión sigue en la
// edición sin análisis ni plan nuevos.
func (s *Session) Analyze(ctx context.Context) error {
	done, err := s.begin()
	if err != nil {
		return err
	}
	defer done()

	if s.opts.Mode != ModeStaged {
		return fmt.Errorf("%w: en modo %s el análisis se hace al finalizar", ErrInvalidTransition, s.opts.Mode)
	}
	stage, p := s.current()
	if stage != StageMethodologyEditing {
		return invalid("analizar", stage)
	}
	s.mu.RLock()
	seedPlan := !s.planSeeded
	s.mu.RUnlock()

	analysis, plan, err := s.analyze(ctx, p, seedPlan)
	if err != nil {
		s.logger.Error("Error en el análisis", zap.Error(err))
		return s.fail(&StageError{From: StageMethodologyEditing, To: StageActionPlanning, Policy: FailClosed, Err: err})
	}

	s.mu.Lock()
	s.problem.Analisis = analysis
	if seedPlan {
		s.problem.PlanAccion = plan
		s.planSeeded = true
	}
	s.stage = StageActionPlanning
	s.lastErr = nil
	s.mu.Unlock()

	s.logger.Info("Análisis completado", zap.String("criticidad", string(analysis.Criticidad)), zap.Int("acciones", len(plan)))
	return nil
}

// --- Etapa 4: planificación, hacia el informe ---

// Save guarda el registro (asigna id si no tiene) y pasa al informe. Si el
// almacén falla el registro queda en memoria para reintentar.
func (s *Session) Save(ctx context.Context) (*rca.Problem, error) {
	done, err := s.begin()
	if err != nil {
		return nil, err
	}
	defer done()

	if s.opts.Mode != ModeStaged {
		return nil, fmt.Errorf("%w: en modo %s se usa finalizar", ErrInvalidTransition, s.opts.Mode)
	}
	stage, p := s.current()
	if stage != StageActionPlanning {
		return nil, invalid("guardar", stage)
	}
	if err := s.persist(ctx, p); err != nil {
		return nil, s.fail(&StageError{From: StageActionPlanning, To: StageReport, Policy: FailClosed, Err: err})
	}

	s.mu.Lock()
	s.problem = p
	s.stage = StageReport
	s.lastErr = nil
	s.mu.Unlock()

	s.notify(ctx, p)
	return p.Clone(), nil
}

// Finalize en modo deferred hace análisis, acciones y guardado en un solo
// paso desde la edición. Cualquier falla deja la sesión sin cambios.
func (s *Session) Finalize(ctx context.Context) (*rca.Problem, error) {
	done, err := s.begin()
	if err != nil {
		return nil, err
	}
	defer done()

	if s.opts.Mode != ModeDeferred {
		return nil, fmt.Errorf("%w: en modo %s se usa analizar y guardar", ErrInvalidTransition, s.opts.Mode)
	}
	stage, p := s.current()
	if stage != StageMethodologyEditing {
		return nil, invalid("finalizar", stage)
	}

	analysis, plan, err := s.analyze(ctx, p, true)
	if err == nil {
		p.Analisis = analysis
		p.PlanAccion = plan
		err = s.persist(ctx, p)
	}
	if err != nil {
		s.logger.Error("Error finalizando el análisis", zap.Error(err))
		return nil, s.fail(&StageError{From: StageMethodologyEditing, To: StageReport, Policy: FailClosed, Err: err})
	}

	s.mu.Lock()
	s.problem = p
	s.planSeeded = true
	s.stage = StageReport
	s.lastErr = nil
	s.mu.Unlock()

	s.notify(ctx, p)
	return p.Clone(), nil
}

// --- auxiliares ---

func (s *Session) begin() (func(), error) {
	if !s.loading.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	return func() { s.loading.Store(false) }, nil
}

// current devuelve la etapa y una copia del registro para trabajar fuera del candado
func (s *Session) current() (Stage, *rca.Problem) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stage, s.problem.Clone()
}

func (s *Session) fail(err error) error {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
	return err
}

func (s *Session) recommended(m rca.Methodology) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.recs {
		if r.Methodology == m {
			return true
		}
	}
	return false
}

func (s *Session) analyze(ctx context.Context, p *rca.Problem, withActions bool) (*rca.AnalysisResult, []rca.Action, error) {
	analysis, err := s.svc.AnalyzeProblem(ctx, p)
	if err != nil {
		return nil, nil, err
	}
	if analysis == nil {
		return nil, nil, errors.New("el servicio no devolvió análisis")
	}
	if !withActions {
		return analysis, nil, nil
	}
	actions, err := s.svc.SuggestActions(ctx, p, analysis)
	if err != nil {
		return nil, nil, err
	}
	return analysis, s.seedPlan(actions), nil
}

// seedPlan asigna ids suggested-i y la fecha de hoy a las acciones sugeridas
func (s *Session) seedPlan(actions []rca.Action) []rca.Action {
	today := s.opts.Now().Format(rca.DateLayout)
	plan := rca.CloneActions(actions)
	if plan == nil {
		plan = []rca.Action{}
	}
	for i := range plan {
		plan[i].ID = rca.SuggestedActionID(i)
		plan[i].Fecha = today
		if !plan[i].Tipo.Valid() {
			plan[i].Tipo = rca.ActionCorrective
		}
	}
	return plan
}

func (s *Session) persist(ctx context.Context, p *rca.Problem) error {
	if p.ID == "" {
		p.ID = s.opts.NewID()
	}
	if err := s.store.Upsert(ctx, p); err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	s.logger.Info("Registro guardado", zap.String("id", p.ID))
	return nil
}

// notify avisa a los suscriptores; sus errores no afectan al guardado
func (s *Session) notify(ctx context.Context, p *rca.Problem) {
	for _, n := range s.opts.Notifiers {
		if err := n.NotifySaved(ctx, p.Clone()); err != nil {
			s.logger.Warn("Error notificando registro guardado", zap.String("id", p.ID), zap.Error(err))
		}
	}
}

func invalid(op string, stage Stage) error {
	return fmt.Errorf("%w: %s en la etapa %s", ErrInvalidTransition, op, stage)
}
