package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PhelGc/sig-rca/internal/editor"
	"github.com/PhelGc/sig-rca/internal/rca"
	"github.com/PhelGc/sig-rca/internal/storage"
)

var testNow = time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)

type fakeService struct {
	recs        []rca.Recommendation
	recErr      error
	ishikawa    map[string][]string
	ishikawaErr error
	whys        []string
	whysErr     error
	analysis    *rca.AnalysisResult
	analysisErr error
	actions     []rca.Action
	actionsErr  error

	entered chan struct{}
	release chan struct{}

	mu    sync.Mutex
	calls map[string]int
}

func newFakeService() *fakeService {
	return &fakeService{
		recs: []rca.Recommendation{
			{Methodology: rca.MethodologyFiveW2H, Reason: "Plan operativo", Score: 3},
			{Methodology: rca.MethodologyIshikawa, Reason: "Múltiples factores", Score: 9},
			{Methodology: rca.MethodologyFiveWhys, Reason: "Cadena lineal", Score: 6},
		},
		ishikawa: map[string][]string{"maquinaria": {"Bomba sin mantenimiento", "Sello desgastado"}},
		whys:     []string{"w1", "w2", "w3", "w4", "w5"},
		analysis: &rca.AnalysisResult{
			Diagnostico:          "Corrosión en válvula de descarga",
			CausaRaiz:            "Plan de mantenimiento inexistente",
			Criticidad:           rca.CriticalityHigh,
			RiesgoESG:            rca.ESGRisk{Ambiental: 5, Social: 2, Financiero: 4, Gobernanza: 3},
			CausasDirectas:       []string{"Válvula corroída"},
			CausasContribuyentes: []string{},
		},
		actions: []rca.Action{
			{Tipo: rca.ActionCorrective, Descripcion: "Reemplazar válvula", Fecha: "2020-01-01"},
			{Tipo: rca.ActionPreventive, Descripcion: "Inspección mensual"},
			{Tipo: "", Descripcion: "Capacitar operadores"},
		},
		calls: map[string]int{},
	}
}

func (f *fakeService) call(op string) {
	f.mu.Lock()
	f.calls[op]++
	f.mu.Unlock()
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
}

func (f *fakeService) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeService) RecommendMethodologies(_ context.Context, _ *rca.Problem) ([]rca.Recommendation, error) {
	f.call("recommend")
	return f.recs, f.recErr
}

func (f *fakeService) SuggestIshikawa(_ context.Context, _ *rca.Problem) (map[string][]string, error) {
	f.call("ishikawa")
	return f.ishikawa, f.ishikawaErr
}

func (f *fakeService) SuggestFiveWhys(_ context.Context, _ *rca.Problem) ([]string, error) {
	f.call("whys")
	return f.whys, f.whysErr
}

func (f *fakeService) AnalyzeProblem(_ context.Context, _ *rca.Problem) (*rca.AnalysisResult, error) {
	f.call("analyze")
	if f.analysisErr != nil {
		return nil, f.analysisErr
	}
	return f.analysis, nil
}

func (f *fakeService) SuggestActions(_ context.Context, _ *rca.Problem, _ *rca.AnalysisResult) ([]rca.Action, error) {
	f.call("actions")
	if f.actionsErr != nil {
		return nil, f.actionsErr
	}
	return rca.CloneActions(f.actions), nil
}

type failingStore struct {
	*storage.Memory
	err error
}

func (s *failingStore) Upsert(ctx context.Context, p *rca.Problem) error {
	if s.err != nil {
		return s.err
	}
	return s.Memory.Upsert(ctx, p)
}

type fakeNotifier struct {
	saved []*rca.Problem
	err   error
}

func (n *fakeNotifier) NotifySaved(_ context.Context, p *rca.Problem) error {
	n.saved = append(n.saved, p)
	return n.err
}

func testOptions() Options {
	return Options{
		Now:   func() time.Time { return testNow },
		NewID: func() string { return "rca-001" },
	}
}

func leakIntake() rca.Intake {
	return rca.Intake{
		Problema:   "Leak in tank 3",
		Area:       "Production",
		Impactos:   []rca.Impact{rca.ImpactAmbiental},
		Frecuencia: rca.FrequencyRecurrent,
	}
}

func newTestSession(t *testing.T, svc Service, store storage.Store, opts Options) *Session {
	t.Helper()
	s, err := NewManager(svc, store, opts).Create(nil)
	require.NoError(t, err)
	return s
}

// toEditing lleva la sesión hasta la edición con la metodología indicada
func toEditing(t *testing.T, s *Session, m rca.Methodology) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.SetIntake(leakIntake()))
	_, err := s.Recommend(ctx)
	require.NoError(t, err)
	require.NoError(t, s.SelectMethodology(ctx, m))
	require.Equal(t, StageMethodologyEditing, s.Stage())
}

func TestRecommendSortsByScoreAndAdvances(t *testing.T) {
	svc := newFakeService()
	s := newTestSession(t, svc, storage.NewMemory(), testOptions())
	require.NoError(t, s.SetIntake(leakIntake()))

	recs, err := s.Recommend(context.Background())
	require.NoError(t, err)

	require.Len(t, recs, 3)
	assert.Equal(t, rca.MethodologyIshikawa, recs[0].Methodology)
	assert.Equal(t, rca.MethodologyFiveWhys, recs[1].Methodology)
	assert.Equal(t, rca.MethodologyFiveW2H, recs[2].Methodology)
	assert.Equal(t, StageMethodologySelection, s.Stage())
	assert.Equal(t, recs, s.Recommendations())
	assert.NoError(t, s.LastError())
}

func TestRecommendKeepsTieOrder(t *testing.T) {
	svc := newFakeService()
	svc.recs = []rca.Recommendation{
		{Methodology: rca.MethodologyFiveWhys, Score: 7},
		{Methodology: rca.MethodologyIshikawa, Score: 7},
		{Methodology: rca.MethodologyFiveW2H, Score: 8},
	}
	s := newTestSession(t, svc, storage.NewMemory(), testOptions())
	require.NoError(t, s.SetIntake(leakIntake()))

	recs, err := s.Recommend(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []rca.Methodology{rca.MethodologyFiveW2H, rca.MethodologyFiveWhys, rca.MethodologyIshikawa},
		[]rca.Methodology{recs[0].Methodology, recs[1].Methodology, recs[2].Methodology})
}

func TestRecommendValidationBlocksWithoutServiceCall(t *testing.T) {
	svc := newFakeService()
	s := newTestSession(t, svc, storage.NewMemory(), testOptions())
	require.NoError(t, s.SetIntake(rca.Intake{Problema: "Fuga", Area: "   "}))

	_, err := s.Recommend(context.Background())
	assert.ErrorIs(t, err, rca.ErrValidation)
	assert.Equal(t, 0, svc.count("recommend"))
	assert.Equal(t, StageIntake, s.Stage())
}

func TestRecommendFailureStaysOnIntake(t *testing.T) {
	svc := newFakeService()
	svc.recErr = errors.New("cuota agotada")
	s := newTestSession(t, svc, storage.NewMemory(), testOptions())
	require.NoError(t, s.SetIntake(leakIntake()))

	_, err := s.Recommend(context.Background())
	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageIntake, se.From)
	assert.Equal(t, FailClosed, se.Policy)
	assert.Equal(t, StageIntake, s.Stage())
	assert.Empty(t, s.Recommendations())
	assert.Contains(t, s.Snapshot().Error, "cuota agotada")

	// reintento manual
	svc.recErr = nil
	_, err = s.Recommend(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StageMethodologySelection, s.Stage())
	assert.Empty(t, s.Snapshot().Error)
}

func TestLeakInTank3Scenario(t *testing.T) {
	svc := newFakeService()
	s := newTestSession(t, svc, storage.NewMemory(), testOptions())
	toEditing(t, s, rca.MethodologyIshikawa)

	seeded := s.Problem().IshikawaData
	assert.Equal(t, []string{"Bomba sin mantenimiento", "Sello desgastado"}, seeded.Causes("maquinaria"))

	require.NoError(t, s.AddCause("materiales", "Corroded valve"))

	got := s.Problem()
	assert.Equal(t, rca.MethodologyIshikawa, got.MetodologiaElegida)
	assert.Equal(t, []string{"Corroded valve"}, got.IshikawaData.Causes("materiales"))
	for _, c := range seeded.Categories() {
		if c.ID == "materiales" {
			continue
		}
		assert.Equal(t, seeded.Causes(c.ID), got.IshikawaData.Causes(c.ID), c.ID)
	}
	assert.Equal(t, 0, svc.count("whys"))
}

func TestSelectFiveWhysReplacesChain(t *testing.T) {
	svc := newFakeService()
	s := newTestSession(t, svc, storage.NewMemory(), testOptions())
	toEditing(t, s, rca.MethodologyFiveWhys)

	p := s.Problem()
	assert.Equal(t, []string{"w1", "w2", "w3", "w4", "w5"}, p.FiveWhysData.Whys)
	assert.Equal(t, 0, p.IshikawaData.Len(), "la otra metodología no se toca")
	assert.Equal(t, 0, svc.count("ishikawa"))
}

func TestSelectFiveW2HSkipsService(t *testing.T) {
	svc := newFakeService()
	s := newTestSession(t, svc, storage.NewMemory(), testOptions())
	toEditing(t, s, rca.MethodologyFiveW2H)

	assert.Equal(t, 0, svc.count("ishikawa")+svc.count("whys"))
	assert.Equal(t, rca.FiveW2H{}, s.Problem().Work())
}

func TestSelectMethodologyFailOpen(t *testing.T) {
	svc := newFakeService()
	svc.ishikawaErr = errors.New("respuesta inválida")
	s := newTestSession(t, svc, storage.NewMemory(), testOptions())
	toEditing(t, s, rca.MethodologyIshikawa)

	assert.Equal(t, 0, s.Problem().IshikawaData.Len())
	var se *StageError
	require.ErrorAs(t, s.LastError(), &se)
	assert.Equal(t, FailOpen, se.Policy)
	assert.Equal(t, StageMethodologyEditing, se.To)
}

func TestSelectMethodologyFailClosed(t *testing.T) {
	svc := newFakeService()
	svc.whysErr = errors.New("timeout")
	opts := testOptions()
	opts.SuggestPolicy = FailClosed
	s := newTestSession(t, svc, storage.NewMemory(), opts)
	require.NoError(t, s.SetIntake(leakIntake()))
	_, err := s.Recommend(context.Background())
	require.NoError(t, err)

	err = s.SelectMethodology(context.Background(), rca.MethodologyFiveWhys)
	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, FailClosed, se.Policy)
	assert.Equal(t, StageMethodologySelection, s.Stage())
	assert.Empty(t, s.Problem().MetodologiaElegida)
}

func TestSelectMethodologyMustBeRecommended(t *testing.T) {
	svc := newFakeService()
	svc.recs = svc.recs[1:2]
	s := newTestSession(t, svc, storage.NewMemory(), testOptions())
	require.NoError(t, s.SetIntake(leakIntake()))
	_, err := s.Recommend(context.Background())
	require.NoError(t, err)

	assert.ErrorIs(t, s.SelectMethodology(context.Background(), rca.MethodologyFiveWhys), ErrNotRecommended)
	assert.Equal(t, StageMethodologySelection, s.Stage())
}

func TestAnalyzeFailureLeavesRecordUntouched(t *testing.T) {
	for name, mutate := range map[string]func(*fakeService){
		"analyze": func(f *fakeService) { f.analysisErr = errors.New("json mal formado") },
		"actions": func(f *fakeService) { f.actionsErr = errors.New("sin acciones") },
	} {
		t.Run(name, func(t *testing.T) {
			svc := newFakeService()
			mutate(svc)
			store := storage.NewMemory()
			s := newTestSession(t, svc, store, testOptions())
			toEditing(t, s, rca.MethodologyIshikawa)

			err := s.Analyze(context.Background())
			var se *StageError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, StageMethodologyEditing, se.From)
			assert.Equal(t, StageActionPlanning, se.To)

			assert.Equal(t, StageMethodologyEditing, s.Stage())
			p := s.Problem()
			assert.Nil(t, p.Analisis)
			assert.Nil(t, p.PlanAccion)

			all, err := store.List(context.Background())
			require.NoError(t, err)
			assert.Empty(t, all)
		})
	}
}

func TestAnalyzeSeedsPlanOnlyOnFirstEntry(t *testing.T) {
	svc := newFakeService()
	s := newTestSession(t, svc, storage.NewMemory(), testOptions())
	toEditing(t, s, rca.MethodologyIshikawa)

	require.NoError(t, s.Analyze(context.Background()))
	assert.Equal(t, StageActionPlanning, s.Stage())

	p := s.Problem()
	require.NotNil(t, p.Analisis)
	assert.Equal(t, rca.CriticalityHigh, p.Analisis.Criticidad)
	require.Len(t, p.PlanAccion, 3)
	for i, a := range p.PlanAccion {
		assert.Equal(t, rca.SuggestedActionID(i), a.ID)
		assert.Equal(t, "2026-10-17", a.Fecha)
	}
	assert.Equal(t, rca.ActionCorrective, p.PlanAccion[2].Tipo)

	resp := "Jefe de planta"
	require.NoError(t, s.UpdateAction("suggested-1", rca.ActionPatch{Responsable: &resp}))
	id, err := s.AddAction()
	require.NoError(t, err)

	require.NoError(t, s.Back())
	assert.Equal(t, StageMethodologyEditing, s.Stage())
	require.NoError(t, s.Analyze(context.Background()))

	p = s.Problem()
	require.Len(t, p.PlanAccion, 4)
	assert.Equal(t, resp, p.PlanAccion[1].Responsable)
	assert.Equal(t, id, p.PlanAccion[3].ID)
	assert.Equal(t, 2, svc.count("analyze"))
	assert.Equal(t, 1, svc.count("actions"))
}

func TestSaveAssignsIDPersistsAndNotifies(t *testing.T) {
	svc := newFakeService()
	store := storage.NewMemory()
	failing := &fakeNotifier{err: errors.New("discord caído")}
	ok := &fakeNotifier{}
	opts := testOptions()
	opts.Notifiers = []Notifier{failing, ok}
	s := newTestSession(t, svc, store, opts)
	toEditing(t, s, rca.MethodologyIshikawa)
	require.NoError(t, s.AddCause("materiales", "Corroded valve"))
	require.NoError(t, s.Analyze(context.Background()))

	saved, err := s.Save(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "rca-001", saved.ID)
	assert.Equal(t, StageReport, s.Stage())

	got, err := store.Get(context.Background(), "rca-001")
	require.NoError(t, err)
	assert.Equal(t, []string{"Corroded valve"}, got.IshikawaData.Causes("materiales"))
	assert.Len(t, got.PlanAccion, 3)

	require.Len(t, ok.saved, 1)
	assert.Equal(t, "rca-001", ok.saved[0].ID)
	assert.Len(t, failing.saved, 1)

	_, err = s.AddAction()
	assert.ErrorIs(t, err, ErrInvalidTransition, "el informe es de solo lectura")
}

func TestSaveFailureRetainsRecordForRetry(t *testing.T) {
	svc := newFakeService()
	store := &failingStore{Memory: storage.NewMemory(), err: errors.New("disco lleno")}
	s := newTestSession(t, svc, store, testOptions())
	toEditing(t, s, rca.MethodologyIshikawa)
	require.NoError(t, s.Analyze(context.Background()))

	_, err := s.Save(context.Background())
	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.ErrorIs(t, err, ErrPersist)
	assert.ErrorIs(t, err, store.err)
	assert.Equal(t, StageActionPlanning, s.Stage())
	assert.NotNil(t, s.Problem().Analisis)

	store.err = nil
	saved, err := s.Save(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "rca-001", saved.ID)
	assert.Equal(t, StageReport, s.Stage())
}

func TestDeferredModeFinalize(t *testing.T) {
	svc := newFakeService()
	store := storage.NewMemory()
	opts := testOptions()
	opts.Mode = ModeDeferred
	s := newTestSession(t, svc, store, opts)
	toEditing(t, s, rca.MethodologyFiveWhys)

	assert.ErrorIs(t, s.Analyze(context.Background()), ErrInvalidTransition)
	_, err := s.Save(context.Background())
	assert.ErrorIs(t, err, ErrInvalidTransition)

	svc.actionsErr = errors.New("sin acciones")
	_, err = s.Finalize(context.Background())
	require.Error(t, err)
	assert.Equal(t, StageMethodologyEditing, s.Stage())
	assert.Nil(t, s.Problem().Analisis)
	all, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)

	svc.actionsErr = nil
	saved, err := s.Finalize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StageReport, s.Stage())
	assert.NotNil(t, saved.Analisis)
	assert.Len(t, saved.PlanAccion, 3)

	got, err := store.Get(context.Background(), saved.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"w1", "w2", "w3", "w4", "w5"}, got.FiveWhysData.Whys)
}

func TestBusySessionRejectsConcurrentOperations(t *testing.T) {
	svc := newFakeService()
	svc.entered = make(chan struct{})
	svc.release = make(chan struct{})
	s := newTestSession(t, svc, storage.NewMemory(), testOptions())
	require.NoError(t, s.SetIntake(leakIntake()))

	result := make(chan error, 1)
	go func() {
		_, err := s.Recommend(context.Background())
		result <- err
	}()
	<-svc.entered

	assert.True(t, s.Snapshot().Loading)
	assert.ErrorIs(t, s.ToggleImpact(rca.ImpactCalidad), ErrBusy)
	_, err := s.Recommend(context.Background())
	assert.ErrorIs(t, err, ErrBusy)

	close(svc.release)
	require.NoError(t, <-result)
	assert.False(t, s.Snapshot().Loading)
	assert.Equal(t, 1, svc.count("recommend"))
}

func TestBackTransitions(t *testing.T) {
	svc := newFakeService()
	s := newTestSession(t, svc, storage.NewMemory(), testOptions())
	assert.ErrorIs(t, s.Back(), ErrInvalidTransition)

	toEditing(t, s, rca.MethodologyIshikawa)
	require.NoError(t, s.AddCause("metodo", "Procedimiento desactualizado"))
	require.NoError(t, s.Back())
	assert.Equal(t, StageMethodologySelection, s.Stage())
	assert.ErrorIs(t, s.Back(), ErrInvalidTransition)

	assert.Equal(t, []string{"Procedimiento desactualizado"}, s.Problem().IshikawaData.Causes("metodo"))
	assert.Equal(t, 1, svc.count("ishikawa"))
	assert.Equal(t, 1, svc.count("recommend"))

	// cambiar de metodología no borra el tablero ya editado
	require.NoError(t, s.SelectMethodology(context.Background(), rca.MethodologyFiveWhys))
	p := s.Problem()
	assert.Equal(t, []string{"Procedimiento desactualizado"}, p.IshikawaData.Causes("metodo"))
	assert.Equal(t, rca.MethodologyFiveWhys, p.MetodologiaElegida)
}

func TestEditorsRespectStageAndMethodology(t *testing.T) {
	svc := newFakeService()
	s := newTestSession(t, svc, storage.NewMemory(), testOptions())
	assert.ErrorIs(t, s.AddCause("materiales", "x"), ErrInvalidTransition)

	toEditing(t, s, rca.MethodologyFiveWhys)
	assert.ErrorIs(t, s.AddCause("materiales", "x"), ErrInvalidTransition)
	assert.ErrorIs(t, s.SetIntake(leakIntake()), ErrInvalidTransition)

	require.NoError(t, s.EditWhy(0, "w1"))
	assert.Equal(t, []string{"w1", "w2", "w3", "w4", "w5"}, s.Problem().FiveWhysData.Whys)
	require.NoError(t, s.AppendWhy())
	assert.Len(t, s.Problem().FiveWhysData.Whys, 6)

	assert.ErrorIs(t, s.RemoveWhy(0, editor.Never), editor.ErrNotConfirmed)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.RemoveWhy(0, editor.Always))
	}
	assert.ErrorIs(t, s.RemoveWhy(0, editor.Always), rca.ErrLastWhy)
	assert.Len(t, s.Problem().FiveWhysData.Whys, 1)
}

func TestIshikawaCategoryOperations(t *testing.T) {
	svc := newFakeService()
	s := newTestSession(t, svc, storage.NewMemory(), testOptions())
	toEditing(t, s, rca.MethodologyIshikawa)

	id, added, err := s.AddCategory("Clima Extremo")
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, "climaextremo", id)
	require.NoError(t, s.AddCause(id, "Lluvias"))

	_, added, err = s.AddCategory("clima extremo")
	require.NoError(t, err)
	assert.False(t, added)

	assert.ErrorIs(t, s.RemoveCategory(id, editor.Never), editor.ErrNotConfirmed)
	require.NoError(t, s.RemoveCategory(id, editor.Always))
	_, added, err = s.AddCategory("Clima Extremo")
	require.NoError(t, err)
	assert.True(t, added)
	assert.Empty(t, s.Problem().IshikawaData.Causes(id))

	require.NoError(t, s.EditCause("maquinaria", 0, "Bomba vieja"))
	assert.ErrorIs(t, s.EditCause("maquinaria", 0, " "), rca.ErrEmptyCause)
	require.NoError(t, s.RemoveCause("maquinaria", 1, editor.Always))
	assert.Equal(t, []string{"Bomba vieja"}, s.Problem().IshikawaData.Causes("maquinaria"))
}

func TestManagerSessions(t *testing.T) {
	m := NewManager(newFakeService(), storage.NewMemory(), testOptions())
	assert.Equal(t, ModeStaged, m.Mode())

	seed := leakIntake()
	s, err := m.Create(&seed)
	require.NoError(t, err)
	assert.Equal(t, "Leak in tank 3", s.Problem().Problema)
	assert.Equal(t, testNow, s.Problem().FechaCreacion)

	got, err := m.Get(s.ID())
	require.NoError(t, err)
	assert.Same(t, s, got)
	assert.Equal(t, 1, m.Len())

	require.NoError(t, m.Delete(s.ID()))
	_, err = m.Get(s.ID())
	assert.ErrorIs(t, err, ErrNoSession)
	assert.ErrorIs(t, m.Delete(s.ID()), ErrNoSession)

	bad := rca.Intake{Frecuencia: "Diaria"}
	_, err = m.Create(&bad)
	assert.ErrorIs(t, err, rca.ErrValidation)
}

func TestManagerSweepsIdleSessions(t *testing.T) {
	now := testNow
	opts := testOptions()
	opts.Now = func() time.Time { return now }
	opts.SessionTTL = time.Hour
	svc := newFakeService()
	svc.entered = make(chan struct{})
	svc.release = make(chan struct{})
	m := NewManager(svc, storage.NewMemory(), opts)

	idle, err := m.Create(nil)
	require.NoError(t, err)
	used, err := m.Create(nil)
	require.NoError(t, err)
	busy, err := m.Create(nil)
	require.NoError(t, err)
	require.NoError(t, busy.SetIntake(leakIntake()))

	result := make(chan error, 1)
	go func() {
		_, err := busy.Recommend(context.Background())
		result <- err
	}()
	<-svc.entered

	now = now.Add(40 * time.Minute)
	_, err = m.Get(used.ID())
	require.NoError(t, err)
	assert.Equal(t, 0, m.Sweep())

	now = now.Add(30 * time.Minute)
	assert.Equal(t, 1, m.Sweep())
	_, err = m.Get(idle.ID())
	assert.ErrorIs(t, err, ErrNoSession)
	_, err = m.Get(used.ID())
	assert.NoError(t, err)
	_, err = m.Get(busy.ID())
	assert.NoError(t, err, "una sesión esperando al servicio no expira")

	close(svc.release)
	require.NoError(t, <-result)
	now = now.Add(2 * time.Hour)
	assert.Equal(t, 2, m.Sweep())
	assert.Equal(t, 0, m.Len())
}

func TestRunSweeperStopsOnCancel(t *testing.T) {
	opts := testOptions()
	opts.SessionTTL = time.Millisecond
	m := NewManager(newFakeService(), storage.NewMemory(), opts)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.RunSweeper(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunSweeper no terminó tras cancelar el contexto")
	}
}

func TestSnapshotJSON(t *testing.T) {
	s := newTestSession(t, newFakeService(), storage.NewMemory(), testOptions())
	data, err := json.Marshal(s.Snapshot())
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "intake", raw["stage"])
	assert.Equal(t, "staged", raw["mode"])
	assert.Equal(t, false, raw["loading"])
	assert.NotContains(t, raw, "error")
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeStaged, m)
	m, err = ParseMode(" Deferred ")
	require.NoError(t, err)
	assert.Equal(t, ModeDeferred, m)
	_, err = ParseMode("turbo")
	assert.Error(t, err)
}
