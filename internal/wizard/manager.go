package wizard

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/PhelGc/sig-rca/internal/rca"
	"github.com/PhelGc/sig-rca/internal/storage"
)

// Manager registro de sesiones activas
type Manager struct {
	svc   Service
	store storage.Store
	opts  Options

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager crea el registro de sesiones
func NewManager(svc Service, store storage.Store, opts Options) *Manager {
	return &Manager{
		svc:      svc,
		store:    store,
		opts:     opts.withDefaults(),
		sessions: make(map[string]*Session),
	}
}

// Mode variante configurada
func (m *Manager) Mode() Mode { return m.opts.Mode }

// Create abre una sesión en la etapa de captura. seed precarga la captura
// (por ejemplo desde una incidencia de Jira).
func (m *Manager) Create(seed *rca.Intake) (*Session, error) {
	p := rca.NewProblem(m.opts.Now())
	if seed != nil {
		if err := p.ApplyIntake(*seed); err != nil {
			return nil, err
		}
	}
	s := newSession(uuid.NewString(), m.svc, m.store, m.opts, p)
	s.lastUsed.Store(m.opts.Now().UnixNano())

	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()

	m.opts.Logger.Info("Sesión de análisis creada", zap.String("session", s.id), zap.String("mode", string(m.opts.Mode)))
	return s, nil
}

// Get obtiene una sesión por id y renueva su vigencia
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNoSession
	}
	s.lastUsed.Store(m.opts.Now().UnixNano())
	return s, nil
}

// Delete abandona una sesión. Lo que no se guardó se pierde.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return ErrNoSession
	}
	delete(m.sessions, id)
	return nil
}

// Len cantidad de sesiones activas
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep descarta las sesiones sin uso durante más de SessionTTL. Las que
// esperan al servicio de IA se conservan. Devuelve cuántas se descartaron.
func (m *Manager) Sweep() int {
	cutoff := m.opts.Now().Add(-m.opts.SessionTTL).UnixNano()

	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, s := range m.sessions {
		if s.loading.Load() || s.lastUsed.Load() > cutoff {
			continue
		}
		delete(m.sessions, id)
		removed++
	}
	if removed > 0 {
		m.opts.Logger.Info("Sesiones inactivas descartadas",
			zap.Int("removed", removed), zap.Int("active", len(m.sessions)))
	}
	return removed
}

// RunSweeper ejecuta Sweep periódicamente hasta que se cancela ctx
func (m *Manager) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(m.opts.SessionTTL / 4)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}
