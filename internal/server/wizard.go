package server

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/PhelGc/sig-rca/internal/editor"
	"github.com/PhelGc/sig-rca/internal/rca"
	"github.com/PhelGc/sig-rca/internal/wizard"
)

// createSession abre una sesión; ?jira=KEY precarga la captura desde la incidencia
func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var seed *rca.Intake
	if key := r.URL.Query().Get("jira"); key != "" {
		if s.drafts == nil {
			writeAPIError(r.Context(), w, errJiraDisabled)
			return
		}
		draft, err := s.drafts.GetDraft(r.Context(), key)
		if err != nil {
			writeDraftError(r.Context(), w, err)
			return
		}
		seed = &draft.Intake
	}

	sess, err := s.sessions.Create(seed)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess.Snapshot())
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *wizard.Session) error { return nil })
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(chi.URLParam(r, "sid")); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- captura ---

func (s *Server) setIntake(w http.ResponseWriter, r *http.Request) {
	var in rca.Intake
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	s.withSession(w, r, func(sess *wizard.Session) error {
		return sess.SetIntake(in)
	})
}

func (s *Server) toggleImpact(w http.ResponseWriter, r *http.Request) {
	impact := rca.Impact(pathParam(r, "impacto"))
	s.withSession(w, r, func(sess *wizard.Session) error {
		return sess.ToggleImpact(impact)
	})
}

// --- transiciones ---

func (s *Server) recommend(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, "recommend", func(ctx context.Context, sess *wizard.Session) error {
		_, err := sess.Recommend(ctx)
		return err
	})
}

type methodologyRequest struct {
	Methodology string `json:"methodology"`
}

func (s *Server) selectMethodology(w http.ResponseWriter, r *http.Request) {
	var req methodologyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	m, err := rca.ParseMethodology(req.Methodology)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	s.transition(w, r, "methodology:"+string(m), func(ctx context.Context, sess *wizard.Session) error {
		return sess.SelectMethodology(ctx, m)
	})
}

func (s *Server) back(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *wizard.Session) error {
		return sess.Back()
	})
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, "analyze", func(ctx context.Context, sess *wizard.Session) error {
		return sess.Analyze(ctx)
	})
}

func (s *Server) save(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, "save", func(ctx context.Context, sess *wizard.Session) error {
		_, err := sess.Save(ctx)
		return err
	})
}

func (s *Server) finalize(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, "finalize", func(ctx context.Context, sess *wizard.Session) error {
		_, err := sess.Finalize(ctx)
		return err
	})
}

// --- Ishikawa ---

type categoryRequest struct {
	Label string `json:"label"`
}

type causeRequest struct {
	Cause string `json:"cause"`
}

func (s *Server) addCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	s.withSession(w, r, func(sess *wizard.Session) error {
		_, _, err := sess.AddCategory(req.Label)
		return err
	})
}

func (s *Server) removeCategory(w http.ResponseWriter, r *http.Request) {
	category := pathParam(r, "cat")
	s.withSession(w, r, func(sess *wizard.Session) error {
		return sess.RemoveCategory(category, confirmer(r))
	})
}

func (s *Server) addCause(w http.ResponseWriter, r *http.Request) {
	var req causeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	category := pathParam(r, "cat")
	s.withSession(w, r, func(sess *wizard.Session) error {
		return sess.AddCause(category, req.Cause)
	})
}

func (s *Server) editCause(w http.ResponseWriter, r *http.Request) {
	index, err := indexParam(r)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	var req causeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	category := pathParam(r, "cat")
	s.withSession(w, r, func(sess *wizard.Session) error {
		return sess.EditCause(category, index, req.Cause)
	})
}

func (s *Server) removeCause(w http.ResponseWriter, r *http.Request) {
	index, err := indexParam(r)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	category := pathParam(r, "cat")
	s.withSession(w, r, func(sess *wizard.Session) error {
		return sess.RemoveCause(category, index, confirmer(r))
	})
}

// --- 5 Porqués ---

type whyRequest struct {
	Why string `json:"why"`
}

func (s *Server) appendWhy(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *wizard.Session) error {
		return sess.AppendWhy()
	})
}

func (s *Server) editWhy(w http.ResponseWriter, r *http.Request) {
	index, err := indexParam(r)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	var req whyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	s.withSession(w, r, func(sess *wizard.Session) error {
		return sess.EditWhy(index, req.Why)
	})
}

func (s *Server) removeWhy(w http.ResponseWriter, r *http.Request) {
	index, err := indexParam(r)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	s.withSession(w, r, func(sess *wizard.Session) error {
		return sess.RemoveWhy(index, confirmer(r))
	})
}

// --- plan de acción ---

func (s *Server) addAction(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *wizard.Session) error {
		_, err := sess.AddAction()
		return err
	})
}

func (s *Server) updateAction(w http.ResponseWriter, r *http.Request) {
	var patch rca.ActionPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	id := pathParam(r, "actionId")
	s.withSession(w, r, func(sess *wizard.Session) error {
		return sess.UpdateAction(id, patch)
	})
}

func (s *Server) removeAction(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "actionId")
	s.withSession(w, r, func(sess *wizard.Session) error {
		return sess.RemoveAction(id, confirmer(r))
	})
}

// --- helpers ---

// withSession aplica fn a la sesión y responde con el estado resultante
func (s *Server) withSession(w http.ResponseWriter, r *http.Request, fn func(*wizard.Session) error) {
	sess, err := s.sessions.Get(chi.URLParam(r, "sid"))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	if err := fn(sess); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

// transition ejecuta una transición que consulta al servicio o al almacén.
// Un reenvío de la misma acción mientras la primera sigue en vuelo recibe su
// mismo resultado en lugar de ErrBusy.
func (s *Server) transition(w http.ResponseWriter, r *http.Request, action string, fn func(context.Context, *wizard.Session) error) {
	sess, err := s.sessions.Get(chi.URLParam(r, "sid"))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	v, err, _ := s.inflight.Do(sess.ID()+":"+action, func() (interface{}, error) {
		// la acción es compartida: no depende de que el primer cliente siga conectado
		ctx := context.WithoutCancel(r.Context())
		if s.config.RequestTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.config.RequestTimeout)
			defer cancel()
		}
		if err := fn(ctx, sess); err != nil {
			return nil, err
		}
		return sess.Snapshot(), nil
	})
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// confirmer las operaciones destructivas se confirman con ?confirm=true
func confirmer(r *http.Request) editor.Confirmer {
	if ok, _ := strconv.ParseBool(r.URL.Query().Get("confirm")); ok {
		return editor.Always
	}
	return editor.Never
}

func pathParam(r *http.Request, key string) string {
	raw := chi.URLParam(r, key)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

func indexParam(r *http.Request) (int, error) {
	i, err := strconv.Atoi(chi.URLParam(r, "i"))
	if err != nil {
		return 0, fmt.Errorf("%w: índice %q", rca.ErrIndexOutOfRange, chi.URLParam(r, "i"))
	}
	return i, nil
}
