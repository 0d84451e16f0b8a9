package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/PhelGc/sig-rca/internal/jira"
	"github.com/PhelGc/sig-rca/internal/logging"
	"github.com/PhelGc/sig-rca/internal/rca"
	"github.com/PhelGc/sig-rca/internal/report"
)

func (s *Server) listProblems(w http.ResponseWriter, r *http.Request) {
	problems, err := s.store.List(r.Context())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	sort.SliceStable(problems, func(i, j int) bool {
		return problems[i].FechaCreacion.After(problems[j].FechaCreacion)
	})
	if problems == nil {
		problems = []*rca.Problem{}
	}
	writeJSON(w, http.StatusOK, problems)
}

// createProblem guarda el registro tal cual llega; asigna id y fecha si faltan
func (s *Server) createProblem(w http.ResponseWriter, r *http.Request) {
	var p rca.Problem
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.FechaCreacion.IsZero() {
		p.FechaCreacion = s.now()
	}
	if err := s.store.Upsert(r.Context(), &p); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	logging.FromContext(r.Context()).Info("Registro guardado", zap.String("id", p.ID))
	writeJSON(w, http.StatusCreated, &p)
}

func (s *Server) getProblem(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// problemReport exporta el informe en el formato pedido por ?format=
func (s *Server) problemReport(w http.ResponseWriter, r *http.Request) {
	format, err := report.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(r.Context(), w, fmt.Errorf("%w: %v", rca.ErrValidation, err))
		return
	}
	p, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	body, err := report.Render(p, format)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	if format == report.FormatCSV {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "plan-"+p.ID+".csv"))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	problems, err := s.store.List(r.Context())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, report.Summarize(problems))
}

// listDrafts borradores de captura desde las incidencias de Jira
func (s *Server) listDrafts(w http.ResponseWriter, r *http.Request) {
	if s.drafts == nil {
		writeAPIError(r.Context(), w, errJiraDisabled)
		return
	}
	drafts, err := s.drafts.GetDrafts(r.Context())
	if err != nil {
		writeDraftError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, drafts)
}

// writeDraftError una incidencia inexistente es 404; cualquier otra falla de Jira es 502
func writeDraftError(ctx context.Context, w http.ResponseWriter, err error) {
	if errors.Is(err, jira.ErrIssueNotFound) {
		writeError(ctx, w, err)
		return
	}
	logging.FromContext(ctx).Error("Error consultando Jira", zap.Error(err))
	writeAPIError(ctx, w, newError("jira_error", err.Error(), http.StatusBadGateway))
}

var errJiraDisabled = newError("jira_disabled", "la integración con Jira no está configurada", http.StatusServiceUnavailable)
