package wizard

import (
	"fmt"

	"github.com/PhelGc/sig-rca/internal/editor"
	"github.com/PhelGc/sig-rca/internal/rca"
)

// edit ejecuta una mutación síncrona sobre el registro si la sesión está en
// la etapa indicada y, cuando m no es vacía, con esa metodología activa.
func (s *Session) edit(stage Stage, m rca.Methodology, fn func(p *rca.Problem) error) error {
	done, err := s.begin()
	if err != nil {
		return err
	}
	defer done()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stage != stage {
		return invalid("editar", s.stage)
	}
	if m != "" && s.problem.MetodologiaElegida != m {
		return fmt.Errorf("%w: la metodología activa es %q", ErrInvalidTransition, s.problem.MetodologiaElegida)
	}
	return fn(s.problem)
}

func ishikawaEditor(p *rca.Problem, confirm editor.Confirmer) *editor.Ishikawa {
	return editor.NewIshikawa(p.IshikawaData, func(d *rca.IshikawaData) { p.IshikawaData = d }, confirm)
}

func whysEditor(p *rca.Problem, confirm editor.Confirmer) *editor.FiveWhys {
	return editor.NewFiveWhys(p.FiveWhysData, func(d *rca.FiveWhysData) { p.FiveWhysData = d }, confirm)
}

func (s *Session) actionsEditor(p *rca.Problem, confirm editor.Confirmer) *editor.ActionPlan {
	return editor.NewActionPlan(p.PlanAccion, func(a []rca.Action) { p.PlanAccion = a }, confirm, s.opts.Now)
}

// --- Ishikawa ---

// AddCategory agrega una categoría personalizada. Si ya existe no hace nada y
// added es false.
func (s *Session) AddCategory(label string) (id string, added bool, err error) {
	err = s.edit(StageMethodologyEditing, rca.MethodologyIshikawa, func(p *rca.Problem) error {
		var e error
		id, added, e = ishikawaEditor(p, nil).AddCategory(label)
		return e
	})
	return id, added, err
}

// RemoveCategory quita la categoría y sus causas
func (s *Session) RemoveCategory(id string, confirm editor.Confirmer) error {
	return s.edit(StageMethodologyEditing, rca.MethodologyIshikawa, func(p *rca.Problem) error {
		return ishikawaEditor(p, confirm).RemoveCategory(id)
	})
}

// AddCause agrega una causa a la categoría
func (s *Session) AddCause(category, cause string) error {
	return s.edit(StageMethodologyEditing, rca.MethodologyIshikawa, func(p *rca.Problem) error {
		return ishikawaEditor(p, nil).AddCause(category, cause)
	})
}

// EditCause reemplaza la causa en la posición indicada
func (s *Session) EditCause(category string, index int, cause string) error {
	return s.edit(StageMethodologyEditing, rca.MethodologyIshikawa, func(p *rca.Problem) error {
		return ishikawaEditor(p, nil).EditCause(category, index, cause)
	})
}

// RemoveCause quita la causa en la posición indicada
func (s *Session) RemoveCause(category string, index int, confirm editor.Confirmer) error {
	return s.edit(StageMethodologyEditing, rca.MethodologyIshikawa, func(p *rca.Problem) error {
		return ishikawaEditor(p, confirm).RemoveCause(category, index)
	})
}

// --- 5 Porqués ---

// EditWhy reemplaza el nivel indicado
func (s *Session) EditWhy(index int, value string) error {
	return s.edit(StageMethodologyEditing, rca.MethodologyFiveWhys, func(p *rca.Problem) error {
		return whysEditor(p, nil).Edit(index, value)
	})
}

// AppendWhy agrega un nivel vacío
func (s *Session) AppendWhy() error {
	return s.edit(StageMethodologyEditing, rca.MethodologyFiveWhys, func(p *rca.Problem) error {
		whysEditor(p, nil).Append()
		return nil
	})
}

// RemoveWhy quita un nivel; nunca deja la cadena vacía
func (s *Session) RemoveWhy(index int, confirm editor.Confirmer) error {
	return s.edit(StageMethodologyEditing, rca.MethodologyFiveWhys, func(p *rca.Problem) error {
		return whysEditor(p, confirm).Remove(index)
	})
}

// --- Plan de acción ---

// AddAction agrega una acción en blanco y devuelve su id
func (s *Session) AddAction() (string, error) {
	var id string
	err := s.edit(StageActionPlanning, "", func(p *rca.Problem) error {
		id = s.actionsEditor(p, nil).Add()
		return nil
	})
	return id, err
}

// UpdateAction modifica los campos presentes en el parche
func (s *Session) UpdateAction(id string, patch rca.ActionPatch) error {
	return s.edit(StageActionPlanning, "", func(p *rca.Problem) error {
		return s.actionsEditor(p, nil).Update(id, patch)
	})
}

// RemoveAction quita la acción
func (s *Session) RemoveAction(id string, confirm editor.Confirmer) error {
	return s.edit(StageActionPlanning, "", func(p *rca.Problem) error {
		return s.actionsEditor(p, confirm).Remove(id)
	})
}
