package editor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PhelGc/sig-rca/internal/rca"
)

func TestIshikawaCommitsFullReplacement(t *testing.T) {
	seed := rca.NewIshikawaData()
	seed.Merge(map[string][]string{"maquinaria": {"Bomba sin mantenimiento"}})

	var commits []*rca.IshikawaData
	ed := NewIshikawa(seed, func(d *rca.IshikawaData) { commits = append(commits, d) }, Always)

	require.NoError(t, ed.AddCause("materiales", "Corroded valve"))
	require.Len(t, commits, 1)

	got := commits[0]
	assert.Equal(t, []string{"Corroded valve"}, got.Causes("materiales"))
	for _, c := range seed.Categories() {
		if c.ID == "materiales" {
			continue
		}
		assert.Equal(t, seed.Causes(c.ID), got.Causes(c.ID), c.ID)
	}
	assert.Empty(t, seed.Causes("materiales"), "el editor no muta el documento original")
}

func TestIshikawaAddCategorySilentlyIgnoresDuplicates(t *testing.T) {
	calls := 0
	ed := NewIshikawa(nil, func(*rca.IshikawaData) { calls++ }, Always)

	id, added, err := ed.AddCategory("Seguridad Vial")
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, "seguridadvial", id)

	_, added, err = ed.AddCategory("seguridad vial")
	require.NoError(t, err)
	assert.False(t, added)
	assert.Equal(t, 1, calls)

	_, _, err = ed.AddCategory(" ")
	assert.ErrorIs(t, err, rca.ErrEmptyCategoryTag)
}

func TestIshikawaRemovalsRequireConfirmation(t *testing.T) {
	seed := rca.NewIshikawaData()
	require.NoError(t, seed.AddCause("control", "Sin inspección"))

	calls := 0
	ed := NewIshikawa(seed, func(*rca.IshikawaData) { calls++ }, Never)
	assert.ErrorIs(t, ed.RemoveCause("control", 0), ErrNotConfirmed)
	assert.ErrorIs(t, ed.RemoveCategory("control"), ErrNotConfirmed)
	assert.ErrorIs(t, ed.RemoveCategory("inexistente"), rca.ErrUnknownCategory)
	assert.Equal(t, 0, calls)

	var last *rca.IshikawaData
	ed = NewIshikawa(seed, func(d *rca.IshikawaData) { last = d }, Always)
	require.NoError(t, ed.RemoveCause("control", 0))
	assert.Empty(t, last.Causes("control"))
	require.NoError(t, ed.RemoveCategory("control"))
	assert.False(t, last.Has("control"))
}

func TestIshikawaEditRejectsBlank(t *testing.T) {
	seed := rca.NewIshikawaData()
	require.NoError(t, seed.AddCause("metodo", "original"))
	ed := NewIshikawa(seed, nil, Always)
	assert.ErrorIs(t, ed.EditCause("metodo", 0, "   "), rca.ErrEmptyCause)
	assert.Equal(t, []string{"original"}, ed.Causes("metodo"))
	require.NoError(t, ed.EditCause("metodo", 0, "nuevo"))
	assert.Equal(t, []string{"nuevo"}, ed.Causes("metodo"))
}

func TestFiveWhysEditor(t *testing.T) {
	var last *rca.FiveWhysData
	ed := NewFiveWhys(&rca.FiveWhysData{Whys: []string{"a", "b"}}, func(d *rca.FiveWhysData) { last = d }, Always)

	require.NoError(t, ed.Edit(1, "b"))
	assert.Equal(t, []string{"a", "b"}, last.Whys)

	ed.Append()
	assert.Equal(t, []string{"a", "b", ""}, last.Whys)

	require.NoError(t, ed.Remove(0))
	require.NoError(t, ed.Remove(0))
	assert.Equal(t, []string{""}, last.Whys)
	assert.ErrorIs(t, ed.Remove(0), rca.ErrLastWhy)
	assert.Len(t, ed.Whys(), 1)
}

func TestFiveWhysRemoveNeedsConfirmation(t *testing.T) {
	ed := NewFiveWhys(rca.NewFiveWhysData(), nil, Never)
	assert.ErrorIs(t, ed.Remove(2), ErrNotConfirmed)
	assert.Len(t, ed.Whys(), 5)
}

func TestActionPlanEditor(t *testing.T) {
	now := time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)
	seed := []rca.Action{{ID: "suggested-0", Tipo: rca.ActionPreventive, Descripcion: "Inspección mensual"}}

	var last []rca.Action
	ed := NewActionPlan(seed, func(a []rca.Action) { last = a }, Always, func() time.Time { return now })

	id := ed.Add()
	require.Len(t, last, 2)
	assert.Equal(t, rca.ActionCorrective, last[1].Tipo)
	assert.Equal(t, "2026-10-17", last[1].Fecha)

	second := ed.Add()
	assert.NotEqual(t, id, second)

	resp := "Jefe de mantenimiento"
	require.NoError(t, ed.Update(id, rca.ActionPatch{Responsable: &resp}))
	assert.Equal(t, resp, last[1].Responsable)

	bad := rca.ActionType("Urgente")
	assert.ErrorIs(t, ed.Update(id, rca.ActionPatch{Tipo: &bad}), rca.ErrValidation)
	assert.ErrorIs(t, ed.Update("nope", rca.ActionPatch{}), rca.ErrActionNotFound)

	require.NoError(t, ed.Remove("suggested-0"))
	assert.Len(t, last, 2)
	assert.Equal(t, "Inspección mensual", seed[0].Descripcion)
}

func TestActionPlanRemoveNeedsConfirmation(t *testing.T) {
	ed := NewActionPlan([]rca.Action{{ID: "x"}}, nil, Never, nil)
	assert.ErrorIs(t, ed.Remove("x"), ErrNotConfirmed)
	assert.Len(t, ed.Actions(), 1)
}
