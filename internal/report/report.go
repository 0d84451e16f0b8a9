// Package report arma el tablero de hallazgos y el informe de cada registro
// en Markdown, HTML imprimible, CSV y JSON.
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/PhelGc/sig-rca/internal/rca"
)

// Pending criticidad de un registro que todavía no tiene análisis
const Pending = "Pendiente"

// esgThreshold puntaje a partir del cual una dimensión ESG se marca
const esgThreshold = 3

// Item fila del tablero
type Item struct {
	ID          string   `json:"id"`
	Problema    string   `json:"problema"`
	Area        string   `json:"area"`
	Fecha       string   `json:"fecha"`
	Criticidad  string   `json:"criticidad"`
	Metodologia string   `json:"metodologia"`
	Acciones    int      `json:"acciones"`
	RiesgosESG  []string `json:"riesgosESG"`
}

// Dashboard resumen de todos los hallazgos
type Dashboard struct {
	Total         int            `json:"total"`
	ConPlan       int            `json:"conPlan"`
	PorCriticidad map[string]int `json:"porCriticidad"`
	Items         []Item         `json:"items"`
}

// Summarize arma el tablero, con los registros más recientes primero
func Summarize(problems []*rca.Problem) Dashboard {
	d := Dashboard{
		Total: len(problems),
		PorCriticidad: map[string]int{
			string(rca.CriticalityHigh):   0,
			string(rca.CriticalityMedium): 0,
			string(rca.CriticalityLow):    0,
			Pending:                       0,
		},
		Items: make([]Item, 0, len(problems)),
	}

	sorted := append([]*rca.Problem{}, problems...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].FechaCreacion.After(sorted[j].FechaCreacion)
	})

	for _, p := range sorted {
		if len(p.PlanAccion) > 0 {
			d.ConPlan++
		}
		crit := Criticality(p)
		d.PorCriticidad[crit]++
		d.Items = append(d.Items, Item{
			ID:          p.ID,
			Problema:    p.Problema,
			Area:        p.Area,
			Fecha:       p.FechaCreacion.Format(rca.DateLayout),
			Criticidad:  crit,
			Metodologia: string(p.MetodologiaElegida),
			Acciones:    len(p.PlanAccion),
			RiesgosESG:  HighESG(p.Analisis),
		})
	}
	return d
}

// Criticality criticidad del registro o Pendiente si no fue analizado
func Criticality(p *rca.Problem) string {
	if p.Analisis == nil || p.Analisis.Criticidad == "" {
		return Pending
	}
	return string(p.Analisis.Criticidad)
}

// HighESG dimensiones con puntaje mayor a 3
func HighESG(a *rca.AnalysisResult) []string {
	flags := []string{}
	if a == nil {
		return flags
	}
	for _, dim := range esgDimensions(a.RiesgoESG) {
		if dim.Score > esgThreshold {
			flags = append(flags, dim.Name)
		}
	}
	return flags
}

type esgDimension struct {
	Name  string
	Score int
}

func esgDimensions(r rca.ESGRisk) []esgDimension {
	return []esgDimension{
		{"Ambiental", r.Ambiental},
		{"Social", r.Social},
		{"Financiero", r.Financiero},
		{"Gobernanza", r.Gobernanza},
	}
}

// Conclusions viñetas de conclusión del informe
func Conclusions(p *rca.Problem) []string {
	var out []string
	if p.Analisis != nil {
		out = append(out, fmt.Sprintf("Hallazgo de criticidad %s en el área %s.", p.Analisis.Criticidad, orDash(p.Area)))
	} else {
		out = append(out, fmt.Sprintf("Hallazgo pendiente de análisis en el área %s.", orDash(p.Area)))
	}
	if len(p.Impactos) > 0 {
		names := make([]string, len(p.Impactos))
		for i, imp := range p.Impactos {
			names[i] = string(imp)
		}
		out = append(out, "Impacto directo en: "+strings.Join(names, ", ")+".")
	}
	if p.MetodologiaElegida != "" {
		out = append(out, fmt.Sprintf("Se aplicó la metodología %s para identificar la causa raíz.", p.MetodologiaElegida))
	}
	if p.Analisis != nil && p.Analisis.CausaRaiz != "" {
		out = append(out, "Causa raíz: "+p.Analisis.CausaRaiz)
	}
	if n := len(p.PlanAccion); n > 0 {
		out = append(out, fmt.Sprintf("Plan de acción con %d acciones definidas.", n))
	}
	return out
}

// CategoryCauses categoría de Ishikawa con causas, para el informe
type CategoryCauses struct {
	Label  string
	Causes []string
}

// IshikawaSections categorías no vacías en el orden del tablero
func IshikawaSections(d *rca.IshikawaData) []CategoryCauses {
	if d == nil {
		return nil
	}
	var out []CategoryCauses
	for _, c := range d.Categories() {
		if causes := d.Causes(c.ID); len(causes) > 0 {
			out = append(out, CategoryCauses{Label: c.Label, Causes: causes})
		}
	}
	return out
}

// AnsweredWhys porqués con contenido
func AnsweredWhys(d *rca.FiveWhysData) []string {
	if d == nil {
		return nil
	}
	return d.Answered()
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
