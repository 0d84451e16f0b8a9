package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/PhelGc/sig-rca/internal/rca"
)

// Format formato de exportación del informe
type Format string

const (
	FormatMarkdown Format = "md"
	FormatHTML     Format = "html"
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
)

// ParseFormat interpreta el formato pedido; vacío equivale a Markdown
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "md", "markdown":
		return FormatMarkdown, nil
	case "html":
		return FormatHTML, nil
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("formato de informe desconocido %q", s)
}

// ContentType tipo MIME del formato
func (f Format) ContentType() string {
	switch f {
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatJSON:
		return "application/json"
	}
	return "text/markdown; charset=utf-8"
}

// Render genera el informe del registro en el formato indicado
func Render(p *rca.Problem, f Format) ([]byte, error) {
	switch f {
	case FormatMarkdown:
		s, err := Markdown(p)
		return []byte(s), err
	case FormatHTML:
		return HTML(p)
	case FormatCSV:
		return CSV(p)
	case FormatJSON:
		return json.MarshalIndent(p, "", "  ")
	}
	return nil, fmt.Errorf("formato de informe desconocido %q", f)
}

var markdownTmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"cell": cell,
	"cost": cost,
	"dash": orDash,
	"inc":  func(i int) int { return i + 1 },
}).Parse(`# Informe de hallazgo{{if .P.ID}} {{.P.ID}}{{end}}

| Criticidad | Área | Fecha | Frecuencia |
|---|---|---|---|
| {{cell .Criticidad}} | {{cell .P.Area}} | {{cell .Fecha}} | {{cell (print .P.Frecuencia)}} |

## Problema

{{.P.Problema}}
{{- if .P.Evidencia}}

**Evidencia:** {{.P.Evidencia}}
{{- end}}

## Metodología: {{dash (print .P.MetodologiaElegida)}}
{{- if .Whys}}
{{range $i, $w := .Whys}}
{{$i | inc}}. ¿Por qué? {{$w}}
{{- end}}
{{- end}}
{{- range .Categories}}

### {{.Label}}
{{range .Causes}}
- {{.}}
{{- end}}
{{- end}}
{{- with .P.Analisis}}

## Análisis

**Diagnóstico:** {{.Diagnostico}}

**Definición técnica:** {{dash .DefinicionTecnica}}

**Impacto en el SIG:** {{dash .ImpactoSIG}}

**Causa raíz:** {{.CausaRaiz}}
{{- if .CausasDirectas}}

**Causas directas:**
{{range .CausasDirectas}}
- {{.}}
{{- end}}
{{- end}}
{{- if .CausasContribuyentes}}

**Causas contribuyentes:**
{{range .CausasContribuyentes}}
- {{.}}
{{- end}}
{{- end}}

### Riesgo ESG

| Ambiental | Social | Financiero | Gobernanza |
|---|---|---|---|
| {{.RiesgoESG.Ambiental}} | {{.RiesgoESG.Social}} | {{.RiesgoESG.Financiero}} | {{.RiesgoESG.Gobernanza}} |
{{- end}}
{{- if .P.PlanAccion}}

## Plan de acción

| Tipo | Descripción | Responsable | Fecha | Indicador | Evidencia | Costo |
|---|---|---|---|---|---|---|
{{- range .P.PlanAccion}}
| {{cell (print .Tipo)}} | {{cell .Descripcion}} | {{cell .Responsable}} | {{cell .Fecha}} | {{cell .Indicador}} | {{cell .Evidencia}} | {{cost .Costo}} |
{{- end}}
{{- end}}

## Conclusiones
{{range .Conclusions}}
- {{.}}
{{- end}}
`))

type markdownData struct {
	P           *rca.Problem
	Criticidad  string
	Fecha       string
	Whys        []string
	Categories  []CategoryCauses
	Conclusions []string
}

// Markdown informe completo en Markdown
func Markdown(p *rca.Problem) (string, error) {
	data := markdownData{
		P:           p,
		Criticidad:  Criticality(p),
		Fecha:       p.FechaCreacion.Format(rca.DateLayout),
		Conclusions: Conclusions(p),
	}
	switch p.MetodologiaElegida {
	case rca.MethodologyIshikawa:
		data.Categories = IshikawaSections(p.IshikawaData)
	case rca.MethodologyFiveWhys:
		data.Whys = AnsweredWhys(p.FiveWhysData)
	}

	var buf bytes.Buffer
	if err := markdownTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("error generando informe: %w", err)
	}
	return buf.String(), nil
}

var (
	markdown = goldmark.New(goldmark.WithExtensions(extension.Table))
	policy   = newReportPolicy()
)

func newReportPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowElements("table", "thead", "tbody", "tr", "th", "td")
	p.AllowAttrs("style").OnElements("th", "td")
	p.RequireNoFollowOnLinks(true)
	return p
}

const htmlPage = `<!DOCTYPE html>
<html lang="es">
<head>
<meta charset="utf-8">
<title>Informe de hallazgo</title>
<style>
body{font-family:sans-serif;max-width:960px;margin:2rem auto;color:#1f2937}
table{border-collapse:collapse;width:100%%;margin:1rem 0}
th,td{border:1px solid #d1d5db;padding:.4rem;text-align:left;font-size:.9rem}
th{background:#f3f4f6}
@media print{body{margin:0}}
</style>
</head>
<body>
%s
</body>
</html>
`

// HTML informe imprimible. El contenido del usuario se sanitiza.
func HTML(p *rca.Problem) ([]byte, error) {
	md, err := Markdown(p)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return nil, fmt.Errorf("error convirtiendo informe a HTML: %w", err)
	}
	body := policy.SanitizeBytes(buf.Bytes())
	return []byte(fmt.Sprintf(htmlPage, body)), nil
}

var csvHeader = []string{"id", "tipo", "descripcion", "responsable", "fecha", "indicador", "evidencia", "costo"}

// CSV plan de acción del registro
func CSV(p *rca.Problem) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, a := range p.PlanAccion {
		row := []string{a.ID, string(a.Tipo), a.Descripcion, a.Responsable, a.Fecha, a.Indicador, a.Evidencia, ""}
		if a.Costo != nil {
			row[7] = strconv.FormatFloat(*a.Costo, 'f', -1, 64)
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("error generando CSV: %w", err)
	}
	return buf.Bytes(), nil
}

// cell escapa el texto para una celda de tabla Markdown
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	s = strings.ReplaceAll(s, "\r", "")
	return strings.ReplaceAll(s, "\n", " ")
}

func cost(c *float64) string {
	if c == nil {
		return "-"
	}
	return strconv.FormatFloat(*c, 'f', 2, 64)
}
