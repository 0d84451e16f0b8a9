package rca

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Category categoría del diagrama de Ishikawa
type Category struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// DefaultCategories las 14 categorías fijas, en orden de presentación
var DefaultCategories = []Category{
	{ID: "operacion", Label: "Operación"},
	{ID: "metodo", Label: "Método"},
	{ID: "manoDeObra", Label: "Mano de Obra"},
	{ID: "maquinaria", Label: "Maquinaria"},
	{ID: "materiales", Label: "Materiales"},
	{ID: "medioAmbiente", Label: "Medio Ambiente"},
	{ID: "medicion", Label: "Medición"},
	{ID: "gestion", Label: "Gestión"},
	{ID: "documentacion", Label: "Documentación"},
	{ID: "capacitacion", Label: "Capacitación"},
	{ID: "comunicacion", Label: "Comunicación"},
	{ID: "control", Label: "Control"},
	{ID: "proveedores", Label: "Proveedores"},
	{ID: "cultura", Label: "Cultura"},
}

var lower = cases.Lower(language.Spanish)

// CategoryID deriva el id de una categoría a partir de su etiqueta:
// minúsculas y sin espacios.
func CategoryID(label string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, lower.String(label))
}

// defaultCategory busca una categoría por defecto por id o etiqueta, sin distinguir mayúsculas
func defaultCategory(key string) (Category, bool) {
	for _, c := range DefaultCategories {
		if strings.EqualFold(c.ID, key) || strings.EqualFold(CategoryID(c.Label), key) {
			return c, true
		}
	}
	return Category{}, false
}

// IshikawaData causas agrupadas por categoría.
// Toda categoría presente mapea a una lista (nunca nil). Las categorías por
// defecto se recorren siempre primero en orden fijo y luego las personalizadas
// en orden de alta.
type IshikawaData struct {
	causes map[string][]string
	custom []string
	labels map[string]string
}

// NewIshikawaData crea el tablero con las 14 categorías por defecto vacías
func NewIshikawaData() *IshikawaData {
	d := &IshikawaData{
		causes: make(map[string][]string, len(DefaultCategories)),
		labels: make(map[string]string),
	}
	for _, c := range DefaultCategories {
		d.causes[c.ID] = []string{}
	}
	return d
}

func (d *IshikawaData) init() {
	if d.causes == nil {
		d.causes = make(map[string][]string)
	}
	if d.labels == nil {
		d.labels = make(map[string]string)
	}
}

// Categories devuelve las categorías presentes en orden de presentación
func (d *IshikawaData) Categories() []Category {
	if d == nil {
		return nil
	}
	out := make([]Category, 0, len(d.causes))
	for _, c := range DefaultCategories {
		if _, ok := d.causes[c.ID]; ok {
			out = append(out, c)
		}
	}
	for _, id := range d.custom {
		label := d.labels[id]
		if label == "" {
			label = id
		}
		out = append(out, Category{ID: id, Label: label})
	}
	return out
}

// Has indica si la categoría existe
func (d *IshikawaData) Has(id string) bool {
	if d == nil {
		return false
	}
	_, ok := d.causes[id]
	return ok
}

// lookup resuelve un id sin distinguir mayúsculas; también acepta el id
// derivado de la etiqueta de una categoría por defecto ("manodeobra").
func (d *IshikawaData) lookup(id string) (string, bool) {
	if _, ok := d.causes[id]; ok {
		return id, true
	}
	for k := range d.causes {
		if strings.EqualFold(k, id) {
			return k, true
		}
	}
	if def, ok := defaultCategory(id); ok {
		if _, present := d.causes[def.ID]; present {
			return def.ID, true
		}
	}
	return "", false
}

// Causes devuelve una copia de las causas de la categoría
func (d *IshikawaData) Causes(id string) []string {
	if d == nil {
		return nil
	}
	return append([]string{}, d.causes[id]...)
}

// Len cantidad total de causas registradas
func (d *IshikawaData) Len() int {
	if d == nil {
		return 0
	}
	n := 0
	for _, v := range d.causes {
		n += len(v)
	}
	return n
}

// AddCategory agrega una categoría personalizada a partir de su etiqueta.
// Si la etiqueta corresponde a una categoría por defecto eliminada, ésta se
// restaura en su posición fija.
func (d *IshikawaData) AddCategory(label string) (string, error) {
	d.init()
	id := CategoryID(label)
	if id == "" {
		return "", ErrEmptyCategoryTag
	}
	if existing, ok := d.lookup(id); ok {
		return existing, fmt.Errorf("%w: %s", ErrCategoryExists, existing)
	}
	if def, ok := defaultCategory(id); ok {
		d.causes[def.ID] = []string{}
		return def.ID, nil
	}
	d.causes[id] = []string{}
	d.custom = append(d.custom, id)
	d.labels[id] = strings.TrimSpace(label)
	return id, nil
}

// RemoveCategory elimina la categoría y todas sus causas
func (d *IshikawaData) RemoveCategory(id string) error {
	if d == nil {
		return fmt.Errorf("%w: %s", ErrUnknownCategory, id)
	}
	key, ok := d.lookup(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCategory, id)
	}
	delete(d.causes, key)
	delete(d.labels, key)
	for i, c := range d.custom {
		if c == key {
			d.custom = append(d.custom[:i:i], d.custom[i+1:]...)
			break
		}
	}
	return nil
}

// AddCause agrega una causa al final de la categoría, creándola si no existe
func (d *IshikawaData) AddCause(id, cause string) error {
	d.init()
	if strings.TrimSpace(cause) == "" {
		return ErrEmptyCause
	}
	key, ok := d.lookup(id)
	if !ok {
		var err error
		if key, err = d.AddCategory(id); err != nil {
			return err
		}
	}
	d.causes[key] = append(d.causes[key], cause)
	return nil
}

// SetCause reemplaza la causa en la posición indicada.
// Un valor vacío se rechaza y se conserva el original.
func (d *IshikawaData) SetCause(id string, index int, cause string) error {
	list, key, err := d.list(id, index)
	if err != nil {
		return err
	}
	if strings.TrimSpace(cause) == "" {
		return ErrEmptyCause
	}
	list[index] = cause
	d.causes[key] = list
	return nil
}

// RemoveCause quita la causa en la posición indicada
func (d *IshikawaData) RemoveCause(id string, index int) error {
	list, key, err := d.list(id, index)
	if err != nil {
		return err
	}
	d.causes[key] = append(list[:index:index], list[index+1:]...)
	return nil
}

func (d *IshikawaData) list(id string, index int) ([]string, string, error) {
	if d == nil {
		return nil, "", fmt.Errorf("%w: %s", ErrUnknownCategory, id)
	}
	key, ok := d.lookup(id)
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", ErrUnknownCategory, id)
	}
	list := d.causes[key]
	if index < 0 || index >= len(list) {
		return nil, "", fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	return list, key, nil
}

// Merge aplica sugerencias: las categorías devueltas reemplazan su lista,
// el resto conserva lo que tenía. Claves desconocidas se agregan como
// categorías personalizadas en orden alfabético.
func (d *IshikawaData) Merge(suggestions map[string][]string) {
	d.init()
	keys := make([]string, 0, len(suggestions))
	for k := range suggestions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		causes := make([]string, 0, len(suggestions[k]))
		for _, c := range suggestions[k] {
			if strings.TrimSpace(c) != "" {
				causes = append(causes, c)
			}
		}
		key, ok := d.lookup(k)
		if !ok {
			if def, isDefault := defaultCategory(k); isDefault {
				key = def.ID
			} else {
				key = k
				d.custom = append(d.custom, k)
			}
		}
		d.causes[key] = causes
	}
}

// Map devuelve una copia como mapa categoría → causas
func (d *IshikawaData) Map() map[string][]string {
	if d == nil {
		return nil
	}
	out := make(map[string][]string, len(d.causes))
	for k, v := range d.causes {
		out[k] = append([]string{}, v...)
	}
	return out
}

// Clone copia profunda
func (d *IshikawaData) Clone() *IshikawaData {
	if d == nil {
		return nil
	}
	c := &IshikawaData{
		causes: d.Map(),
		custom: append([]string(nil), d.custom...),
		labels: make(map[string]string, len(d.labels)),
	}
	for k, v := range d.labels {
		c.labels[k] = v
	}
	return c
}

// Equal compara estructura y orden de categorías
func (d *IshikawaData) Equal(o *IshikawaData) bool {
	a, errA := json.Marshal(d)
	b, errB := json.Marshal(o)
	return errA == nil && errB == nil && bytes.Equal(a, b)
}

// MarshalJSON serializa como objeto respetando el orden de presentación
func (d *IshikawaData) MarshalJSON() ([]byte, error) {
	if d == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range d.Categories() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(c.ID)
		if err != nil {
			return nil, err
		}
		causes := d.causes[c.ID]
		if causes == nil {
			causes = []string{}
		}
		val, err := json.Marshal(causes)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON conserva el orden de las categorías personalizadas.
// Los valores null se normalizan a listas vacías.
func (d *IshikawaData) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("ishikawaData: se esperaba un objeto")
	}
	*d = IshikawaData{causes: make(map[string][]string), labels: make(map[string]string)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		var causes []string
		if err := dec.Decode(&causes); err != nil {
			return fmt.Errorf("ishikawaData.%s: %w", key, err)
		}
		if causes == nil {
			causes = []string{}
		}
		if _, dup := d.causes[key]; !dup {
			if _, isDefault := defaultByID(key); !isDefault {
				d.custom = append(d.custom, key)
			}
		}
		d.causes[key] = causes
	}
	_, err = dec.Token()
	return err
}

func defaultByID(id string) (Category, bool) {
	for _, c := range DefaultCategories {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}
