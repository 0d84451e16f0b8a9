package rca

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("frecuencia", func(fl validator.FieldLevel) bool {
		return Frequency(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("impacto", func(fl validator.FieldLevel) bool {
		return Impact(fl.Field().String()).Valid()
	})
	return v
}

// Intake datos que se capturan en la primera etapa del asistente
type Intake struct {
	Problema   string    `json:"problema" validate:"required"`
	Area       string    `json:"area" validate:"required"`
	Frecuencia Frequency `json:"frecuencia" validate:"omitempty,frecuencia"`
	Evidencia  string    `json:"evidencia"`
	Impactos   []Impact  `json:"impactos" validate:"dive,impacto"`
}

// Validate exige problema y área no vacíos y enumeraciones válidas.
// Los espacios en blanco no cuentan como contenido.
func (in Intake) Validate() error {
	in.Problema = strings.TrimSpace(in.Problema)
	in.Area = strings.TrimSpace(in.Area)
	if err := validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, strings.ToLower(fe.Field()))
			}
			return fmt.Errorf("%w: %s", ErrValidation, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}

// Intake devuelve los datos de captura del registro
func (p *Problem) Intake() Intake {
	return Intake{
		Problema:   p.Problema,
		Area:       p.Area,
		Frecuencia: p.Frecuencia,
		Evidencia:  p.Evidencia,
		Impactos:   append([]Impact{}, p.Impactos...),
	}
}

// ApplyIntake copia los datos de captura al registro. Los impactos repetidos
// se colapsan conservando el orden de la primera aparición.
func (p *Problem) ApplyIntake(in Intake) error {
	if in.Frecuencia != "" && !in.Frecuencia.Valid() {
		return fmt.Errorf("%w: frecuencia %q", ErrValidation, in.Frecuencia)
	}
	impactos := make([]Impact, 0, len(in.Impactos))
	seen := make(map[Impact]bool, len(in.Impactos))
	for _, i := range in.Impactos {
		if !i.Valid() {
			return fmt.Errorf("%w: %q", ErrUnknownImpact, i)
		}
		if !seen[i] {
			seen[i] = true
			impactos = append(impactos, i)
		}
	}
	p.Problema = in.Problema
	p.Area = in.Area
	if in.Frecuencia != "" {
		p.Frecuencia = in.Frecuencia
	}
	p.Evidencia = in.Evidencia
	p.Impactos = impactos
	return nil
}
