package rca

// Work sub-documento de la metodología activa. Lo implementan *IshikawaData,
// *FiveWhysData y FiveW2H.
type Work interface {
	Methodology() Methodology
}

// FiveW2H la metodología 5W2H no tiene editor propio: se resuelve dentro del
// plan de acción.
type FiveW2H struct{}

// Methodology implementa Work
func (FiveW2H) Methodology() Methodology { return MethodologyFiveW2H }

// Methodology implementa Work
func (*IshikawaData) Methodology() Methodology { return MethodologyIshikawa }

// Methodology implementa Work
func (*FiveWhysData) Methodology() Methodology { return MethodologyFiveWhys }

// Work devuelve la variante activa según la metodología elegida, o nil si
// todavía no se eligió ninguna.
func (p *Problem) Work() Work {
	switch p.MetodologiaElegida {
	case MethodologyIshikawa:
		if p.IshikawaData == nil {
			p.IshikawaData = NewIshikawaData()
		}
		return p.IshikawaData
	case MethodologyFiveWhys:
		if p.FiveWhysData == nil {
			p.FiveWhysData = NewFiveWhysData()
		}
		return p.FiveWhysData
	case MethodologyFiveW2H:
		return FiveW2H{}
	}
	return nil
}
