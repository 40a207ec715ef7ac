package atoms

import "fmt"

// conventional cubic cell bases in fractional coordinates
var cubicBases = map[string][]Vec3{
	"sc":  {{0, 0, 0}},
	"bcc": {{0, 0, 0}, {0.5, 0.5, 0.5}},
	"fcc": {{0, 0, 0}, {0, 0.5, 0.5}, {0.5, 0, 0.5}, {0.5, 0.5, 0}},
}

// Bulk builds a fully periodic cubic crystal of repeat[0]×repeat[1]×repeat[2]
// conventional cells with lattice parameter a.
func Bulk(kind, symbol string, a float64, repeat [3]int) (*Configuration, error) {
	basis, ok := cubicBases[kind]
	if !ok {
		return nil, fmt.Errorf("%w: unknown lattice %q", ErrConfiguration, kind)
	}
	if !(a > 0) {
		return nil, fmt.Errorf("%w: lattice parameter must be positive, got %v", ErrConfiguration, a)
	}
	for k, r := range repeat {
		if r < 1 {
			return nil, fmt.Errorf("%w: repeat along axis %d must be at least 1, got %d", ErrConfiguration, k, r)
		}
	}

	cfg := &Configuration{
		Cell: CellFromVectors(
			Vec3{a * float64(repeat[0]), 0, 0},
			Vec3{0, a * float64(repeat[1]), 0},
			Vec3{0, 0, a * float64(repeat[2])},
		),
		PBC: PBC{true, true, true},
	}
	for i := 0; i < repeat[0]; i++ {
		for j := 0; j < repeat[1]; j++ {
			for k := 0; k < repeat[2]; k++ {
				for _, b := range basis {
					cfg.Positions = append(cfg.Positions, Vec3{
						a * (float64(i) + b[0]),
						a * (float64(j) + b[1]),
						a * (float64(k) + b[2]),
					})
					cfg.Species = append(cfg.Species, symbol)
				}
			}
		}
	}
	return cfg, nil
}

// Lattices lists the names accepted by Bulk.
func Lattices() []string { return []string{"bcc", "fcc", "sc"} }
