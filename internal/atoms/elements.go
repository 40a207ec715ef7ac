package atoms

import (
	"fmt"
	"strings"
)

// Element symbols indexed by atomic number. Index 0 is a placeholder for
// user-defined particle types.
var elementSymbols = [...]string{
	"X",
	"H", "He",
	"Li", "Be", "B", "C", "N", "O", "F", "Ne",
	"Na", "Mg", "Al", "Si", "P", "S", "Cl", "Ar",
	"K", "Ca", "Sc", "Ti", "V", "Cr", "Mn", "Fe", "Co", "Ni", "Cu", "Zn",
	"Ga", "Ge", "As", "Se", "Br", "Kr",
	"Rb", "Sr", "Y", "Zr", "Nb", "Mo", "Tc", "Ru", "Rh", "Pd", "Ag", "Cd",
	"In", "Sn", "Sb", "Te", "I", "Xe",
}

var elementNumbers = func() map[string]int {
	m := make(map[string]int, len(elementSymbols))
	for z, s := range elementSymbols {
		m[s] = z
	}
	return m
}()

// AtomicNumber maps a chemical symbol to its atomic number. The canonical
// species key throughout the module is the symbol; numbers are adapted.
func AtomicNumber(symbol string) (int, error) {
	if z, ok := elementNumbers[normalizeSymbol(symbol)]; ok {
		return z, nil
	}
	return 0, fmt.Errorf("%w: unknown element %q", ErrUnsupportedSpecies, symbol)
}

// Symbol maps an atomic number back to its chemical symbol.
func Symbol(z int) (string, error) {
	if z < 0 || z >= len(elementSymbols) {
		return "", fmt.Errorf("%w: unknown atomic number %d", ErrUnsupportedSpecies, z)
	}
	return elementSymbols[z], nil
}

// SymbolsFromNumbers converts a numeric species array to symbols.
func SymbolsFromNumbers(zs []int) ([]string, error) {
	out := make([]string, len(zs))
	for i, z := range zs {
		s, err := Symbol(z)
		if err != nil {
			return nil, fmt.Errorf("atom %d: %w", i, err)
		}
		out[i] = s
	}
	return out, nil
}

func normalizeSymbol(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
