package diseasemap

import (
	"errors"
	"strings"

	"golang.org/x/text/cases"
)

// ErrNotFound is returned by Lookup when no entry matches the disease name.
var ErrNotFound = errors.New("no mapping found for this disease")

// Entry maps a disease to the affected organ and the specialization that
// treats it.
type Entry struct {
	Disease        string `yaml:"disease" json:"disease"`
	Organ          string `yaml:"organ" json:"organ"`
	Specialization string `yaml:"specialization" json:"specialization"`
}

// Normalize is the matching key for free-text names: surrounding and
// repeated inner whitespace is collapsed and the result is case-folded.
// "  heart   ATTACK " and "Heart Attack" share a key.
func Normalize(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	// Casers carry state and must not be shared across goroutines.
	return cases.Fold().String(s)
}

// NormalizeSpecialization applies the same policy to specialization names
// so directory lookups are insensitive to how doctors typed theirs.
func NormalizeSpecialization(s string) string {
	return Normalize(s)
}
