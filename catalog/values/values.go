package values

import (
	"slices"
	"strings"

	"github.com/samber/lo"
)

const Separator = ","

var placeholders = map[string]struct{}{
	"":     {},
	"nan":  {},
	"none": {},
}

// IsPlaceholder reports whether a token is an import artifact standing in for "no value".
func IsPlaceholder(token string) bool {
	_, ok := placeholders[strings.ToLower(strings.TrimSpace(token))]
	return ok
}

// SplitAtoms splits a comma separated value into trimmed atoms, dropping placeholders and
// duplicates. Order of first occurrence is kept.
func SplitAtoms(raw string) []string {
	parts := lo.Map(strings.Split(raw, Separator), func(part string, _ int) string {
		return strings.TrimSpace(part)
	})
	parts = lo.Reject(parts, func(part string, _ int) bool {
		return IsPlaceholder(part)
	})
	return lo.Uniq(parts)
}

// IsComposite reports whether a raw value holds more than one atom.
func IsComposite(raw string) bool {
	return strings.Contains(raw, Separator)
}

// DetectMultiValue reports whether a column should be treated as multi-valued given its raw values.
func DetectMultiValue(raws []string) bool {
	return lo.SomeBy(raws, IsComposite)
}

// Collect returns the sorted union of the atoms of every raw value.
func Collect(raws []string) []string {
	atoms := lo.Uniq(lo.FlatMap(raws, func(raw string, _ int) []string {
		return SplitAtoms(raw)
	}))
	slices.Sort(atoms)
	return atoms
}
