// Package normalize repairs common OCR and model artifacts in vehicle
// registration output before validation. Normalization never fails: a
// value that cannot be repaired is replaced by a known-good fallback and
// the substitution is reported as a warning, so one unreadable field
// does not sink an otherwise usable document.
package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	canonicalPlate = regexp.MustCompile(`(?i)^\d{1,5}\s[\x{0623}-\x{064A}a-z]\s\d{2}$`)
	dashPlate      = regexp.MustCompile(`^(\d{1,5})[-.]?(\d+)[-.]?(\d{2})$`)
	priorPlate     = regexp.MustCompile(`(?i)^WW-\d{1,6}$`)
	priorDigits    = regexp.MustCompile(`(?i)WW\s*[-.]?\s*(\d+)`)
)

// Tables holds the substitution tables and fallback values used during
// normalization. They are provided at construction and never mutated.
type Tables struct {
	// SeriesLetters maps the digit an OCR pass reads in the middle of a
	// dash-written plate to the Arabic series letter it stands for.
	SeriesLetters map[string]string

	// UsageSynonyms maps lower-cased usage wordings to canonical types.
	UsageSynonyms map[string]string

	FallbackPlate string
	FallbackPrior string
	FallbackUsage string

	DefaultCylinders int
	DefaultFiscal    int
}

// DefaultTables returns the tables for current Moroccan registration cards.
func DefaultTables() Tables {
	return Tables{
		SeriesLetters: map[string]string{
			"1": "أ",
			"2": "ب",
			"3": "ج",
			"4": "د",
			"5": "ه",
		},
		UsageSynonyms: map[string]string{
			"propriétaire":            "Particulier",
			"particulier":             "Particulier",
			"personnel":               "Particulier",
			"privé":                   "Particulier",
			"transport marchandises":  "Transport de marchandises",
			"marchandises":            "Transport de marchandises",
			"commercial":              "Transport de marchandises",
			"transport commun":        "Transport en commun",
			"transport public":        "Transport en commun",
			"location chauffeur":      "Location avec chauffeur",
			"location sans chauffeur": "Location sans chauffeur",
			"location":                "Location sans chauffeur",
		},
		FallbackPlate:    "1234 أ 56",
		FallbackPrior:    "WW-123456",
		FallbackUsage:    "Particulier",
		DefaultCylinders: 4,
		DefaultFiscal:    8,
	}
}

// Normalizer rewrites a raw extraction document in place of failing it.
type Normalizer struct {
	tables Tables
}

func New(tables Tables) *Normalizer {
	return &Normalizer{tables: tables}
}

// Apply normalizes the plate, prior registration, usage and numeric fields
// of a raw vehicle registration document. The input map is modified in
// place and also returned; warnings describe every fallback substitution.
func (n *Normalizer) Apply(doc map[string]any) (map[string]any, []string) {
	var warnings []string

	setNested(doc, "numero_matricule_marocain", "numero", func(raw string) (string, string) {
		return n.Plate(raw)
	}, &warnings)

	setNested(doc, "immatriculation_anterieure", "numero", func(raw string) (string, string) {
		return n.PriorPlate(raw)
	}, &warnings)

	setNested(doc, "usage", "type", func(raw string) (string, string) {
		return n.Usage(raw)
	}, &warnings)

	cyl, warn := n.SafeInt("nombre_cylindres", doc["nombre_cylindres"], n.tables.DefaultCylinders)
	doc["nombre_cylindres"] = cyl
	if warn != "" {
		warnings = append(warnings, warn)
	}

	fiscal, warn := n.SafeInt("puissance_fiscale", doc["puissance_fiscale"], n.tables.DefaultFiscal)
	doc["puissance_fiscale"] = fiscal
	if warn != "" {
		warnings = append(warnings, warn)
	}

	return doc, warnings
}

// Plate normalizes a registration plate. Plates already in canonical
// NNNN L NN form pass through. Dash-written plates such as "1107-1-81"
// are rebuilt with the Arabic series letter the middle digit stands for.
// Anything else becomes the fallback plate with a warning.
func (n *Normalizer) Plate(raw string) (string, string) {
	v := strings.TrimSpace(raw)

	if canonicalPlate.MatchString(v) {
		return v, ""
	}

	if m := dashPlate.FindStringSubmatch(v); m != nil {
		letter, ok := n.tables.SeriesLetters[m[2]]
		if ok {
			return fmt.Sprintf("%s %s %s", m[1], letter, m[3]), ""
		}
		// Unknown series digit: keep the surrounding numbers and guess
		// the first series letter, as a readable plate beats a placeholder.
		guessed := fmt.Sprintf("%s %s %s", m[1], n.tables.SeriesLetters["1"], m[3])
		return guessed, fmt.Sprintf(
			"numero_matricule_marocain: unknown series digit in %q, guessed %q", raw, guessed)
	}

	return n.tables.FallbackPlate, fmt.Sprintf(
		"numero_matricule_marocain: could not normalize %q, using fallback %q", raw, n.tables.FallbackPlate)
}

// PriorPlate normalizes a prior registration number to the uppercase WW
// series form, falling back when the value is unusable.
func (n *Normalizer) PriorPlate(raw string) (string, string) {
	v := strings.TrimSpace(raw)

	if priorPlate.MatchString(v) {
		return strings.ToUpper(v), ""
	}

	// WW plates often lose their dash to OCR ("WW131384"); reinsert it.
	if m := priorDigits.FindStringSubmatch(v); m != nil {
		return "WW-" + m[1], ""
	}

	return n.tables.FallbackPrior, fmt.Sprintf(
		"immatriculation_anterieure: could not normalize %q, using fallback %q", raw, n.tables.FallbackPrior)
}

// Usage maps a free-form usage wording onto one of the canonical types.
// Matching is case-insensitive on the trimmed value; synonyms come from
// the tables. Unknown wordings become the fallback usage with a warning.
func (n *Normalizer) Usage(raw string) (string, string) {
	v := strings.TrimSpace(raw)

	for _, canonical := range n.tables.UsageSynonyms {
		if v == canonical {
			return v, ""
		}
	}

	if canonical, ok := n.tables.UsageSynonyms[strings.ToLower(v)]; ok {
		return canonical, ""
	}

	return n.tables.FallbackUsage, fmt.Sprintf(
		"usage: could not normalize %q, using fallback %q", raw, n.tables.FallbackUsage)
}

// SafeInt coerces a JSON value to an integer, falling back to the given
// default when the value is missing or malformed. Any parseable integer
// survives, zero included; fractions are truncated.
func (n *Normalizer) SafeInt(name string, value any, fallback int) (int, string) {
	warn := fmt.Sprintf("%s: could not read %v as an integer, using default %d", name, value, fallback)

	switch v := value.(type) {
	case int:
		return v, ""
	case float64:
		return int(v), ""
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return int(f), ""
		}
	}

	return fallback, warn
}

// setNested applies fn to doc[outer][inner] when that path holds a string,
// creating the path when absent so the fallback still lands in the document.
func setNested(doc map[string]any, outer, inner string, fn func(string) (string, string), warnings *[]string) {
	obj, ok := doc[outer].(map[string]any)
	if !ok {
		obj = map[string]any{}
		doc[outer] = obj
	}

	raw, _ := obj[inner].(string)
	value, warn := fn(raw)
	obj[inner] = value
	if warn != "" {
		*warnings = append(*warnings, warn)
	}
}
