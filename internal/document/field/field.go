// Package field implements per-field format validators for Moroccan
// identification documents. Each validator takes a raw string and either
// returns the canonical form or fails with a field-scoped validation error.
package field

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/docflow/docflow-backend/internal/document/domain"
)

var (
	canonicalDate = regexp.MustCompile(`^\d{2}\.\d{2}\.\d{4}$`)
	shorthandDate = regexp.MustCompile(`^(\d{1,2})\.(\d{4})$`)

	// CIN patterns, tried in order of decreasing specificity.
	cinPatterns = []*regexp.Regexp{
		regexp.MustCompile(`[A-Z]{1,3}\d{3,6}[A-Z]{0,3}`),
		regexp.MustCompile(`[A-Z]{1,2}\d{3,6}`),
		regexp.MustCompile(`\d{6,8}`),
		regexp.MustCompile(`[A-Z0-9]{6,10}`),
	}

	civilPlain    = regexp.MustCompile(`^(\d{2,4})(\d{4})$`)
	civilDashed   = regexp.MustCompile(`^(\d+)-(\d{4})$`)
	civilTrailing = regexp.MustCompile(`^(\d{2,4}/\d{4}).*$`)
	civilCanonic  = regexp.MustCompile(`^\d{2,4}/\d{4}$`)

	latinStrict = regexp.MustCompile(`^[A-Z0-9\s\-.'’]+$`)

	// A plate is digits, a single Arabic or Latin letter, then two digits,
	// space separated (ex: "1234 أ 56" or "1234 B 56").
	plate      = regexp.MustCompile(`(?i)^\d{1,5}\s[\x{0623}-\x{064A}a-z]\s\d{2}$`)
	priorPlate = regexp.MustCompile(`(?i)^WW-\d{1,6}$`)

	licenseNumber = regexp.MustCompile(`^\d{1,2}/\d{6}$`)
)

// Date validates a date and canonicalizes it to DD.MM.YYYY. Separators
// '.', '/' and '-' are accepted; the shorthand DD.YYYY expands to
// DD.01.YYYY. Calendar validity is not checked: 31.02.2020 passes.
func Date(field, raw string) (string, error) {
	v := strings.TrimSpace(raw)
	v = strings.ReplaceAll(v, "-", ".")
	v = strings.ReplaceAll(v, "/", ".")

	if m := shorthandDate.FindStringSubmatch(v); m != nil {
		day, _ := strconv.Atoi(m[1])
		v = fmt.Sprintf("%02d.01.%s", day, m[2])
	}

	if !canonicalDate.MatchString(v) {
		return "", domain.NewValidationError(field, raw, "date must be in DD.MM.YYYY format")
	}
	return v, nil
}

// LatinStrict validates that the Latin side of a bilingual field uses only
// uppercase Latin letters, digits, spaces, apostrophes, hyphens and periods.
func LatinStrict(field, raw string) (string, error) {
	if !latinStrict.MatchString(raw) {
		return "", domain.NewValidationError(field, raw, "latin text must use only A-Z, 0-9, spaces, apostrophes, hyphens or periods")
	}
	return raw, nil
}

// LatinLoose validates that the Latin side contains fewer than 30%
// Arabic-script code points. This is the default profile for bilingual
// fields; only driving-license names use the strict charset.
func LatinLoose(field, raw string) (string, error) {
	runes := []rune(raw)
	if arabicCount(raw)*10 > len(runes)*3 {
		return "", domain.NewValidationError(field, raw, "latin text contains too many Arabic characters")
	}
	return raw, nil
}

// Arabic validates the Arabic side of a bilingual field: trailing periods
// and spaces are stripped, and the remainder must contain at least one
// Arabic-script code point when non-empty.
func Arabic(field, raw string) (string, error) {
	v := strings.TrimRight(raw, ". ")
	v = strings.TrimSpace(v)
	if len(v) > 0 && arabicCount(v) == 0 {
		return "", domain.NewValidationError(field, raw, "arabic text contains no Arabic characters")
	}
	return v, nil
}

// CIN extracts and validates a national identity card number. Four patterns
// of decreasing specificity are tried against the upper-cased trimmed input;
// the first substring match wins. Inputs that match no pattern but are 6-10
// alphanumeric characters are accepted verbatim.
func CIN(field, raw string) (string, error) {
	v := strings.ToUpper(strings.TrimSpace(raw))

	for _, p := range cinPatterns {
		if m := p.FindString(v); m != "" {
			return m, nil
		}
	}

	if len(v) >= 6 && len(v) <= 10 && isAlphanumeric(v) {
		return v, nil
	}

	return "", domain.NewValidationError(field, raw, "CIN format invalid")
}

// CivilRegistry normalizes a civil-registry number to XX/YYYY form. An
// empty result with a nil error means the document carries no usable
// number: values starting with CAN are verso codes, not registry numbers,
// and are discarded rather than rejected.
func CivilRegistry(field, raw string) (string, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return "", nil
	}

	if m := civilPlain.FindStringSubmatch(v); m != nil {
		return m[1] + "/" + m[2], nil
	}

	v = civilDashed.ReplaceAllString(v, "$1/$2")
	v = civilTrailing.ReplaceAllString(v, "$1")

	if civilCanonic.MatchString(v) {
		return v, nil
	}

	if strings.HasPrefix(v, "CAN") {
		return "", nil
	}

	return "", domain.NewValidationError(field, raw,
		"civil-registry number format not recognized, expected XX/YYYY, XXX/YYYY, XXXX/YYYY, XXYYYY or XX-YYYY")
}

// Plate validates a Moroccan registration plate: NNNN L NN with a single
// Arabic or Latin letter in the middle.
func Plate(field, raw string) (string, error) {
	if !plate.MatchString(raw) {
		return "", domain.NewValidationError(field, raw, "plate must be in NNNN L NN format (ex: 1234 أ 56 or 1234 B 56)")
	}
	return raw, nil
}

// PriorPlate validates a prior registration number (WW series) and
// canonicalizes the prefix to uppercase.
func PriorPlate(field, raw string) (string, error) {
	if !priorPlate.MatchString(raw) {
		return "", domain.NewValidationError(field, raw, "prior registration must be in WW-NNNNNN format (ex: WW-123456)")
	}
	return strings.ToUpper(raw), nil
}

// LicenseNumber validates a driving-license number of the form N/MMMMMM.
func LicenseNumber(field, raw string) (string, error) {
	if !licenseNumber.MatchString(raw) {
		return "", domain.NewValidationError(field, raw, "license number must be in N/MMMMMM format (ex: 55/193059)")
	}
	return raw, nil
}

// Sex validates the sex marker of an identity card.
func Sex(field, raw string) (string, error) {
	if raw != "M" && raw != "F" {
		return "", domain.NewValidationError(field, raw, "sex must be 'M' or 'F'")
	}
	return raw, nil
}

// Member validates exact membership in a closed set.
func Member(field, raw string, allowed []string) (string, error) {
	for _, a := range allowed {
		if raw == a {
			return raw, nil
		}
	}
	return "", domain.NewValidationError(field, raw, "must be one of: "+strings.Join(allowed, ", "))
}

// MinLen validates a minimum length in runes.
func MinLen(field, raw string, min int) (string, error) {
	if len([]rune(raw)) < min {
		return "", domain.NewValidationError(field, raw, fmt.Sprintf("must contain at least %d characters", min))
	}
	return raw, nil
}

// arabicCount counts code points in the Arabic block U+0600..U+06FF.
func arabicCount(s string) int {
	n := 0
	for _, r := range s {
		if r >= 0x0600 && r <= 0x06FF {
			n++
		}
	}
	return n
}

func isAlphanumeric(s string) bool {
	for _, r := range s {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
