package oracle

import (
	"strings"
	"unicode"

	"github.com/fentz26/archivist/internal/models"
)

const wrapping = " \t\r\n'\"`“”‘’「」"

// ParseDecision validates a raw answer of the form "<tier>-<department>".
//
// The text is split at the first separator. The tier segment must either be
// a tier label or contain exactly one tier label (so "保管期限：长期" is
// accepted). Only the tier segment is searched, never the department. The
// department is kept verbatim but must be usable as a single folder name.
// Raw keeps the answer exactly as received.
func ParseDecision(raw string) (*models.Decision, error) {
	text := strings.Trim(raw, wrapping)

	tierPart, dept, ok := strings.Cut(text, Separator)
	if !ok {
		return nil, models.NewFailure(models.FailureFormat, "no separator in answer %q", text)
	}
	tierPart = strings.TrimSpace(tierPart)
	dept = strings.Trim(dept, wrapping)
	if tierPart == "" || dept == "" {
		return nil, models.NewFailure(models.FailureFormat, "empty segment in answer %q", text)
	}

	tier, ok := matchTier(tierPart)
	if !ok {
		return nil, models.NewFailure(models.FailureFormat, "unrecognized tier %q", tierPart)
	}
	if !validDepartment(dept) {
		return nil, models.NewFailure(models.FailureFormat, "department %q is not a valid folder name", dept)
	}

	return &models.Decision{Tier: tier, Department: dept, Raw: raw}, nil
}

func matchTier(s string) (models.Tier, bool) {
	if t, ok := models.ParseTier(s); ok {
		return t, true
	}

	var found []models.Tier
	for _, t := range models.Tiers {
		if strings.Contains(s, string(t)) {
			found = append(found, t)
		}
	}
	if len(found) != 1 {
		return "", false
	}
	return found[0], true
}

func validDepartment(d string) bool {
	if d == "." || d == ".." {
		return false
	}
	if strings.ContainsAny(d, "/\\") {
		return false
	}
	return strings.IndexFunc(d, unicode.IsControl) < 0
}
