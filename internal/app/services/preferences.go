package services

import "github.com/yigit/seatallot/internal/app/models"

// PreferenceList builds an applicant's effective choice list: entries are
// normalized, blanks dropped, repeats removed (first occurrence wins) and
// the result capped at max entries. A non-positive max means no cap.
func PreferenceList(choices []string, max int) []string {
	prefs := make([]string, 0, len(choices))
	seen := make(map[string]struct{}, len(choices))

	for _, raw := range choices {
		if max > 0 && len(prefs) == max {
			break
		}

		dept := models.NormalizeDepartment(raw)
		if dept == "" {
			continue
		}
		if _, dup := seen[dept]; dup {
			continue
		}

		seen[dept] = struct{}{}
		prefs = append(prefs, dept)
	}

	return prefs
}

// indexOf returns the position of dept in prefs, or -1
func indexOf(prefs []string, dept string) int {
	for i, p := range prefs {
		if p == dept {
			return i
		}
	}
	return -1
}
