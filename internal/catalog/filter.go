package catalog

import "strings"

// localCity is treated specially: when it is among the selected cities,
// courses without a recorded city also pass, since an unspecified location
// implicitly means local.
const localCity = "Tartu"

// FilterSpec is a snapshot of the structured constraints active when a query
// is issued. The zero value applies no constraint at all; an empty list or a
// zero credit range means "predicate not applied". The spec is stored
// verbatim into each turn's provenance, so it must stay a plain value object.
type FilterSpec struct {
	CreditsMin           float64  `json:"credits_min,omitempty"`
	CreditsMax           float64  `json:"credits_max,omitempty"` // <= 0 disables the range
	Semesters            []string `json:"semesters,omitempty"`
	GradingSchemes       []string `json:"grading_schemes,omitempty"`
	Cities               []string `json:"cities,omitempty"`
	DegreeLevels         []string `json:"degree_levels,omitempty"`
	DeliveryModes        []string `json:"delivery_modes,omitempty"`
	ExcludePrerequisites bool     `json:"exclude_prerequisites,omitempty"`
}

// Apply returns the courses satisfying the conjunction of all configured
// predicates. The input slice is never mutated; an empty result is a valid
// outcome, not an error.
func (f FilterSpec) Apply(courses []Course) []Course {
	var matched []Course
	for _, c := range courses {
		if f.Matches(c) {
			matched = append(matched, c)
		}
	}
	return matched
}

func (f FilterSpec) Matches(c Course) bool {
	if f.CreditsMax > 0 && (c.Credits < f.CreditsMin || c.Credits > f.CreditsMax) {
		return false
	}
	if !memberOf(c.Semester, f.Semesters) {
		return false
	}
	if !memberOf(c.Grading, f.GradingSchemes) {
		return false
	}
	if !memberOf(c.Delivery, f.DeliveryModes) {
		return false
	}
	if !f.cityMatches(c.City) {
		return false
	}
	if !f.levelMatches(c.Level) {
		return false
	}
	if f.ExcludePrerequisites && strings.TrimSpace(c.Prerequisites) != "" {
		return false
	}
	return true
}

// memberOf reports whether value is in the selected set; an empty set means
// the predicate is not applied.
func memberOf(value string, selected []string) bool {
	if len(selected) == 0 {
		return true
	}
	for _, s := range selected {
		if strings.EqualFold(strings.TrimSpace(value), strings.TrimSpace(s)) {
			return true
		}
	}
	return false
}

func (f FilterSpec) cityMatches(city string) bool {
	if len(f.Cities) == 0 {
		return true
	}
	for _, s := range f.Cities {
		if normalizeCity(city) == normalizeCity(s) {
			return true
		}
		// An absent city passes when the local city is selected.
		if strings.TrimSpace(city) == "" && normalizeCity(s) == normalizeCity(localCity) {
			return true
		}
	}
	return false
}

// normalizeCity folds the spelling variants seen in the source data, e.g.
// "Tartu linn" vs "tartu".
func normalizeCity(city string) string {
	city = strings.ToLower(strings.TrimSpace(city))
	return strings.TrimSpace(strings.TrimSuffix(city, " linn"))
}

// levelMatches applies a case-insensitive substring match: a course passes if
// any selected degree level occurs in its level field.
func (f FilterSpec) levelMatches(level string) bool {
	if len(f.DegreeLevels) == 0 {
		return true
	}
	lower := strings.ToLower(level)
	for _, s := range f.DegreeLevels {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" && strings.Contains(lower, s) {
			return true
		}
	}
	return false
}
