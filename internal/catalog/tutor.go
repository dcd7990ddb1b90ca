package catalog

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Tuition modes.
const (
	ModeOneToOne = "one-to-one"
	ModeGroup    = "group"
)

// Contact holds a tutor's reachable numbers as authored.
type Contact struct {
	WhatsApp string `json:"whatsapp,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

// Number returns the WhatsApp number, or the phone number when absent.
func (c Contact) Number() string {
	if s := strings.TrimSpace(c.WhatsApp); s != "" {
		return s
	}
	return strings.TrimSpace(c.Phone)
}

// Prefs lists the tuition modes and weekly lesson counts a tutor offers.
type Prefs struct {
	Modes         []string `json:"modes,omitempty"`
	WeeklyLessons []int    `json:"weekly_lessons_supported,omitempty"`
}

// SupportsMode reports whether mode is offered.
func (p Prefs) SupportsMode(mode string) bool {
	return slices.Contains(p.Modes, mode)
}

// SupportsWeekly reports whether n lessons per week are offered.
func (p Prefs) SupportsWeekly(n int) bool {
	return slices.Contains(p.WeeklyLessons, n)
}

func (p Prefs) empty() bool {
	return len(p.Modes) == 0 && len(p.WeeklyLessons) == 0
}

// Tutor is one catalog record. Exported fields are as authored; the
// canonical sets are derived once at load and never mutated afterwards.
type Tutor struct {
	ID             string           `json:"id,omitempty"`
	Name           string           `json:"name"`
	Subjects       []string         `json:"subjects"`
	Grades         []int            `json:"-"`
	Boards         []string         `json:"boards"`
	Qualifications []string         `json:"-"`
	Bio            string           `json:"bio,omitempty"`
	Contact        Contact          `json:"contact"`
	PhotoURL       string           `json:"photo_url,omitempty"`
	SubjectPrefs   map[string]Prefs `json:"subject_prefs,omitempty"`

	// Tutor-level defaults used when a subject has no prefs of its own.
	Prefs

	canonicalSubjects []string
	canonicalBoards   []string
	prefsBySubject    map[string]Prefs
}

// UnmarshalJSON accepts grades as numbers or numeric strings and
// qualifications as a list or a single comma-separated string.
func (t *Tutor) UnmarshalJSON(data []byte) error {
	type plain Tutor
	aux := struct {
		*plain
		Grades         []json.RawMessage `json:"grades"`
		Qualifications json.RawMessage   `json:"qualifications"`
		Modes          []string          `json:"modes"`
	}{plain: (*plain)(t)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	t.Grades = t.Grades[:0]
	for _, raw := range aux.Grades {
		g, err := parseGrade(raw)
		if err != nil {
			return fmt.Errorf("tutor %q: %w", t.Name, err)
		}
		t.Grades = append(t.Grades, g)
	}

	quals, err := parseStringList(aux.Qualifications)
	if err != nil {
		return fmt.Errorf("tutor %q qualifications: %w", t.Name, err)
	}
	t.Qualifications = quals
	t.Modes = NormalizeModes(aux.Modes)
	for k, p := range t.SubjectPrefs {
		p.Modes = NormalizeModes(p.Modes)
		t.SubjectPrefs[k] = p
	}
	return nil
}

func parseGrade(raw json.RawMessage) (int, error) {
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("grade %s is neither number nor string", raw)
	}
	s = strings.TrimSpace(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "grade"))
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("grade %q is not numeric", s)
	}
	return n, nil
}

func parseStringList(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out, nil
}

// NormalizeModes maps authored mode labels onto ModeOneToOne / ModeGroup,
// dropping anything else.
func NormalizeModes(modes []string) []string {
	var out []string
	for _, m := range modes {
		var mode string
		switch strings.Join(strings.Fields(strings.ToLower(m)), " ") {
		case "one-to-one", "one to one", "1:1", "1-1", "1-to-1", "individual", "private", "o":
			mode = ModeOneToOne
		case "group", "groups", "small group", "g":
			mode = ModeGroup
		default:
			continue
		}
		if !slices.Contains(out, mode) {
			out = append(out, mode)
		}
	}
	return out
}

// Key returns the tutor's dedup key: the id, or the name when id is empty.
func (t Tutor) Key() string {
	if t.ID != "" {
		return t.ID
	}
	return t.Name
}

// CanonicalSubjects returns the derived canonical subject set, sorted.
func (t Tutor) CanonicalSubjects() []string {
	return t.canonicalSubjects
}

// CanonicalBoards returns the derived canonical board set, sorted.
func (t Tutor) CanonicalBoards() []string {
	return t.canonicalBoards
}

// TeachesSubject reports whether canonical is in the derived subject set.
func (t Tutor) TeachesSubject(canonical string) bool {
	_, ok := slices.BinarySearch(t.canonicalSubjects, canonical)
	return ok
}

// CoversBoard reports whether canonical is in the derived board set.
func (t Tutor) CoversBoard(canonical string) bool {
	_, ok := slices.BinarySearch(t.canonicalBoards, canonical)
	return ok
}

// TeachesGrade reports whether grade is listed.
func (t Tutor) TeachesGrade(grade int) bool {
	return slices.Contains(t.Grades, grade)
}

// GradeRange returns the lowest and highest listed grade.
func (t Tutor) GradeRange() (lo, hi int, ok bool) {
	if len(t.Grades) == 0 {
		return 0, 0, false
	}
	return slices.Min(t.Grades), slices.Max(t.Grades), true
}

// PrefsFor returns the preference metadata for a canonical subject, falling
// back to the tutor-level values when the subject has none of its own.
func (t Tutor) PrefsFor(canonicalSubject string) Prefs {
	if p, ok := t.prefsBySubject[canonicalSubject]; ok && !p.empty() {
		return p
	}
	return t.Prefs
}
