// Package label maps free-text subject and exam-board labels onto the
// portal's canonical vocabulary. Subject and board identity is never compared
// by raw string equality; every label passes through this package first.
package label

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/kwportal/igcse-tutor-bot/internal/logger"
)

// keptPunct lists the punctuation that survives cleaning.
const keptPunct = "&()/-"

type compiledAlias struct {
	canonical string // display form
	alias     string // cleaned alias
}

var (
	// subjectAliases is subjectTable flattened in declaration order, with the
	// canonical key itself as the first alias of each row.
	subjectAliases []compiledAlias
	// boardByAlias maps a cleaned board alias to its canonical identifier.
	boardByAlias = map[string]string{}
)

func init() {
	title := cases.Title(language.English)
	for _, row := range subjectTable {
		display, ok := niceNames[row.canonical]
		if !ok {
			display = title.String(row.canonical)
		}
		subjectAliases = append(subjectAliases, compiledAlias{display, Clean(row.canonical)})
		for _, a := range row.aliases {
			subjectAliases = append(subjectAliases, compiledAlias{display, Clean(a)})
		}
	}
	for _, row := range boardTable {
		for _, a := range row.aliases {
			boardByAlias[Clean(a)] = row.canonical
		}
	}
}

// Clean folds a label for comparison: Unicode compatibility normalization,
// lower-casing, punctuation other than "&()/-" replaced by spaces, and runs
// of whitespace collapsed.
func Clean(s string) string {
	s = strings.ToLower(norm.NFKC.String(s))
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), strings.ContainsRune(keptPunct, r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Canonicalizer resolves labels and logs the ones it cannot place.
type Canonicalizer struct {
	log *logger.Logger
}

// New creates a Canonicalizer. A nil logger disables miss logging.
func New(log *logger.Logger) *Canonicalizer {
	if log != nil {
		log = log.WithModule("label")
	}
	return &Canonicalizer{log: log}
}

// Subject returns the display-cased canonical subject for label.
//
// An exact match of the cleaned label against any alias wins first. A bare
// keyboard code (e.g. "MTH") is accepted next. Otherwise the first table row
// with an alias found as a whole word inside the label decides, so
// "Physics and Chemistry" is Physics. A miss is logged at warning level and
// reported as ok=false.
func (c *Canonicalizer) Subject(raw string) (string, bool) {
	cleaned := Clean(raw)
	if cleaned == "" {
		return "", false
	}
	for _, a := range subjectAliases {
		if a.alias == cleaned {
			return a.canonical, true
		}
	}
	if s, ok := codeToSubject[strings.ToUpper(strings.TrimSpace(raw))]; ok {
		return s, true
	}
	for _, a := range subjectAliases {
		if containsWord(cleaned, a.alias) {
			return a.canonical, true
		}
	}
	if c.log != nil {
		c.log.WithField("label", raw).Warn("Unrecognized subject label")
	}
	return "", false
}

// Board returns the canonical board identifier for label. Only whole-label
// aliases are recognized; anything else comes back lower-cased and otherwise
// unchanged.
func (c *Canonicalizer) Board(raw string) string {
	if b, ok := boardByAlias[Clean(raw)]; ok {
		return b
	}
	return strings.ToLower(raw)
}

// containsWord reports whether word occurs in s with no letter or digit
// directly before or after it.
func containsWord(s, word string) bool {
	if word == "" {
		return false
	}
	for start := 0; ; {
		i := strings.Index(s[start:], word)
		if i < 0 {
			return false
		}
		i += start
		end := i + len(word)
		if !wordRuneBefore(s, i) && !wordRuneAt(s, end) {
			return true
		}
		start = i + 1
	}
}

func wordRuneBefore(s string, i int) bool {
	if i == 0 {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return isWordRune(r)
}

func wordRuneAt(s string, i int) bool {
	if i >= len(s) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// SubjectForCode returns the canonical subject for a keyboard code.
func SubjectForCode(code string) (string, bool) {
	s, ok := codeToSubject[code]
	return s, ok
}

// SubjectsForCodes maps codes to canonical subjects, dropping unknown codes.
func SubjectsForCodes(codes []string) []string {
	out := make([]string, 0, len(codes))
	for _, code := range codes {
		if s, ok := codeToSubject[code]; ok {
			out = append(out, s)
		}
	}
	return out
}

// IsSubjectCode reports whether code is a known keyboard subject code.
func IsSubjectCode(code string) bool {
	_, ok := codeToSubject[code]
	return ok
}

// SubjectGroups returns the keyboard groups in display order.
func SubjectGroups() []Group {
	return subjectGroups
}

// BoardForCode returns the board display name for a keyboard code, or the
// code itself when unknown.
func BoardForCode(code string) string {
	if name, ok := boardCodes[code]; ok {
		return name
	}
	return code
}

// IsBoardCode reports whether code is a known keyboard board code.
func IsBoardCode(code string) bool {
	_, ok := boardCodes[code]
	return ok
}

// BoardOptions returns the board choices in keyboard order.
func BoardOptions() []Option {
	return []Option{
		{Code: "C", Label: "Cambridge"},
		{Code: "E", Label: "Edexcel"},
		{Code: "O", Label: "Oxford"},
	}
}

// BoardDisplay returns the display name of a canonical board identifier,
// or the identifier itself when it is not one of the known boards.
func BoardDisplay(canonical string) string {
	if name, ok := boardDisplay[canonical]; ok {
		return name
	}
	return canonical
}

// SubjectAliases returns every (alias, canonical) pair, for exhaustive checks.
func SubjectAliases() map[string]string {
	out := make(map[string]string, len(subjectAliases))
	for _, a := range subjectAliases {
		out[a.alias] = a.canonical
	}
	return out
}
