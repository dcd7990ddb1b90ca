// Package callback encodes and decodes inline keyboard button payloads.
//
// A payload is a tag followed by fixed positional fields, joined by '|':
//
//	noop
//	B|<board>
//	G|<grade>|<board>
//	T|<code>|<board>|<grade>|<codes>
//	D|<board>|<grade>|<codes>
//	Q|<board>|<grade>|<code>|<rest>|<mode>|<weekly>
//	QN|<board>|<grade>|<code>|<rest>|<mode>|<weekly>
//	S|<tutor>
//	L
//	R
//
// <codes> and <rest> are dot-joined subject codes; <mode> is O, G or ?;
// <weekly> is 1, 2 or ?. Each payload carries what its screen needs so a
// button still works after the session is gone.
package callback

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	domerrors "github.com/kwportal/igcse-tutor-bot/internal/errors"
	"github.com/kwportal/igcse-tutor-bot/internal/label"
	"github.com/kwportal/igcse-tutor-bot/internal/sliceutil"
)

// MaxLen is the Bot API ceiling for callback_data, in bytes.
const MaxLen = 64

// ResetCode in a toggle payload clears the selection.
const ResetCode = "__RESET__"

const (
	sep      = "|"
	listSep  = "."
	unset    = "?"
	minGrade = 7
	maxGrade = 13
)

// Kind identifies a payload variant.
type Kind string

const (
	KindNoop      Kind = "noop"
	KindBoard     Kind = "B"
	KindGrade     Kind = "G"
	KindToggle    Kind = "T"
	KindDone      Kind = "D"
	KindPref      Kind = "Q"
	KindPrefNext  Kind = "QN"
	KindSelect    Kind = "S"
	KindSendLinks Kind = "L"
	KindRestart   Kind = "R"
)

// Mode letters.
const (
	ModeOneToOne = "O"
	ModeGroup    = "G"
)

// Payload is any decoded button payload.
type Payload interface {
	Kind() Kind
}

// Noop is a decorative button that does nothing.
type Noop struct{}

// Board picks an exam board.
type Board struct {
	Board string
}

// Grade picks a grade for a board.
type Grade struct {
	Board string
	Grade int
}

// Toggle flips Code in Selected, or clears it when Code is ResetCode.
type Toggle struct {
	Code     string
	Board    string
	Grade    int
	Selected []string
}

// Done finishes subject selection.
type Done struct {
	Board    string
	Grade    int
	Selected []string
}

// Pref is one answer on the preference screen of Code. Rest lists the codes
// still to ask about. Mode and Weekly are empty/zero until chosen.
type Pref struct {
	Board  string
	Grade  int
	Code   string
	Rest   []string
	Mode   string
	Weekly int
}

// PrefNext confirms the preferences of Code and moves on.
type PrefNext Pref

// Select toggles a tutor in the parent's shortlist.
type Select struct {
	TutorID string
}

// SendLinks sends the contact links of the shortlisted tutors.
type SendLinks struct{}

// Restart starts the conversation over.
type Restart struct{}

func (Noop) Kind() Kind      { return KindNoop }
func (Board) Kind() Kind     { return KindBoard }
func (Grade) Kind() Kind     { return KindGrade }
func (Toggle) Kind() Kind    { return KindToggle }
func (Done) Kind() Kind      { return KindDone }
func (Pref) Kind() Kind      { return KindPref }
func (PrefNext) Kind() Kind  { return KindPrefNext }
func (Select) Kind() Kind    { return KindSelect }
func (SendLinks) Kind() Kind { return KindSendLinks }
func (Restart) Kind() Kind   { return KindRestart }

// Complete reports whether both preferences are chosen.
func (p Pref) Complete() bool {
	return p.Mode != "" && p.Weekly != 0
}

// Complete reports whether both preferences are chosen.
func (p PrefNext) Complete() bool {
	return Pref(p).Complete()
}

// Parse decodes any payload by its tag.
func Parse(data string) (Payload, error) {
	tag, _, _ := strings.Cut(data, sep)
	switch Kind(tag) {
	case KindNoop:
		return DecodeNoop(data)
	case KindBoard:
		return DecodeBoard(data)
	case KindGrade:
		return DecodeGrade(data)
	case KindToggle:
		return DecodeToggle(data)
	case KindDone:
		return DecodeDone(data)
	case KindPref:
		return DecodePref(data)
	case KindPrefNext:
		return DecodePrefNext(data)
	case KindSelect:
		return DecodeSelect(data)
	case KindSendLinks:
		return DecodeSendLinks(data)
	case KindRestart:
		return DecodeRestart(data)
	}
	return nil, unknown(data, "tag")
}

// EncodeNoop renders the inert payload used by heading buttons.
func EncodeNoop(Noop) (string, error) {
	return string(KindNoop), nil
}

// DecodeNoop accepts only the bare noop tag.
func DecodeNoop(data string) (Noop, error) {
	if data != string(KindNoop) {
		return Noop{}, unknown(data, "noop")
	}
	return Noop{}, nil
}

// EncodeBoard renders B|<board>.
func EncodeBoard(p Board) (string, error) {
	return join(KindBoard, p.Board)
}

// DecodeBoard parses B|<board>; the board must be a known code.
func DecodeBoard(data string) (Board, error) {
	f, err := fields(data, KindBoard, 1)
	if err != nil {
		return Board{}, err
	}
	board, err := boardCode(data, f[0])
	if err != nil {
		return Board{}, err
	}
	return Board{Board: board}, nil
}

// EncodeGrade renders G|<grade>|<board>.
func EncodeGrade(p Grade) (string, error) {
	return join(KindGrade, strconv.Itoa(p.Grade), p.Board)
}

// DecodeGrade parses G|<grade>|<board>.
func DecodeGrade(data string) (Grade, error) {
	f, err := fields(data, KindGrade, 2)
	if err != nil {
		return Grade{}, err
	}
	grade, err := gradeValue(data, f[0])
	if err != nil {
		return Grade{}, err
	}
	board, err := boardCode(data, f[1])
	if err != nil {
		return Grade{}, err
	}
	return Grade{Board: board, Grade: grade}, nil
}

// EncodeToggle renders T|<code>|<board>|<grade>|<selected codes>.
func EncodeToggle(p Toggle) (string, error) {
	return join(KindToggle, p.Code, p.Board, strconv.Itoa(p.Grade), EncodeCodes(p.Selected))
}

// DecodeToggle parses a subject toggle. An empty selection decodes to nil.
func DecodeToggle(data string) (Toggle, error) {
	f, err := fields(data, KindToggle, 4)
	if err != nil {
		return Toggle{}, err
	}
	if f[0] != ResetCode && !label.IsSubjectCode(f[0]) {
		return Toggle{}, unknown(data, "subject code")
	}
	board, err := boardCode(data, f[1])
	if err != nil {
		return Toggle{}, err
	}
	grade, err := gradeValue(data, f[2])
	if err != nil {
		return Toggle{}, err
	}
	selected, err := codeList(data, f[3])
	if err != nil {
		return Toggle{}, err
	}
	return Toggle{Code: f[0], Board: board, Grade: grade, Selected: selected}, nil
}

// Apply returns the selection after the toggle, sorted.
func (p Toggle) Apply() []string {
	if p.Code == ResetCode {
		return nil
	}
	return sliceutil.Toggle(p.Selected, p.Code)
}

// EncodeDone renders D|<board>|<grade>|<selected codes>.
func EncodeDone(p Done) (string, error) {
	return join(KindDone, p.Board, strconv.Itoa(p.Grade), EncodeCodes(p.Selected))
}

// DecodeDone parses the end of subject selection.
func DecodeDone(data string) (Done, error) {
	f, err := fields(data, KindDone, 3)
	if err != nil {
		return Done{}, err
	}
	board, err := boardCode(data, f[0])
	if err != nil {
		return Done{}, err
	}
	grade, err := gradeValue(data, f[1])
	if err != nil {
		return Done{}, err
	}
	selected, err := codeList(data, f[2])
	if err != nil {
		return Done{}, err
	}
	return Done{Board: board, Grade: grade, Selected: selected}, nil
}

// EncodePref renders Q|<board>|<grade>|<code>|<rest>|<mode>|<weekly>, the
// press of a preference option for one subject.
func EncodePref(p Pref) (string, error) {
	return encodePref(KindPref, p)
}

// DecodePref parses a Q payload.
func DecodePref(data string) (Pref, error) {
	return decodePref(data, KindPref)
}

// EncodePrefNext renders the QN payload that accepts a subject's
// preferences and moves to the next one.
func EncodePrefNext(p PrefNext) (string, error) {
	return encodePref(KindPrefNext, Pref(p))
}

// DecodePrefNext parses a QN payload.
func DecodePrefNext(data string) (PrefNext, error) {
	p, err := decodePref(data, KindPrefNext)
	return PrefNext(p), err
}

func encodePref(kind Kind, p Pref) (string, error) {
	mode := unset
	switch p.Mode {
	case ModeOneToOne, ModeGroup:
		mode = p.Mode
	case "":
	default:
		return "", fmt.Errorf("%w: mode %q", domerrors.ErrInvalidInput, p.Mode)
	}
	weekly := unset
	if p.Weekly != 0 {
		weekly = strconv.Itoa(p.Weekly)
	}
	return join(kind, p.Board, strconv.Itoa(p.Grade), p.Code, strings.Join(p.Rest, listSep), mode, weekly)
}

func decodePref(data string, kind Kind) (Pref, error) {
	f, err := fields(data, kind, 6)
	if err != nil {
		return Pref{}, err
	}
	board, err := boardCode(data, f[0])
	if err != nil {
		return Pref{}, err
	}
	grade, err := gradeValue(data, f[1])
	if err != nil {
		return Pref{}, err
	}
	if !label.IsSubjectCode(f[2]) {
		return Pref{}, unknown(data, "subject code")
	}
	rest, err := restList(data, f[3])
	if err != nil {
		return Pref{}, err
	}
	p := Pref{Board: board, Grade: grade, Code: f[2], Rest: rest}
	switch f[4] {
	case ModeOneToOne, ModeGroup:
		p.Mode = f[4]
	case unset:
	default:
		return Pref{}, unknown(data, "mode")
	}
	switch f[5] {
	case "1", "2":
		p.Weekly = int(f[5][0] - '0')
	case unset:
	default:
		return Pref{}, unknown(data, "weekly lessons")
	}
	return p, nil
}

// EncodeSelect renders S|<tutor id>.
func EncodeSelect(p Select) (string, error) {
	if p.TutorID == "" || strings.Contains(p.TutorID, sep) {
		return "", fmt.Errorf("%w: tutor id %q", domerrors.ErrInvalidInput, p.TutorID)
	}
	return join(KindSelect, p.TutorID)
}

// DecodeSelect parses a tutor choice.
func DecodeSelect(data string) (Select, error) {
	f, err := fields(data, KindSelect, 1)
	if err != nil {
		return Select{}, err
	}
	if f[0] == "" {
		return Select{}, unknown(data, "tutor id")
	}
	return Select{TutorID: f[0]}, nil
}

// EncodeSendLinks renders the bare L tag.
func EncodeSendLinks(SendLinks) (string, error) {
	return string(KindSendLinks), nil
}

// DecodeSendLinks accepts only the bare L tag.
func DecodeSendLinks(data string) (SendLinks, error) {
	if data != string(KindSendLinks) {
		return SendLinks{}, unknown(data, "send links")
	}
	return SendLinks{}, nil
}

// EncodeRestart renders the bare R tag.
func EncodeRestart(Restart) (string, error) {
	return string(KindRestart), nil
}

// DecodeRestart accepts only the bare R tag.
func DecodeRestart(data string) (Restart, error) {
	if data != string(KindRestart) {
		return Restart{}, unknown(data, "restart")
	}
	return Restart{}, nil
}

// EncodeCodes renders a subject selection: distinct, sorted, dot-joined.
func EncodeCodes(codes []string) string {
	return strings.Join(sliceutil.SortedSet(codes), listSep)
}

// FitsSelection reports whether every button of the subject screen can carry
// selected for this board and grade.
func FitsSelection(board string, grade int, selected []string) bool {
	_, err := EncodeToggle(Toggle{Code: ResetCode, Board: board, Grade: grade, Selected: selected})
	return err == nil
}

func join(kind Kind, parts ...string) (string, error) {
	s := string(kind) + sep + strings.Join(parts, sep)
	if len(s) > MaxLen {
		return "", fmt.Errorf("%w: %d bytes: %s", domerrors.ErrPayloadTooLong, len(s), s)
	}
	return s, nil
}

func fields(data string, kind Kind, n int) ([]string, error) {
	parts := strings.Split(data, sep)
	if parts[0] != string(kind) || len(parts) != n+1 {
		return nil, unknown(data, "shape")
	}
	return parts[1:], nil
}

func boardCode(data, s string) (string, error) {
	if !label.IsBoardCode(s) {
		return "", unknown(data, "board")
	}
	return s, nil
}

func gradeValue(data, s string) (int, error) {
	g, err := strconv.Atoi(s)
	if err != nil || g < minGrade || g > maxGrade {
		return 0, unknown(data, "grade")
	}
	return g, nil
}

func codeList(data, s string) ([]string, error) {
	list, err := restList(data, s)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return sliceutil.SortedSet(list), nil
}

func restList(data, s string) ([]string, error) {
	if s == "" {
		return nil, nil
	}
	list := strings.Split(s, listSep)
	if slices.ContainsFunc(list, func(c string) bool { return !label.IsSubjectCode(c) }) {
		return nil, unknown(data, "subject list")
	}
	return list, nil
}

func unknown(data, what string) error {
	return fmt.Errorf("%w: bad %s in %q", domerrors.ErrUnknownPayload, what, data)
}
