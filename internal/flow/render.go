package flow

import (
	"fmt"
	"html"
	"slices"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/kwportal/igcse-tutor-bot/internal/callback"
	"github.com/kwportal/igcse-tutor-bot/internal/catalog"
	"github.com/kwportal/igcse-tutor-bot/internal/label"
)

// Fixed texts.
const (
	TextWelcome       = "Welcome to Kuwait IGCSE Portal 👋\nPlease type your full name (parent):"
	TextAskBoard      = "<b>Step 1/3 – Board</b>\nWhich board or curriculum does your child follow?"
	TextAskGrade      = "<b>Step 2/3 – Grade</b>\nSelect your child's current grade:"
	TextGuided        = "Please use the guided flow 👇"
	TextNeedSubject   = "Please select at least one subject."
	TextSelectionFull = "That is as many subjects as we can take at once."
	TextNeedBothPrefs = "Choose both options first."
	TextNextSubject   = "Saved. Moving to the next subject…"
	TextNoMatches     = "Sorry, no exact matches right now. We’ll expand the search and get back to you."
	TextShortlistHint = "Tap <b>Choose</b> on the tutors you like, then press <b>Send links</b>."
	TextNeedTeacher   = "Choose at least one tutor first."
	TextTutorGone     = "This tutor is no longer available."
	TextAdded         = "Added to your shortlist."
	TextRemoved       = "Removed from your shortlist."
)

const (
	gradeFrom   = 7
	gradeTo     = 12
	gradesInRow = 4
	subjectsRow = 2
	unchecked   = "☐"
	checked     = "✅"
)

func h(s string) string {
	return html.EscapeString(s)
}

func tick(on bool) string {
	if on {
		return checked
	}
	return unchecked
}

func data(text, payload string) tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardButtonData(text, payload)
}

func emptyKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}}
}

func boardKeyboard() (tgbotapi.InlineKeyboardMarkup, error) {
	var row []tgbotapi.InlineKeyboardButton
	for _, opt := range label.BoardOptions() {
		p, err := callback.EncodeBoard(callback.Board{Board: opt.Code})
		if err != nil {
			return tgbotapi.InlineKeyboardMarkup{}, err
		}
		row = append(row, data(opt.Label, p))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row), nil
}

func gradeKeyboard(board string) (tgbotapi.InlineKeyboardMarkup, error) {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for g := gradeFrom; g <= gradeTo; g++ {
		p, err := callback.EncodeGrade(callback.Grade{Board: board, Grade: g})
		if err != nil {
			return tgbotapi.InlineKeyboardMarkup{}, err
		}
		row = append(row, data(strconv.Itoa(g), p))
		if len(row) == gradesInRow {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	back, err := callback.EncodeBoard(callback.Board{Board: board})
	if err != nil {
		return tgbotapi.InlineKeyboardMarkup{}, err
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(data("⬅️ Back", back)))
	return tgbotapi.NewInlineKeyboardMarkup(rows...), nil
}

func subjectsText(board string, grade int, selected []string) string {
	chosen := "—"
	if len(selected) > 0 {
		names := label.SubjectsForCodes(selected)
		slices.Sort(names)
		chosen = h(strings.Join(names, ", "))
	}
	return fmt.Sprintf(
		"<b>Step 3/3 – Subjects</b>\nBoard: <b>%s</b>   |   Grade: <b>%d</b>\nPick one or more subjects, then press <b>Done</b>.\nSelected: %s",
		h(label.BoardForCode(board)), grade, chosen,
	)
}

func subjectsKeyboard(board string, grade int, selected []string) (tgbotapi.InlineKeyboardMarkup, error) {
	isSelected := make(map[string]bool, len(selected))
	for _, c := range selected {
		isSelected[c] = true
	}
	noop, _ := callback.EncodeNoop(callback.Noop{})

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, group := range label.SubjectGroups() {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(data("— "+group.Title+" —", noop)))
		for i := 0; i < len(group.Options); i += subjectsRow {
			var row []tgbotapi.InlineKeyboardButton
			for _, opt := range group.Options[i:min(i+subjectsRow, len(group.Options))] {
				p, err := callback.EncodeToggle(callback.Toggle{Code: opt.Code, Board: board, Grade: grade, Selected: selected})
				if err != nil {
					return tgbotapi.InlineKeyboardMarkup{}, err
				}
				row = append(row, data(tick(isSelected[opt.Code])+" "+opt.Label, p))
			}
			rows = append(rows, row)
		}
	}

	done, err := callback.EncodeDone(callback.Done{Board: board, Grade: grade, Selected: selected})
	if err != nil {
		return tgbotapi.InlineKeyboardMarkup{}, err
	}
	reset, err := callback.EncodeToggle(callback.Toggle{Code: callback.ResetCode, Board: board, Grade: grade, Selected: selected})
	if err != nil {
		return tgbotapi.InlineKeyboardMarkup{}, err
	}
	back, err := callback.EncodeBoard(callback.Board{Board: board})
	if err != nil {
		return tgbotapi.InlineKeyboardMarkup{}, err
	}
	rows = append(rows,
		tgbotapi.NewInlineKeyboardRow(data("Done ✅", done), data("Reset ↩️", reset)),
		tgbotapi.NewInlineKeyboardRow(data("⬅️ Back", back)),
	)
	return tgbotapi.NewInlineKeyboardMarkup(rows...), nil
}

func selectionText(board string, grade int, subjects []string) string {
	return fmt.Sprintf(
		"Great! We’ll tailor recommendations per subject.\nBoard: <b>%s</b> | Grade: <b>%d</b>\nSubjects: <b>%s</b>\n\nYou’ll be asked two quick preferences for each subject.",
		h(label.BoardForCode(board)), grade, h(strings.Join(subjects, ", ")),
	)
}

func prefText(p callback.Pref) string {
	subject, ok := label.SubjectForCode(p.Code)
	if !ok {
		subject = p.Code
	}
	return fmt.Sprintf(
		"<b>Subject:</b> %s\n<b>Board:</b> %s  |  <b>Grade:</b> %d\n\n"+
			"<b>1)</b> Does your child prefer one-to-one or group tuition?\n%s One-to-one    %s Group\n\n"+
			"<b>2)</b> How many lessons per week for this subject?\n%s 1   %s 2\n\n"+
			"Press <b>Next</b> when both are selected.",
		h(subject), h(label.BoardForCode(p.Board)), p.Grade,
		tick(p.Mode == callback.ModeOneToOne), tick(p.Mode == callback.ModeGroup),
		tick(p.Weekly == 1), tick(p.Weekly == 2),
	)
}

func prefKeyboard(p callback.Pref) (tgbotapi.InlineKeyboardMarkup, error) {
	with := func(mode string, weekly int) (string, error) {
		q := p
		q.Mode, q.Weekly = mode, weekly
		return callback.EncodePref(q)
	}
	type button struct {
		text   string
		mode   string
		weekly int
		on     bool
	}
	layout := [][]button{
		{
			{"One-to-one", callback.ModeOneToOne, p.Weekly, p.Mode == callback.ModeOneToOne},
			{"Group", callback.ModeGroup, p.Weekly, p.Mode == callback.ModeGroup},
		},
		{
			{"1", p.Mode, 1, p.Weekly == 1},
			{"2", p.Mode, 2, p.Weekly == 2},
		},
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, line := range layout {
		var row []tgbotapi.InlineKeyboardButton
		for _, b := range line {
			payload, err := with(b.mode, b.weekly)
			if err != nil {
				return tgbotapi.InlineKeyboardMarkup{}, err
			}
			row = append(row, data(tick(b.on)+" "+b.text, payload))
		}
		rows = append(rows, row)
	}
	next, err := callback.EncodePrefNext(callback.PrefNext(p))
	if err != nil {
		return tgbotapi.InlineKeyboardMarkup{}, err
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(data("Next ▶️", next)))
	return tgbotapi.NewInlineKeyboardMarkup(rows...), nil
}

func overviewText(board string, grade int, subjects []string, firstPhoto string) string {
	head := fmt.Sprintf(
		"Thanks! Here are the best matches for:\nBoard: <b>%s</b> | Grade: <b>%d</b>\nSubjects: <b>%s</b>",
		h(board), grade, h(strings.Join(subjects, ", ")),
	)
	if firstPhoto != "" {
		return h(firstPhoto) + "\n\n" + head
	}
	return head
}

// tutorCard renders the HTML card for t; link is the contact URL.
func tutorCard(t catalog.Tutor, link string) string {
	lines := []string{fmt.Sprintf("<b>%s</b> — %s", h(t.Name), h(strings.Join(t.Subjects, ", ")))}

	var facts []string
	if lo, hi, ok := t.GradeRange(); ok {
		facts = append(facts, fmt.Sprintf("Grades %d-%d", lo, hi))
	}
	if len(t.Boards) > 0 {
		facts = append(facts, "Boards "+h(strings.Join(t.Boards, ", ")))
	}
	if len(facts) > 0 {
		lines = append(lines, "  "+strings.Join(facts, " | "))
	}
	if t.Bio != "" {
		lines = append(lines, "  "+h(t.Bio))
	}
	if len(t.Qualifications) > 0 {
		lines = append(lines, "  Qualifications: "+h(strings.Join(t.Qualifications, ", ")))
	}
	lines = append(lines, fmt.Sprintf(`  <a href="%s">WhatsApp</a>`, h(link)))
	return strings.Join(lines, "\n")
}

func cardKeyboard(t catalog.Tutor, link string, chosen bool) tgbotapi.InlineKeyboardMarkup {
	row := []tgbotapi.InlineKeyboardButton{tgbotapi.NewInlineKeyboardButtonURL("💬 Contact", link)}
	if p, err := callback.EncodeSelect(callback.Select{TutorID: t.Key()}); err == nil {
		text := unchecked + " Choose"
		if chosen {
			text = checked + " Chosen"
		}
		row = append(row, data(text, p))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

func shortlistKeyboard() tgbotapi.InlineKeyboardMarkup {
	send, _ := callback.EncodeSendLinks(callback.SendLinks{})
	restart, _ := callback.EncodeRestart(callback.Restart{})
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(data("📨 Send links", send)),
		tgbotapi.NewInlineKeyboardRow(data("🔄 Start over", restart)),
	)
}

func restartKeyboard() tgbotapi.InlineKeyboardMarkup {
	restart, _ := callback.EncodeRestart(callback.Restart{})
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(data("🔄 Start over", restart)))
}

type shortlistEntry struct {
	tutor catalog.Tutor
	link  string
}

func linksText(entries []shortlistEntry) string {
	var b strings.Builder
	b.WriteString("<b>Your shortlist</b>\nTap a name to message the tutor on WhatsApp:\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "\n• <a href=\"%s\">%s</a> — %s", h(e.link), h(e.tutor.Name), h(strings.Join(e.tutor.Subjects, ", ")))
	}
	return b.String()
}
