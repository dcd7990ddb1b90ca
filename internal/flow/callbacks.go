package flow

import (
	"context"
	"slices"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/kwportal/igcse-tutor-bot/internal/callback"
	"github.com/kwportal/igcse-tutor-bot/internal/catalog"
	"github.com/kwportal/igcse-tutor-bot/internal/label"
	"github.com/kwportal/igcse-tutor-bot/internal/session"
)

// cbTurn is a turn started by a button press.
type cbTurn struct {
	*turn
	queryID   string
	messageID int
	answered  bool
}

func (e *Engine) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) (Outcome, error) {
	out := Outcome{Kind: KindCallback, Action: ActionIgnored}
	if cq.Message == nil || cq.Message.Chat == nil {
		// Inline-mode buttons carry no chat to answer in.
		_ = e.sender.Send(ctx, tgbotapi.NewCallback(cq.ID, ""))
		return out, nil
	}
	out.ChatID = cq.Message.Chat.ID

	t, unlock, err := e.begin(ctx, cq.Message.Chat.ID, cq.From, &out)
	if err != nil {
		_ = e.sender.Send(ctx, tgbotapi.NewCallback(cq.ID, ""))
		return out, err
	}
	defer unlock()
	c := &cbTurn{turn: t, queryID: cq.ID, messageID: cq.Message.MessageID}

	save := e.dispatch(c, cq.Data)
	if !c.answered {
		e.answer(c, "")
	}
	if !save {
		return out, nil
	}
	return out, e.save(t)
}

// dispatch applies one payload and reports whether the session changed.
func (e *Engine) dispatch(c *cbTurn, data string) bool {
	p, err := callback.Parse(data)
	if err != nil {
		e.log.WithError(err).WarnContext(c.ctx, "Unreadable button payload", "data", data)
		c.out.Action = ActionBadPayload
		return false
	}

	switch p := p.(type) {
	case callback.Noop:
		c.out.Action = ActionNoop
		return false
	case callback.Board:
		return e.onBoard(c, p)
	case callback.Grade:
		return e.onGrade(c, p)
	case callback.Toggle:
		return e.onToggle(c, p)
	case callback.Done:
		return e.onDone(c, p)
	case callback.Pref:
		return e.onPref(c, p)
	case callback.PrefNext:
		return e.onPrefNext(c, p)
	case callback.Select:
		return e.onSelect(c, p)
	case callback.SendLinks:
		return e.onSendLinks(c)
	case callback.Restart:
		e.answer(c, "")
		e.restart(c.turn)
		return true
	}
	return false
}

// answer acknowledges the button press, optionally with a toast.
func (e *Engine) answer(c *cbTurn, text string) {
	c.answered = true
	e.send(c.turn, tgbotapi.NewCallback(c.queryID, text))
}

func (e *Engine) edit(c *cbTurn, text string, kb *tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewEditMessageText(c.chatID, c.messageID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = kb
	e.send(c.turn, msg)
}

func (e *Engine) keyboardFailed(c *cbTurn, err error) bool {
	e.log.WithError(err).ErrorContext(c.ctx, "Failed to build keyboard")
	c.out.Action = ActionBadPayload
	return false
}

func (e *Engine) onBoard(c *cbTurn, p callback.Board) bool {
	kb, err := gradeKeyboard(p.Board)
	if err != nil {
		return e.keyboardFailed(c, err)
	}
	e.answer(c, "")
	c.sess.BoardCode = p.Board
	if c.sess.Stage == session.StageIdle || c.sess.Stage == session.StageAskName {
		c.sess.Stage = session.StageFlow
	}
	e.edit(c, TextAskGrade, &kb)
	c.out.Action = ActionBoardChosen
	return true
}

func (e *Engine) onGrade(c *cbTurn, p callback.Grade) bool {
	kb, err := subjectsKeyboard(p.Board, p.Grade, nil)
	if err != nil {
		return e.keyboardFailed(c, err)
	}
	e.answer(c, "")
	c.sess.BoardCode = p.Board
	c.sess.Grade = p.Grade
	c.sess.Stage = session.StageFlow
	e.edit(c, subjectsText(p.Board, p.Grade, nil), &kb)
	c.out.Action = ActionGradeChosen
	return true
}

func (e *Engine) onToggle(c *cbTurn, p callback.Toggle) bool {
	selected := p.Apply()
	if !callback.FitsSelection(p.Board, p.Grade, selected) {
		e.answer(c, TextSelectionFull)
		c.out.Action = ActionSelectionFull
		return false
	}
	kb, err := subjectsKeyboard(p.Board, p.Grade, selected)
	if err != nil {
		return e.keyboardFailed(c, err)
	}
	e.answer(c, "")
	e.edit(c, subjectsText(p.Board, p.Grade, selected), &kb)
	c.out.Action = ActionSubjectsUpdated
	return false
}

func (e *Engine) onDone(c *cbTurn, p callback.Done) bool {
	if len(p.Selected) == 0 {
		e.answer(c, TextNeedSubject)
		c.out.Action = ActionSelectionEmpty
		return false
	}
	e.answer(c, "")

	subjects := label.SubjectsForCodes(p.Selected)
	c.sess.BoardCode = p.Board
	c.sess.Grade = p.Grade
	c.sess.BeginSelection(label.BoardForCode(p.Board), p.Grade, p.Selected, subjects)

	empty := emptyKeyboard()
	e.send(c.turn, tgbotapi.NewEditMessageReplyMarkup(c.chatID, c.messageID, empty))
	e.edit(c, selectionText(p.Board, p.Grade, subjects), nil)

	e.askPref(c.turn, callback.Pref{Board: p.Board, Grade: p.Grade, Code: p.Selected[0], Rest: p.Selected[1:]})
	c.out.Action = ActionPrefsStarted
	return true
}

// askPref sends a fresh preference screen for p.Code.
func (e *Engine) askPref(t *turn, p callback.Pref) {
	kb, err := prefKeyboard(p)
	if err != nil {
		e.log.WithError(err).ErrorContext(t.ctx, "Failed to build preference keyboard", "code", p.Code)
		return
	}
	msg := tgbotapi.NewMessage(t.chatID, prefText(p))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = kb
	e.send(t, msg)
}

func (e *Engine) onPref(c *cbTurn, p callback.Pref) bool {
	kb, err := prefKeyboard(p)
	if err != nil {
		return e.keyboardFailed(c, err)
	}
	e.answer(c, "")
	e.edit(c, prefText(p), &kb)
	c.out.Action = ActionPrefUpdated
	return false
}

func (e *Engine) onPrefNext(c *cbTurn, p callback.PrefNext) bool {
	if !p.Complete() {
		e.answer(c, TextNeedBothPrefs)
		c.out.Action = ActionPrefIncomplete
		return false
	}
	e.answer(c, "")

	subject, _ := label.SubjectForCode(p.Code)
	sel := c.sess.Current()
	if sel == nil || sel.Board != label.BoardForCode(p.Board) || sel.Grade != p.Grade || !slices.Contains(sel.Codes, p.Code) {
		// The session was lost or belongs to another request: rebuild what the
		// button still knows.
		codes := append([]string{p.Code}, p.Rest...)
		c.sess.BeginSelection(label.BoardForCode(p.Board), p.Grade, codes, label.SubjectsForCodes(codes))
	}
	c.sess.RecordPref(p.Code, subject, session.Pref{
		Mode:           modeName(p.Mode),
		LessonsPerWeek: p.Weekly,
	})

	if len(p.Rest) > 0 {
		e.askPref(c.turn, callback.Pref{Board: p.Board, Grade: p.Grade, Code: p.Rest[0], Rest: p.Rest[1:]})
		e.edit(c, TextNextSubject, nil)
		c.out.Action = ActionPrefSaved
		return true
	}
	e.sendResults(c, p.Board, p.Grade)
	return true
}

func modeName(letter string) string {
	switch letter {
	case callback.ModeOneToOne:
		return catalog.ModeOneToOne
	case callback.ModeGroup:
		return catalog.ModeGroup
	}
	return ""
}
