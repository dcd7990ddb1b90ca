package flow

import (
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/kwportal/igcse-tutor-bot/internal/callback"
	"github.com/kwportal/igcse-tutor-bot/internal/catalog"
	"github.com/kwportal/igcse-tutor-bot/internal/config"
	"github.com/kwportal/igcse-tutor-bot/internal/contact"
	"github.com/kwportal/igcse-tutor-bot/internal/idempotency"
	"github.com/kwportal/igcse-tutor-bot/internal/label"
	"github.com/kwportal/igcse-tutor-bot/internal/matcher"
	"github.com/kwportal/igcse-tutor-bot/internal/session"
)

// sendResults answers a completed request with an overview and one card per
// matched tutor. A repeated completion of the same preference message within
// the idempotency window sends nothing.
func (e *Engine) sendResults(c *cbTurn, boardCode string, grade int) {
	board := label.BoardForCode(boardCode)
	sel := c.sess.Current()
	subjects := sel.Subjects

	sig := idempotency.CompletionSignature(c.messageID, board, grade, subjects)
	claimed, err := e.guard.Claim(c.ctx, c.chatID, sig)
	if err != nil {
		e.log.WithError(err).WarnContext(c.ctx, "Idempotency check failed, sending anyway")
		claimed = true
	}
	if !claimed {
		if e.metrics != nil {
			e.metrics.RecordDuplicate()
		}
		e.log.InfoContext(c.ctx, "Duplicate completion suppressed", "signature", sig)
		c.out.Action = ActionDuplicate
		return
	}

	reqs := make([]matcher.SubjectRequest, 0, len(subjects))
	for _, s := range subjects {
		p := sel.Prefs[s]
		reqs = append(reqs, matcher.SubjectRequest{Subject: s, Mode: p.Mode, LessonsPerWeek: p.LessonsPerWeek})
	}
	matches := e.matcher.CollectPreferred(c.ctx, reqs, grade, board, e.limit)

	c.sess.Stage = session.StageResultsShown
	c.sess.SelectedTeachers = nil
	c.sess.Results = nil

	if len(matches) == 0 {
		msg := tgbotapi.NewMessage(c.chatID, TextNoMatches)
		msg.ReplyMarkup = restartKeyboard()
		e.send(c.turn, msg)
		c.out.Action = ActionNoMatches
		return
	}

	overview := tgbotapi.NewMessage(c.chatID, overviewText(board, grade, subjects, matches[0].PhotoURL))
	overview.ParseMode = tgbotapi.ModeHTML
	e.send(c.turn, overview)

	for _, t := range matches {
		link := e.contactURL(c.turn, t)
		e.sendCard(c.turn, t, link)
		c.sess.Results = append(c.sess.Results, t.Key())
	}

	hint := tgbotapi.NewMessage(c.chatID, TextShortlistHint)
	hint.ParseMode = tgbotapi.ModeHTML
	hint.ReplyMarkup = shortlistKeyboard()
	e.send(c.turn, hint)

	e.log.InfoContext(c.ctx, "Results sent",
		"board", board,
		"grade", grade,
		"subjects", subjects,
		"matches", len(matches),
	)
	c.out.Action = ActionResultsSent
	c.out.Matches = len(matches)
}

// sendCard sends the tutor's photo with the card as caption, or the card as
// text when there is no photo or the caption would be too long.
func (e *Engine) sendCard(t *turn, tutor catalog.Tutor, link string) {
	card := tutorCard(tutor, link)
	kb := cardKeyboard(tutor, link, false)

	if tutor.PhotoURL != "" && utf8.RuneCountInString(card) <= config.TelegramMaxCaptionLength {
		photo := tgbotapi.NewPhoto(t.chatID, tgbotapi.FileURL(tutor.PhotoURL))
		photo.Caption = card
		photo.ParseMode = tgbotapi.ModeHTML
		photo.ReplyMarkup = kb
		e.send(t, photo)
		return
	}
	msg := tgbotapi.NewMessage(t.chatID, card)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = kb
	e.send(t, msg)
}

// contactURL returns the link that opens a WhatsApp chat with tutor,
// prefilled with the parent's request.
func (e *Engine) contactURL(t *turn, tutor catalog.Tutor) string {
	var (
		board    string
		grade    int
		subjects []string
	)
	if sel := t.sess.Current(); sel != nil {
		board, grade, subjects = sel.Board, sel.Grade, sel.Subjects
	}

	number := tutor.Contact.Number()
	if contact.Digits(number) == "" {
		number = e.portalNumber
	}
	tok := contact.Token{
		UserID:    t.userID,
		Username:  t.username,
		TeacherID: tutor.Key(),
		WA:        number,
		Text:      contact.PrefillText(t.sess.ParentName(), tutor.Name, subjects, board, grade),
	}
	link, err := e.linker.ContactURL(tok)
	if err != nil {
		e.log.WithError(err).WarnContext(t.ctx, "Falling back to a direct WhatsApp link", "teacher_id", tutor.Key())
		return contact.Link(number, tok.Text)
	}
	return link
}

func (e *Engine) onSelect(c *cbTurn, p callback.Select) bool {
	tutor, ok := e.matcher.Catalog().ByID(p.TutorID)
	if !ok {
		e.answer(c, TextTutorGone)
		c.out.Action = ActionTeacherUnknown
		return false
	}

	chosen := c.sess.ToggleTeacher(tutor.Key())
	if chosen {
		e.answer(c, TextAdded)
	} else {
		e.answer(c, TextRemoved)
	}
	c.sess.Stage = session.StageTeacherSelection

	kb := cardKeyboard(tutor, e.contactURL(c.turn, tutor), chosen)
	e.send(c.turn, tgbotapi.NewEditMessageReplyMarkup(c.chatID, c.messageID, kb))
	c.out.Action = ActionTeacherToggled
	return true
}

func (e *Engine) onSendLinks(c *cbTurn) bool {
	var entries []shortlistEntry
	for _, key := range c.sess.SelectedTeachers {
		tutor, ok := e.matcher.Catalog().ByID(key)
		if !ok {
			continue
		}
		entries = append(entries, shortlistEntry{tutor: tutor, link: e.contactURL(c.turn, tutor)})
	}
	if len(entries) == 0 {
		e.answer(c, TextNeedTeacher)
		c.out.Action = ActionNoTeachersChosen
		return false
	}
	e.answer(c, "")

	msg := tgbotapi.NewMessage(c.chatID, linksText(entries))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	msg.ReplyMarkup = restartKeyboard()
	e.send(c.turn, msg)

	c.sess.Stage = session.StageLinkSent
	c.out.Action = ActionLinksSent
	c.out.Matches = len(entries)
	return true
}
