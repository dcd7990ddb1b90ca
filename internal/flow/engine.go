// Package flow runs the guided conversation: parent name, board, grade,
// subjects, per-subject preferences, results and the tutor shortlist.
//
// Outbound calls are best effort. A failed Bot API call is logged and
// counted by the telegram client and the conversation carries on.
package flow

import (
	"context"
	"fmt"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/kwportal/igcse-tutor-bot/internal/contact"
	"github.com/kwportal/igcse-tutor-bot/internal/ctxutil"
	"github.com/kwportal/igcse-tutor-bot/internal/idempotency"
	"github.com/kwportal/igcse-tutor-bot/internal/logger"
	"github.com/kwportal/igcse-tutor-bot/internal/matcher"
	"github.com/kwportal/igcse-tutor-bot/internal/metrics"
	"github.com/kwportal/igcse-tutor-bot/internal/session"
	"github.com/kwportal/igcse-tutor-bot/internal/telegram"
)

// Update kinds, also used as metric labels.
const (
	KindMessage  = "message"
	KindCallback = "callback"
	KindOther    = "other"
)

// Action is what the engine did with an update.
type Action string

const (
	ActionIgnored          Action = "ignored"
	ActionRestarted        Action = "restarted"
	ActionNameSaved        Action = "name_saved"
	ActionGuided           Action = "guided"
	ActionNoop             Action = "noop"
	ActionBoardChosen      Action = "board_chosen"
	ActionGradeChosen      Action = "grade_chosen"
	ActionSubjectsUpdated  Action = "subjects_updated"
	ActionSelectionFull    Action = "selection_full"
	ActionSelectionEmpty   Action = "selection_empty"
	ActionPrefsStarted     Action = "prefs_started"
	ActionPrefUpdated      Action = "pref_updated"
	ActionPrefIncomplete   Action = "pref_incomplete"
	ActionPrefSaved        Action = "pref_saved"
	ActionResultsSent      Action = "results_sent"
	ActionNoMatches        Action = "no_matches"
	ActionDuplicate        Action = "duplicate"
	ActionTeacherToggled   Action = "teacher_toggled"
	ActionTeacherUnknown   Action = "teacher_unknown"
	ActionLinksSent        Action = "links_sent"
	ActionNoTeachersChosen Action = "no_teachers_chosen"
	ActionBadPayload       Action = "bad_payload"
)

// Outcome reports the business result of one update.
type Outcome struct {
	Kind    string
	Action  Action
	ChatID  int64
	Matches int
	// DeliveryFailures counts Bot API calls that failed and were skipped.
	DeliveryFailures int
}

// Config holds an Engine's collaborators.
type Config struct {
	Sessions session.Store
	Guard    idempotency.Guard
	Matcher  *matcher.Matcher
	Sender   telegram.Sender
	Linker   *contact.Linker
	Logger   *logger.Logger
	Metrics  *metrics.Metrics

	// MatchesPerResult caps the tutors sent for one completed request.
	MatchesPerResult int
	// PortalNumber receives contact links of tutors without a number.
	PortalNumber string
}

const chatLocks = 64

// Engine advances per-chat sessions from Telegram updates.
type Engine struct {
	sessions     session.Store
	guard        idempotency.Guard
	matcher      *matcher.Matcher
	sender       telegram.Sender
	linker       *contact.Linker
	log          *logger.Logger
	metrics      *metrics.Metrics
	limit        int
	portalNumber string

	// Updates of one chat are applied one at a time within this process.
	locks [chatLocks]sync.Mutex
}

// New creates an Engine.
func New(cfg Config) *Engine {
	limit := cfg.MatchesPerResult
	if limit <= 0 {
		limit = matcher.DefaultLimit
	}
	linker := cfg.Linker
	if linker == nil {
		linker = contact.NewLinker(contact.NewSigner(""), "")
	}
	return &Engine{
		sessions:     cfg.Sessions,
		guard:        cfg.Guard,
		matcher:      cfg.Matcher,
		sender:       cfg.Sender,
		linker:       linker,
		log:          cfg.Logger.WithModule("flow"),
		metrics:      cfg.Metrics,
		limit:        limit,
		portalNumber: cfg.PortalNumber,
	}
}

// turn is the state of one update being handled.
type turn struct {
	ctx      context.Context
	chatID   int64
	userID   int64
	username string
	sess     *session.Session
	out      *Outcome
}

// HandleUpdate processes one update. The returned error is set only when
// session state could not be read or written; delivery failures are
// reported through Outcome.DeliveryFailures.
func (e *Engine) HandleUpdate(ctx context.Context, u tgbotapi.Update) (Outcome, error) {
	switch {
	case u.CallbackQuery != nil:
		return e.handleCallback(ctx, u.CallbackQuery)
	case u.Message != nil:
		return e.handleMessage(ctx, u.Message)
	case u.EditedMessage != nil:
		return e.handleMessage(ctx, u.EditedMessage)
	}
	return Outcome{Kind: KindOther, Action: ActionIgnored}, nil
}

// begin locks the chat and loads its session. The caller must defer the
// returned unlock; a panic further down the turn must not leave the chat
// locked.
func (e *Engine) begin(ctx context.Context, chatID int64, from *tgbotapi.User, out *Outcome) (*turn, func(), error) {
	mu := &e.locks[uint64(chatID)%chatLocks]
	mu.Lock()

	ctx = ctxutil.WithChatID(ctx, chatID)
	t := &turn{ctx: ctx, chatID: chatID, out: out}
	if from != nil {
		t.userID = from.ID
		t.username = from.UserName
		t.ctx = ctxutil.WithUserID(t.ctx, from.ID)
	}

	sess, err := session.Load(ctx, e.sessions, chatID)
	if err != nil {
		mu.Unlock()
		return nil, nil, fmt.Errorf("load session %d: %w", chatID, err)
	}
	t.sess = sess
	return t, mu.Unlock, nil
}

// save persists the turn's session. It runs while the chat is still locked.
func (e *Engine) save(t *turn) error {
	if err := e.sessions.Put(t.ctx, t.chatID, t.sess); err != nil {
		return fmt.Errorf("save session %d: %w", t.chatID, err)
	}
	return nil
}

func (e *Engine) handleMessage(ctx context.Context, msg *tgbotapi.Message) (Outcome, error) {
	out := Outcome{Kind: KindMessage, Action: ActionIgnored}
	if msg.Chat == nil {
		return out, nil
	}
	out.ChatID = msg.Chat.ID

	t, unlock, err := e.begin(ctx, msg.Chat.ID, msg.From, &out)
	if err != nil {
		return out, err
	}
	defer unlock()

	text := strings.TrimSpace(msg.Text)
	switch {
	case isRestartCommand(text):
		e.restart(t)
	case t.sess.Stage == session.StageAskName && text != "":
		t.sess.Name = parentName(text)
		t.sess.Stage = session.StageFlow
		e.askBoard(t, TextAskBoard)
		out.Action = ActionNameSaved
	default:
		e.askBoard(t, TextGuided)
		out.Action = ActionGuided
		return out, nil
	}
	return out, e.save(t)
}

func isRestartCommand(text string) bool {
	cmd, _, _ := strings.Cut(strings.ToLower(text), "@")
	switch cmd {
	case "/start", "start", "/restart":
		return true
	}
	return false
}

const maxNameRunes = 64

func parentName(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if r := []rune(text); len(r) > maxNameRunes {
		text = string(r[:maxNameRunes])
	}
	return text
}

func (e *Engine) restart(t *turn) {
	t.sess.Restart()
	e.send(t, tgbotapi.NewMessage(t.chatID, TextWelcome))
	t.out.Action = ActionRestarted
}

func (e *Engine) askBoard(t *turn, text string) {
	kb, err := boardKeyboard()
	if err != nil {
		e.log.WithError(err).ErrorContext(t.ctx, "Failed to build board keyboard")
		return
	}
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = kb
	e.send(t, msg)
}

// send performs one Bot API call and counts a failure on the outcome.
func (e *Engine) send(t *turn, c tgbotapi.Chattable) bool {
	if err := e.sender.Send(t.ctx, c); err != nil {
		t.out.DeliveryFailures++
		e.log.WithError(err).DebugContext(t.ctx, "Delivery skipped",
			"method", telegram.MethodName(c),
			"chat_id", t.chatID,
		)
		return false
	}
	return true
}
