package webhook

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kwportal/igcse-tutor-bot/internal/config"
	"github.com/kwportal/igcse-tutor-bot/internal/ctxutil"
	"github.com/kwportal/igcse-tutor-bot/internal/flow"
	"github.com/kwportal/igcse-tutor-bot/internal/logger"
	"github.com/kwportal/igcse-tutor-bot/internal/metrics"
	"github.com/kwportal/igcse-tutor-bot/internal/ratelimit"
)

type stubProcessor struct {
	mu      sync.Mutex
	updates []tgbotapi.Update
	chatIDs []int64
	err     error
	panic   bool
}

func (s *stubProcessor) HandleUpdate(ctx context.Context, u tgbotapi.Update) (flow.Outcome, error) {
	s.mu.Lock()
	s.updates = append(s.updates, u)
	chatID, _ := ctxutil.GetChatID(ctx)
	s.chatIDs = append(s.chatIDs, chatID)
	s.mu.Unlock()

	if s.panic {
		panic("boom")
	}
	return flow.Outcome{Action: flow.ActionNameSaved}, s.err
}

func (s *stubProcessor) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.updates)
}

const messageUpdate = `{"update_id":100,"message":{"message_id":5,"from":{"id":7,"is_bot":false,"first_name":"Mona"},
"chat":{"id":4242,"type":"private"},"date":1700000000,"text":"/start"}}`

const callbackUpdate = `{"update_id":101,"callback_query":{"id":"cb1","from":{"id":7,"is_bot":false,"first_name":"Mona"},
"message":{"message_id":9,"chat":{"id":4242,"type":"private"},"date":1700000000},"data":"B|C"}}`

const groupUpdate = `{"update_id":102,"message":{"message_id":6,"chat":{"id":-100,"type":"group"},"date":1700000000,"text":"hi"}}`

func setupRouter(t *testing.T, cfg HandlerConfig) (*gin.Engine, *metrics.Metrics) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	m := metrics.New(prometheus.NewRegistry())
	cfg.Metrics = m
	cfg.Logger = logger.New("error")
	if cfg.BotConfig.WebhookTimeout == 0 {
		cfg.BotConfig = config.DefaultBotConfig()
	}

	router := gin.New()
	router.POST("/api/webhook", NewHandler(cfg).Handle)
	return router, m
}

func post(router *gin.Engine, body, secret string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set(SecretHeader, secret)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandle_Message(t *testing.T) {
	t.Parallel()
	p := &stubProcessor{}
	router, m := setupRouter(t, HandlerConfig{Processor: p})

	w := post(router, messageUpdate, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())

	require.Equal(t, 1, p.count())
	assert.Equal(t, "/start", p.updates[0].Message.Text)
	assert.Equal(t, int64(4242), p.chatIDs[0])
	assert.InDelta(t, 1, testutil.ToFloat64(m.WebhookUpdatesTotal.WithLabelValues(flow.KindMessage, ResultHandled)), 0)
}

func TestHandle_Callback(t *testing.T) {
	t.Parallel()
	p := &stubProcessor{}
	router, m := setupRouter(t, HandlerConfig{Processor: p})

	w := post(router, callbackUpdate, "")
	assert.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 1, p.count())
	assert.Equal(t, "B|C", p.updates[0].CallbackQuery.Data)
	assert.InDelta(t, 1, testutil.ToFloat64(m.WebhookUpdatesTotal.WithLabelValues(flow.KindCallback, ResultHandled)), 0)
}

func TestHandle_Secret(t *testing.T) {
	t.Parallel()
	p := &stubProcessor{}
	router, m := setupRouter(t, HandlerConfig{Secret: "hush", Processor: p})

	w := post(router, messageUpdate, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = post(router, messageUpdate, "wrong")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Zero(t, p.count())
	assert.InDelta(t, 2, testutil.ToFloat64(m.WebhookUpdatesTotal.WithLabelValues(flow.KindOther, ResultRejected)), 0)

	w = post(router, messageUpdate, "hush")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, p.count())
}

func TestHandle_FailuresStillAnswerOK(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		proc *stubProcessor
		body string
	}{
		{"malformed body", &stubProcessor{}, `{"update_id":`},
		{"processor error", &stubProcessor{err: errors.New("session store down")}, messageUpdate},
		{"processor panic", &stubProcessor{panic: true}, callbackUpdate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			router, m := setupRouter(t, HandlerConfig{Processor: tt.proc})

			w := post(router, tt.body, "")
			assert.Equal(t, http.StatusOK, w.Code)
			assert.JSONEq(t, `{"ok":true}`, w.Body.String())

			var errs float64
			for _, kind := range []string{flow.KindMessage, flow.KindCallback, flow.KindOther} {
				errs += testutil.ToFloat64(m.WebhookUpdatesTotal.WithLabelValues(kind, ResultError))
			}
			assert.InDelta(t, 1, errs, 0)
		})
	}
}

func TestHandle_ChatFilter(t *testing.T) {
	t.Parallel()
	p := &stubProcessor{}
	bot := config.DefaultBotConfig()
	bot.BlockedChatIDs = []int64{4242}
	router, m := setupRouter(t, HandlerConfig{Processor: p, BotConfig: bot})

	assert.Equal(t, http.StatusOK, post(router, groupUpdate, "").Code)
	assert.Equal(t, http.StatusOK, post(router, messageUpdate, "").Code)
	assert.Zero(t, p.count())
	assert.InDelta(t, 2, testutil.ToFloat64(m.WebhookUpdatesTotal.WithLabelValues(flow.KindMessage, ResultIgnored)), 0)
}

func TestHandle_RateLimit(t *testing.T) {
	t.Parallel()
	p := &stubProcessor{}
	limiter := ratelimit.NewKeyedLimiter(ratelimit.KeyedConfig{Name: "chat", Burst: 2, RefillRate: 0.001})
	router, m := setupRouter(t, HandlerConfig{Processor: p, UserLimiter: limiter})

	for range 4 {
		assert.Equal(t, http.StatusOK, post(router, messageUpdate, "").Code)
	}
	assert.Equal(t, 2, p.count())
	assert.InDelta(t, 2, testutil.ToFloat64(m.WebhookUpdatesTotal.WithLabelValues(flow.KindMessage, ResultRateLimited)), 0)
}

func TestHandle_DeadlineApplied(t *testing.T) {
	t.Parallel()
	bot := config.DefaultBotConfig()
	bot.WebhookTimeout = 50 * time.Millisecond

	var deadline time.Time
	var ok bool
	p := processorFunc(func(ctx context.Context, _ tgbotapi.Update) (flow.Outcome, error) {
		deadline, ok = ctx.Deadline()
		return flow.Outcome{}, nil
	})
	router, _ := setupRouter(t, HandlerConfig{Processor: p, BotConfig: bot})

	post(router, messageUpdate, "")
	require.True(t, ok)
	assert.WithinDuration(t, time.Now(), deadline, time.Second)
}

type processorFunc func(context.Context, tgbotapi.Update) (flow.Outcome, error)

func (f processorFunc) HandleUpdate(ctx context.Context, u tgbotapi.Update) (flow.Outcome, error) {
	return f(ctx, u)
}

func TestUpdateKindAndChat(t *testing.T) {
	t.Parallel()
	chat := &tgbotapi.Chat{ID: 1, Type: "private"}

	tests := []struct {
		name string
		u    tgbotapi.Update
		kind string
		chat *tgbotapi.Chat
	}{
		{"message", tgbotapi.Update{Message: &tgbotapi.Message{Chat: chat}}, flow.KindMessage, chat},
		{"edited", tgbotapi.Update{EditedMessage: &tgbotapi.Message{Chat: chat}}, flow.KindMessage, chat},
		{"callback", tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{Message: &tgbotapi.Message{Chat: chat}}}, flow.KindCallback, chat},
		{"inline callback", tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{InlineMessageID: "x"}}, flow.KindCallback, nil},
		{"other", tgbotapi.Update{}, flow.KindOther, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.kind, updateKind(tt.u))
			assert.Equal(t, tt.chat, updateChat(tt.u))
		})
	}
}
