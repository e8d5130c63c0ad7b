package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/crispydelights/storefront/internal/event"
	"github.com/crispydelights/storefront/internal/repository/memory"
	"github.com/crispydelights/storefront/pkg/httpclient"
	"github.com/crispydelights/storefront/pkg/logger"
)

// --- Mocks ---

type recorder struct {
	mu  sync.Mutex
	got []Notification
	err error
}

func (r *recorder) Publish(_ context.Context, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, n)
	return r.err
}

type mockEvents struct {
	mock.Mock
}

func (m *mockEvents) PublishNotification(ctx context.Context, data event.NotificationData) error {
	return m.Called(ctx, data).Error(0)
}

// --- Tests ---

func TestSessionSink_Levels(t *testing.T) {
	rec := &recorder{}
	d := NewDispatcher(logger.NewWithWriter("test", "error", io.Discard), rec)
	fixed := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return fixed }

	sink := d.ForSession("sess-1")
	ctx := context.Background()
	sink.Info(ctx, "Processing your order", "Please wait...")
	sink.Error(ctx, "Your cart is empty", "Add something")
	sink.Success(ctx, "Order confirmed!", "Order #1")

	require.Len(t, rec.got, 3)
	assert.Equal(t, LevelInfo, rec.got[0].Level)
	assert.Equal(t, LevelError, rec.got[1].Level)
	assert.Equal(t, LevelSuccess, rec.got[2].Level)
	for _, n := range rec.got {
		assert.Equal(t, "sess-1", n.SessionID)
		assert.NotEmpty(t, n.ID)
		assert.Equal(t, fixed, n.CreatedAt)
	}
	assert.Equal(t, "Your cart is empty", rec.got[1].Title)
	assert.Equal(t, "Add something", rec.got[1].Description)
}

func TestSessionSink_PublisherErrorIsLoggedAndOthersStillRun(t *testing.T) {
	failing := &recorder{err: errors.New("relay down")}
	ok := &recorder{}

	var logs bytes.Buffer
	d := NewDispatcher(logger.NewWithWriter("test", "warn", &logs), failing, ok)
	d.ForSession("sess-1").Info(context.Background(), "t", "d")

	assert.Len(t, ok.got, 1)
	assert.Contains(t, logs.String(), "failed to deliver notification")
	assert.Contains(t, logs.String(), "relay down")
}

func TestInboxPublisher_RoundTrip(t *testing.T) {
	l := logger.NewWithWriter("test", "error", io.Discard)
	inbox := NewInboxPublisher(memory.NewInbox(10), l)
	d := NewDispatcher(l, inbox)

	ctx := context.Background()
	d.ForSession("sess-1").Info(ctx, "first", "a")
	d.ForSession("sess-2").Error(ctx, "other", "b")
	d.ForSession("sess-1").Success(ctx, "second", "c")

	got, err := inbox.Drain(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].Title)
	assert.Equal(t, "second", got[1].Title)

	got, err = inbox.Drain(ctx, "sess-1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestInboxPublisher_SkipsUndecodable(t *testing.T) {
	ctx := context.Background()
	raw := memory.NewInbox(10)
	require.NoError(t, raw.Push(ctx, "sess-1", []byte("garbage")))

	inbox := NewInboxPublisher(raw, logger.NewWithWriter("test", "error", io.Discard))
	require.NoError(t, inbox.Publish(ctx, Notification{SessionID: "sess-1", Title: "ok"}))

	got, err := inbox.Drain(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ok", got[0].Title)
}

func TestLogPublisher(t *testing.T) {
	var logs bytes.Buffer
	p := NewLogPublisher(logger.NewWithWriter("test", "info", &logs))

	require.NoError(t, p.Publish(context.Background(), Notification{SessionID: "sess-1", Level: LevelSuccess, Title: "Order confirmed!"}))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(logs.Bytes(), &entry))
	assert.Equal(t, "notification", entry["msg"])
	assert.Equal(t, "Order confirmed!", entry["title"])
	assert.Equal(t, "success", entry["level"])
}

func TestWebhookPublisher_PostsJSON(t *testing.T) {
	var got Notification
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	client := httpclient.NewCircuitBreakerClient(
		httpclient.New(httpclient.DefaultConfig()),
		httpclient.DefaultCircuitBreakerConfig("notify-webhook-test"),
		logger.NewWithWriter("test", "error", io.Discard),
	)
	p := NewWebhookPublisher(client, srv.URL)

	err := p.Publish(context.Background(), Notification{ID: "n-1", SessionID: "sess-1", Level: LevelInfo, Title: "Processing your order"})
	require.NoError(t, err)
	assert.Equal(t, "n-1", got.ID)
	assert.Equal(t, "Processing your order", got.Title)
}

func TestWebhookPublisher_ClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":"INVALID_INPUT","message":"bad payload"}}`))
	}))
	defer srv.Close()

	p := NewWebhookPublisher(httpclient.New(httpclient.DefaultConfig()), srv.URL)

	err := p.Publish(context.Background(), Notification{ID: "n-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad payload")
}

func TestEventPublisher(t *testing.T) {
	events := new(mockEvents)
	events.On("PublishNotification", mock.Anything, mock.MatchedBy(func(d event.NotificationData) bool {
		return d.SessionID == "sess-1" && d.Level == "error" && d.Title == "Your cart is empty"
	})).Return(nil)

	p := NewEventPublisher(events)
	require.NoError(t, p.Publish(context.Background(), Notification{SessionID: "sess-1", Level: LevelError, Title: "Your cart is empty"}))

	events.AssertExpectations(t)
}
