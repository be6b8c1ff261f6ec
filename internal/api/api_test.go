package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/BTreeMap/DailyBoost/internal/bot"
	"github.com/BTreeMap/DailyBoost/internal/flow"
	"github.com/BTreeMap/DailyBoost/internal/messaging"
	"github.com/BTreeMap/DailyBoost/internal/models"
	"github.com/BTreeMap/DailyBoost/internal/store"
	"github.com/BTreeMap/DailyBoost/internal/testutil"
	"github.com/BTreeMap/DailyBoost/internal/twiliowhatsapp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDate = "2024-03-10"

type countingSender struct {
	mu    sync.Mutex
	users []string
}

func (s *countingSender) SendReply(ctx context.Context, userID string, reply models.Reply) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = append(s.users, userID)
	return nil
}

func newTestServer(t *testing.T, opts ...bot.Option) (*Server, *store.InMemoryStore) {
	t.Helper()
	st := store.NewInMemoryStore()
	clock := testutil.FixedClock(testDate)
	engine := flow.NewEngine(st, flow.NewMemoryStateManager(), flow.WithClock(clock))
	router := bot.NewRouter(st, engine, append([]bot.Option{bot.WithClock(clock)}, opts...)...)
	s := NewServer(st, router, nil)
	s.now = clock
	return s, st
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

func TestHealthHandler(t *testing.T) {
	s, st := newTestServer(t)
	testutil.SeedUser(t, st, "u1", "Ana")

	rr := serve(s, testutil.CreateHTTPRequest(t, http.MethodGet, "/health", nil))
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "health")
	resp := testutil.AssertJSONResponse(t, rr, "healthy")
	assert.EqualValues(t, 1, resp["users"])

	rr = serve(s, testutil.CreateHTTPRequest(t, http.MethodPost, "/health", nil))
	testutil.AssertHTTPStatus(t, http.StatusMethodNotAllowed, rr.Code, "health POST")
}

func TestEventsHandler_Onboarding(t *testing.T) {
	s, st := newTestServer(t)

	rr := serve(s, testutil.CreateHTTPRequest(t, http.MethodPost, "/events", models.Event{UserID: "u1", Payload: "/start"}))
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "start")
	resp := testutil.AssertJSONResponse(t, rr, "ok")
	result, ok := resp["result"].(map[string]interface{})
	require.True(t, ok)
	replies, ok := result["replies"].([]interface{})
	require.True(t, ok)
	assert.NotEmpty(t, replies)

	// Onboarding stores the user only after the last step.
	u, err := st.GetUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestEventsHandler_BadRequests(t *testing.T) {
	s, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodPost, "/events", strings.NewReader("{not json"))
	require.NoError(t, err)
	testutil.AssertHTTPStatus(t, http.StatusBadRequest, serve(s, req).Code, "invalid json")

	rr := serve(s, testutil.CreateHTTPRequest(t, http.MethodPost, "/events", models.Event{Payload: "/start"}))
	testutil.AssertHTTPStatus(t, http.StatusBadRequest, rr.Code, "missing user")
	testutil.AssertJSONResponse(t, rr, "error")

	rr = serve(s, testutil.CreateHTTPRequest(t, http.MethodPost, "/events", models.Event{UserID: "u1", Kind: "sticker", Payload: "x"}))
	testutil.AssertHTTPStatus(t, http.StatusBadRequest, rr.Code, "bad kind")

	rr = serve(s, testutil.CreateHTTPRequest(t, http.MethodGet, "/events", nil))
	testutil.AssertHTTPStatus(t, http.StatusMethodNotAllowed, rr.Code, "GET events")
	assert.Equal(t, http.MethodPost, rr.Header().Get("Allow"))
}

func TestEventsHandler_ButtonEvent(t *testing.T) {
	s, st := newTestServer(t)
	testutil.SeedUser(t, st, "u1", "Ana")
	ids := testutil.SeedHabits(t, st, "u1", "Walk")

	payload := flow.HabitTogglePayload(ids[0], true)
	rr := serve(s, testutil.CreateHTTPRequest(t, http.MethodPost, "/events", models.Event{UserID: "u1", Kind: models.EventButton, Payload: payload}))
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "toggle")

	rows, err := st.ListHabitLogsForDate(context.Background(), "u1", testDate)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Completed)
}

func TestStatsHandler(t *testing.T) {
	s, st := newTestServer(t)
	ctx := context.Background()

	rr := serve(s, testutil.CreateHTTPRequest(t, http.MethodGet, "/stats", nil))
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "global stats")

	rr = serve(s, testutil.CreateHTTPRequest(t, http.MethodGet, "/stats?user_id=ghost", nil))
	testutil.AssertHTTPStatus(t, http.StatusNotFound, rr.Code, "unknown user")

	testutil.SeedUser(t, st, "u1", "Ana")
	ids := testutil.SeedHabits(t, st, "u1", "Walk", "Read")
	require.NoError(t, st.UpsertHabitLog(ctx, "u1", ids[0], testDate, true))
	require.NoError(t, st.UpsertHabitLog(ctx, "u1", ids[1], testDate, true))
	require.NoError(t, st.AddWaterLog(ctx, "u1", testDate, 500))

	rr = serve(s, testutil.CreateHTTPRequest(t, http.MethodGet, "/stats?user_id=u1", nil))
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "user stats")
	var resp struct {
		Status string    `json:"status"`
		Result UserStats `json:"result"`
	}
	testutil.MustUnmarshalJSON(t, rr.Body.Bytes(), &resp)
	assert.Equal(t, testDate, resp.Result.Date)
	assert.Equal(t, 1, resp.Result.Streak)
	assert.Len(t, resp.Result.Today, 2)
	assert.Equal(t, 2, resp.Result.Overall.CompletedLogs)
	assert.Equal(t, 500, resp.Result.Wellness.WaterML)
	assert.Contains(t, resp.Result.Badge, "LEGEND")
}

func TestRunCheckinsHandler(t *testing.T) {
	s, _ := newTestServer(t)
	rr := serve(s, testutil.CreateHTTPRequest(t, http.MethodPost, "/checkins/run", nil))
	testutil.AssertHTTPStatus(t, http.StatusConflict, rr.Code, "no delivery")

	sender := &countingSender{}
	s, st := newTestServer(t, bot.WithSender(sender))
	testutil.SeedUser(t, st, "u1", "Ana")
	testutil.SeedHabits(t, st, "u1", "Walk")
	testutil.SeedUser(t, st, "u2", "Ben")

	rr = serve(s, testutil.CreateHTTPRequest(t, http.MethodPost, "/checkins/run", nil))
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "run")
	assert.Equal(t, []string{"u1"}, sender.users)
}

func TestTwilioWebhookRoute(t *testing.T) {
	st := store.NewInMemoryStore()
	router := bot.NewRouter(st, flow.NewEngine(st, flow.NewMemoryStateManager()))
	twilio := messaging.NewTwilioService(twiliowhatsapp.NewMockClient())
	s := NewServer(st, router, twilio)

	form := url.Values{"From": {"whatsapp:+15551234567"}, "Body": {"/help"}, "MessageSid": {"SM1"}}
	req, err := http.NewRequest(http.MethodPost, "/twilio/webhook", strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rr := serve(s, req)
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "webhook")
	r := <-twilio.Responses()
	assert.Equal(t, "SM1", r.ID)

	s2, _ := newTestServer(t)
	rr = serve(s2, req)
	testutil.AssertHTTPStatus(t, http.StatusNotFound, rr.Code, "webhook without twilio")
}

func TestRequestID(t *testing.T) {
	s, _ := newTestServer(t)

	rr := serve(s, testutil.CreateHTTPRequest(t, http.MethodGet, "/health", nil))
	assert.True(t, strings.HasPrefix(rr.Header().Get(RequestIDHeader), "req_"))

	req := testutil.CreateHTTPRequest(t, http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "abc")
	rr = serve(s, req)
	assert.Equal(t, "abc", rr.Header().Get(RequestIDHeader))
}

func TestOpenStoreAndTransport(t *testing.T) {
	st, err := openStore(nil)
	require.NoError(t, err)
	_, isMem := st.(*store.InMemoryStore)
	assert.True(t, isMem)

	st, err = openStore([]store.Option{store.WithSQLiteDSN(t.TempDir() + "/db.sqlite")})
	require.NoError(t, err)
	defer st.Close()
	_, isOutbox := st.(store.OutboxRepo)
	assert.True(t, isOutbox)

	svc, tw, err := openTransport(context.Background(), Opts{Transport: TransportNone}, nil, nil)
	require.NoError(t, err)
	assert.Nil(t, svc)
	assert.Nil(t, tw)

	_, _, err = openTransport(context.Background(), Opts{Transport: "carrier-pigeon"}, nil, nil)
	assert.ErrorIs(t, err, ErrUnknownTransport)
}
