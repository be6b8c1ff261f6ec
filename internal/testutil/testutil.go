// Package testutil provides common test utilities and helpers for DailyBoost tests.
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/BTreeMap/DailyBoost/internal/models"
	"github.com/BTreeMap/DailyBoost/internal/store"
)

// TB is the subset of testing.TB the helpers need, so they can be tested
// with a recording fake.
type TB interface {
	Helper()
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
}

// ErrGatewayDown is returned by FlakyGateway writes while failing.
var ErrGatewayDown = errors.New("gateway unavailable")

// FlakyGateway wraps an in-memory store, counts user writes and can be told
// to fail every write.
type FlakyGateway struct {
	*store.InMemoryStore

	mu          sync.Mutex
	failWrites  bool
	createCalls int
	updateCalls int
}

// NewFlakyGateway creates a FlakyGateway over an empty in-memory store.
func NewFlakyGateway() *FlakyGateway {
	return &FlakyGateway{InMemoryStore: store.NewInMemoryStore()}
}

// SetFailWrites toggles write failures.
func (g *FlakyGateway) SetFailWrites(fail bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failWrites = fail
}

// UserWrites returns the number of CreateUser and UpdateUser calls so far.
func (g *FlakyGateway) UserWrites() (creates, updates int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.createCalls, g.updateCalls
}

func (g *FlakyGateway) failing() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.failWrites
}

func (g *FlakyGateway) CreateUser(ctx context.Context, userID, username, preferredName string) error {
	g.mu.Lock()
	g.createCalls++
	g.mu.Unlock()
	if g.failing() {
		return ErrGatewayDown
	}
	return g.InMemoryStore.CreateUser(ctx, userID, username, preferredName)
}

func (g *FlakyGateway) UpdateUser(ctx context.Context, userID string, upd models.UserUpdate) error {
	g.mu.Lock()
	g.updateCalls++
	g.mu.Unlock()
	if g.failing() {
		return ErrGatewayDown
	}
	return g.InMemoryStore.UpdateUser(ctx, userID, upd)
}

func (g *FlakyGateway) UpsertMood(ctx context.Context, userID, date string, score int, note string) error {
	if g.failing() {
		return ErrGatewayDown
	}
	return g.InMemoryStore.UpsertMood(ctx, userID, date, score, note)
}

func (g *FlakyGateway) AddHabit(ctx context.Context, userID, name string) (int64, error) {
	if g.failing() {
		return 0, ErrGatewayDown
	}
	return g.InMemoryStore.AddHabit(ctx, userID, name)
}

func (g *FlakyGateway) DeleteHabit(ctx context.Context, userID string, habitID int64) error {
	if g.failing() {
		return ErrGatewayDown
	}
	return g.InMemoryStore.DeleteHabit(ctx, userID, habitID)
}

func (g *FlakyGateway) UpsertHabitLog(ctx context.Context, userID string, habitID int64, date string, completed bool) error {
	if g.failing() {
		return ErrGatewayDown
	}
	return g.InMemoryStore.UpsertHabitLog(ctx, userID, habitID, date, completed)
}

// FixedClock returns a clock pinned to noon UTC on date (YYYY-MM-DD).
func FixedClock(date string) func() time.Time {
	t, err := time.Parse(models.DateLayout, date)
	if err != nil {
		panic("testutil.FixedClock: " + err.Error())
	}
	t = t.Add(12 * time.Hour)
	return func() time.Time { return t }
}

// SeedUser creates an onboarded user with default settings.
func SeedUser(t TB, gw store.UserRepo, userID, name string) {
	t.Helper()
	if err := gw.CreateUser(context.Background(), userID, "", name); err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
}

// SeedHabits adds habits for userID and returns their ids in order.
func SeedHabits(t TB, gw store.HabitRepo, userID string, names ...string) []int64 {
	t.Helper()
	ids := make([]int64, 0, len(names))
	for _, n := range names {
		id, err := gw.AddHabit(context.Background(), userID, n)
		if err != nil {
			t.Fatalf("failed to seed habit %q: %v", n, err)
		}
		ids = append(ids, id)
	}
	return ids
}

// AssertHTTPStatus checks the HTTP status code and fails the test if it doesn't match.
func AssertHTTPStatus(t TB, expected, actual int, context string) {
	t.Helper()
	if actual != expected {
		t.Errorf("%s: expected status %d, got %d", context, expected, actual)
	}
}

// AssertJSONResponse decodes JSON response and validates the status field.
func AssertJSONResponse(t TB, rr *httptest.ResponseRecorder, expectedStatus string) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode JSON response: %v", err)
		return nil
	}

	if status, ok := response["status"].(string); ok {
		if status != expectedStatus {
			t.Errorf("expected status '%s', got '%s'", expectedStatus, status)
		}
	} else {
		t.Errorf("response missing or invalid 'status' field")
	}

	return response
}

// CreateHTTPRequest creates an HTTP request with optional JSON body for testing.
func CreateHTTPRequest(t TB, method, url string, body interface{}) *http.Request {
	t.Helper()
	reqBody := bytes.NewBuffer(nil)
	if body != nil {
		reqBody = bytes.NewBuffer(MustMarshalJSON(t, body))
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		t.Fatalf("failed to create HTTP request: %v", err)
		return nil
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

// MustMarshalJSON marshals an object to JSON and fails test on error.
func MustMarshalJSON(t TB, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal JSON: %v", err)
	}
	return data
}

// MustUnmarshalJSON unmarshals JSON data into target and fails test on error.
func MustUnmarshalJSON(t TB, data []byte, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(data, target); err != nil {
		t.Fatalf("failed to unmarshal JSON: %v", err)
	}
}
