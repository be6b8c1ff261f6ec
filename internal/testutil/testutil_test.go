package testutil

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/BTreeMap/DailyBoost/internal/models"
)

// mockTestingT records failures instead of stopping the test.
type mockTestingT struct {
	failed   bool
	errorMsg string
}

func (m *mockTestingT) Helper() {}

func (m *mockTestingT) Errorf(format string, args ...interface{}) {
	m.failed = true
	m.errorMsg = fmt.Sprintf(format, args...)
}

func (m *mockTestingT) Fatalf(format string, args ...interface{}) {
	m.failed = true
	m.errorMsg = fmt.Sprintf(format, args...)
}

func TestAssertHTTPStatus(t *testing.T) {
	tests := []struct {
		name       string
		expected   int
		actual     int
		shouldFail bool
	}{
		{name: "matching status codes", expected: 200, actual: 200},
		{name: "different status codes", expected: 200, actual: 404, shouldFail: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockT := &mockTestingT{}
			AssertHTTPStatus(mockT, tt.expected, tt.actual, "test context")
			if mockT.failed != tt.shouldFail {
				t.Errorf("failed = %v, want %v", mockT.failed, tt.shouldFail)
			}
		})
	}
}

func TestAssertJSONResponse(t *testing.T) {
	tests := []struct {
		name       string
		jsonBody   string
		shouldFail bool
	}{
		{name: "valid JSON with matching status", jsonBody: `{"status":"ok","result":"x"}`},
		{name: "valid JSON with different status", jsonBody: `{"status":"error"}`, shouldFail: true},
		{name: "invalid JSON", jsonBody: `{"status":}`, shouldFail: true},
		{name: "missing status field", jsonBody: `{"result":"x"}`, shouldFail: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockT := &mockTestingT{}
			rr := httptest.NewRecorder()
			rr.Body.WriteString(tt.jsonBody)

			response := AssertJSONResponse(mockT, rr, "ok")
			if mockT.failed != tt.shouldFail {
				t.Errorf("failed = %v (%s), want %v", mockT.failed, mockT.errorMsg, tt.shouldFail)
			}
			if !tt.shouldFail && response == nil {
				t.Error("Expected response map to be returned")
			}
		})
	}
}

func TestCreateHTTPRequest(t *testing.T) {
	req := CreateHTTPRequest(t, "POST", "/events", models.Event{UserID: "u1", Kind: models.EventText, Payload: "/help"})
	if req.Method != "POST" || req.URL.Path != "/events" {
		t.Errorf("unexpected request %s %s", req.Method, req.URL.Path)
	}
	if req.Header.Get("Content-Type") != "application/json" {
		t.Errorf("expected JSON content type, got %q", req.Header.Get("Content-Type"))
	}

	var ev models.Event
	MustUnmarshalJSON(t, MustMarshalJSON(t, models.Event{UserID: "u2"}), &ev)
	if ev.UserID != "u2" {
		t.Errorf("round trip lost user id: %+v", ev)
	}
}

func TestFlakyGateway(t *testing.T) {
	ctx := context.Background()
	gw := NewFlakyGateway()

	SeedUser(t, gw, "u1", "Alex")
	ids := SeedHabits(t, gw, "u1", "Walk", "Read")
	if len(ids) != 2 {
		t.Fatalf("expected 2 habit ids, got %d", len(ids))
	}

	gw.SetFailWrites(true)
	bed := "23:00"
	if err := gw.UpdateUser(ctx, "u1", models.UserUpdate{Bedtime: &bed}); !errors.Is(err, ErrGatewayDown) {
		t.Errorf("expected ErrGatewayDown, got %v", err)
	}
	if err := gw.UpsertHabitLog(ctx, "u1", ids[0], "2024-03-10", true); !errors.Is(err, ErrGatewayDown) {
		t.Errorf("expected ErrGatewayDown, got %v", err)
	}

	creates, updates := gw.UserWrites()
	if creates != 1 || updates != 1 {
		t.Errorf("expected 1 create and 1 update, got %d and %d", creates, updates)
	}
}

func TestFixedClock(t *testing.T) {
	now := FixedClock("2024-03-10")()
	if got := now.Format(models.DateLayout); got != "2024-03-10" {
		t.Errorf("FixedClock date = %s", got)
	}
}
