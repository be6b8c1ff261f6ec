package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/BTreeMap/DailyBoost/internal/bot"
	"github.com/BTreeMap/DailyBoost/internal/models"
	"github.com/BTreeMap/DailyBoost/internal/stats"
)

// maxEventBytes bounds the /events request body.
const maxEventBytes = 64 << 10

// EventResult is the result of POST /events.
type EventResult struct {
	Replies []models.Reply `json:"replies"`
}

// UserStats is the result of GET /stats?user_id=...
type UserStats struct {
	UserID   string                           `json:"user_id"`
	Date     string                           `json:"date"`
	Today    []models.DailyHabitStatus        `json:"today"`
	Weekly   map[string]stats.WeeklyHabitStat `json:"weekly"`
	Streak   int                              `json:"streak"`
	Overall  stats.Overall                    `json:"overall"`
	Badge    string                           `json:"badge"`
	Wellness models.DailyWellness             `json:"wellness"`
}

func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	slog.Warn("Server method not allowed", "method", r.Method, "path", r.URL.Path)
	w.WriteHeader(http.StatusMethodNotAllowed)
	return false
}

// eventsHandler feeds one chat event to the router (POST /events).
func (s *Server) eventsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var ev models.Event
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEventBytes)).Decode(&ev); err != nil {
		slog.Warn("Server.eventsHandler: failed to decode JSON", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}
	switch ev.Kind {
	case "":
		ev.Kind = models.EventText
	case models.EventText, models.EventButton:
	default:
		writeError(w, http.StatusBadRequest, "kind must be text or button")
		return
	}

	replies, err := s.router.Handle(r.Context(), ev)
	if errors.Is(err, bot.ErrInvalidEvent) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		slog.Error("Server.eventsHandler: router failed", "error", err, "userID", ev.UserID)
		writeError(w, http.StatusInternalServerError, "Failed to handle event")
		return
	}
	writeResult(w, http.StatusOK, EventResult{Replies: replies})
}

// statsHandler reports a user's habit and wellness statistics (GET /stats).
// Without user_id it reports the number of registered users.
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	ctx := r.Context()
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		users, err := s.st.ListUsers(ctx)
		if err != nil {
			slog.Error("Server.statsHandler: failed to list users", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to fetch users")
			return
		}
		writeResult(w, http.StatusOK, map[string]int{"users": len(users)})
		return
	}

	u, err := s.st.GetUser(ctx, userID)
	if err != nil {
		slog.Error("Server.statsHandler: failed to load user", "error", err, "userID", userID)
		writeError(w, http.StatusInternalServerError, "Failed to fetch user")
		return
	}
	if u == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	out, err := s.userStats(ctx, *u)
	if err != nil {
		slog.Error("Server.statsHandler: failed to compute stats", "error", err, "userID", userID)
		writeError(w, http.StatusInternalServerError, "Failed to compute statistics")
		return
	}
	writeResult(w, http.StatusOK, out)
}

func (s *Server) userStats(ctx context.Context, u models.User) (UserStats, error) {
	today := u.Today(s.now())
	out := UserStats{UserID: u.UserID, Date: today}
	var err error
	if out.Today, err = s.stats.DailyCompletion(ctx, u.UserID, today); err != nil {
		return out, err
	}
	if out.Weekly, err = s.stats.WeeklyStats(ctx, u.UserID, today); err != nil {
		return out, err
	}
	if out.Streak, err = s.stats.Streak(ctx, u.UserID, today); err != nil {
		return out, err
	}
	if out.Overall, err = s.stats.OverallStats(ctx, u.UserID); err != nil {
		return out, err
	}
	out.Badge = out.Overall.Badge().Label()
	if out.Wellness, err = s.st.GetDailyWellness(ctx, u.UserID, today); err != nil {
		return out, err
	}
	return out, nil
}

// runCheckinsHandler sends the evening check-in now (POST /checkins/run).
func (s *Server) runCheckinsHandler(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	sent, err := s.router.SendCheckins(r.Context())
	if errors.Is(err, bot.ErrNoDelivery) {
		writeError(w, http.StatusConflict, "no chat transport configured")
		return
	}
	if err != nil {
		slog.Error("Server.runCheckinsHandler: check-in failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to send check-ins")
		return
	}
	writeResult(w, http.StatusOK, map[string]int{"sent": sent})
}

// healthHandler reports liveness; a failing store read marks it degraded.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	healthData := map[string]interface{}{
		"status":         "healthy",
		"timestamp":      s.now().UTC().Format(time.RFC3339),
		"uptime_seconds": int(time.Since(s.startedAt).Seconds()),
	}
	statusCode := http.StatusOK
	if users, err := s.st.ListUsers(ctx); err != nil {
		slog.Warn("Health check: failed to list users", "error", err)
		healthData["status"] = "degraded"
		healthData["error"] = "Failed to reach store"
		statusCode = http.StatusServiceUnavailable
	} else {
		healthData["users"] = len(users)
	}
	writeJSON(w, statusCode, healthData)
}
