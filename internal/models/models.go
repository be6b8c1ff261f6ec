// Package models defines the core data structures for DailyBoost.
//
// It includes the user profile, mood and habit records, the wellness logs,
// and the transport-level receipt/response types shared across modules.
package models

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Default profile values applied when a user is first created.
const (
	DefaultTimezone    = "UTC"
	DefaultBedtime     = "22:00"
	DefaultWaketime    = "07:00"
	DefaultWaterTarget = 2500
)

// DateLayout is the ISO-8601 calendar date layout used for every stored date.
const DateLayout = "2006-01-02"

// Validation constants for input validation
const (
	// MinMoodScore is the lowest accepted mood rating.
	MinMoodScore = 1
	// MaxMoodScore is the highest accepted mood rating.
	MaxMoodScore = 5
)

// Error variables for better error handling and testability
var (
	ErrEmptyUserID        = errors.New("user id cannot be empty")
	ErrInvalidTime        = errors.New("time must be HH:MM in 24-hour format")
	ErrInvalidWaterTarget = errors.New("water target must be a positive whole number")
	ErrInvalidMinutes     = errors.New("minutes must be a positive whole number")
	ErrEmptyText          = errors.New("text cannot be empty")
	ErrInvalidMoodScore   = errors.New("mood score must be between 1 and 5")
	ErrInvalidDate        = errors.New("date must be YYYY-MM-DD")
	ErrInvalidTimezone    = errors.New("unknown timezone")
	ErrUserNotFound       = errors.New("user not found")
	ErrHabitNotFound      = errors.New("habit not found")
)

// timePattern matches HH:MM with a two-digit hour between 00 and 23.
var timePattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// User is the persisted profile of a chat user.
type User struct {
	UserID           string    `json:"user_id"`
	Username         string    `json:"username,omitempty"`
	PreferredName    string    `json:"preferred_name"`
	Timezone         string    `json:"timezone"`
	Bedtime          string    `json:"bedtime"`
	Waketime         string    `json:"waketime"`
	WaterTarget      int       `json:"water_target"`
	SpiritualEnabled bool      `json:"spiritual_enabled"`
	ReadingEnabled   bool      `json:"reading_enabled"`
	HabitsEnabled    bool      `json:"habits_enabled"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// NewUser returns a user populated with the default profile values.
func NewUser(userID, username, preferredName string) User {
	now := time.Now()
	return User{
		UserID:        userID,
		Username:      username,
		PreferredName: preferredName,
		Timezone:      DefaultTimezone,
		Bedtime:       DefaultBedtime,
		Waketime:      DefaultWaketime,
		WaterTarget:   DefaultWaterTarget,
		HabitsEnabled: true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// DisplayName returns the preferred name, falling back to the username.
func (u User) DisplayName() string {
	if u.PreferredName != "" {
		return u.PreferredName
	}
	if u.Username != "" {
		return u.Username
	}
	return "friend"
}

// Location resolves the user's timezone, defaulting to UTC.
func (u User) Location() *time.Location {
	if u.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(u.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Today returns the user's current calendar date.
func (u User) Today(now time.Time) string {
	return now.In(u.Location()).Format(DateLayout)
}

// UserUpdate is a partial update over the closed set of mutable profile fields.
// Nil fields are left untouched.
type UserUpdate struct {
	PreferredName    *string `json:"preferred_name,omitempty"`
	Timezone         *string `json:"timezone,omitempty"`
	Bedtime          *string `json:"bedtime,omitempty"`
	Waketime         *string `json:"waketime,omitempty"`
	WaterTarget      *int    `json:"water_target,omitempty"`
	SpiritualEnabled *bool   `json:"spiritual_enabled,omitempty"`
	ReadingEnabled   *bool   `json:"reading_enabled,omitempty"`
	HabitsEnabled    *bool   `json:"habits_enabled,omitempty"`
}

// IsEmpty reports whether the update touches no field.
func (u UserUpdate) IsEmpty() bool {
	return u.PreferredName == nil && u.Timezone == nil && u.Bedtime == nil && u.Waketime == nil &&
		u.WaterTarget == nil && u.SpiritualEnabled == nil && u.ReadingEnabled == nil && u.HabitsEnabled == nil
}

// Validate checks every set field against the profile invariants.
func (u UserUpdate) Validate() error {
	if u.PreferredName != nil {
		if _, err := ValidateFreeText(*u.PreferredName); err != nil {
			return err
		}
	}
	if u.Timezone != nil {
		if _, err := time.LoadLocation(*u.Timezone); err != nil {
			return ErrInvalidTimezone
		}
	}
	if u.Bedtime != nil && !IsValidTime(*u.Bedtime) {
		return ErrInvalidTime
	}
	if u.Waketime != nil && !IsValidTime(*u.Waketime) {
		return ErrInvalidTime
	}
	if u.WaterTarget != nil && *u.WaterTarget <= 0 {
		return ErrInvalidWaterTarget
	}
	return nil
}

// Apply copies the set fields onto user.
func (u UserUpdate) Apply(user *User) {
	if u.PreferredName != nil {
		user.PreferredName = *u.PreferredName
	}
	if u.Timezone != nil {
		user.Timezone = *u.Timezone
	}
	if u.Bedtime != nil {
		user.Bedtime = *u.Bedtime
	}
	if u.Waketime != nil {
		user.Waketime = *u.Waketime
	}
	if u.WaterTarget != nil {
		user.WaterTarget = *u.WaterTarget
	}
	if u.SpiritualEnabled != nil {
		user.SpiritualEnabled = *u.SpiritualEnabled
	}
	if u.ReadingEnabled != nil {
		user.ReadingEnabled = *u.ReadingEnabled
	}
	if u.HabitsEnabled != nil {
		user.HabitsEnabled = *u.HabitsEnabled
	}
}

// MoodEntry is a single mood rating for a calendar date.
type MoodEntry struct {
	UserID    string    `json:"user_id"`
	Date      string    `json:"date"`
	Score     int       `json:"score"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Habit is a user-defined daily habit.
type Habit struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// HabitLogEntry is one habit's completion state for one date.
type HabitLogEntry struct {
	HabitID   int64  `json:"habit_id"`
	HabitName string `json:"habit_name"`
	Date      string `json:"date"`
	Completed bool   `json:"completed"`
}

// DailyHabitStatus is a habit joined with its log for a single date.
type DailyHabitStatus struct {
	HabitID   int64  `json:"habit_id"`
	HabitName string `json:"habit_name"`
	Completed bool   `json:"completed"`
}

// WaterLog records one glass or bottle of water.
type WaterLog struct {
	UserID   string `json:"user_id"`
	Date     string `json:"date"`
	AmountML int    `json:"amount_ml"`
}

// ActivityLog records a block of physical activity.
type ActivityLog struct {
	UserID       string `json:"user_id"`
	Date         string `json:"date"`
	Minutes      int    `json:"minutes"`
	ActivityText string `json:"activity_text,omitempty"`
}

// ReadingLog records a reading session.
type ReadingLog struct {
	UserID    string `json:"user_id"`
	Date      string `json:"date"`
	Minutes   int    `json:"minutes"`
	BookTitle string `json:"book_title,omitempty"`
}

// SpiritualLog is the per-day prayer and scripture checklist.
type SpiritualLog struct {
	UserID        string `json:"user_id"`
	Date          string `json:"date"`
	PrayerDone    bool   `json:"prayer_done"`
	ScriptureDone bool   `json:"scripture_done"`
}

// DailyWellness summarizes the non-habit logs for one date.
type DailyWellness struct {
	Date            string       `json:"date"`
	WaterML         int          `json:"water_ml"`
	ActivityMinutes int          `json:"activity_minutes"`
	ReadingMinutes  int          `json:"reading_minutes"`
	Spiritual       SpiritualLog `json:"spiritual"`
}

// IsValidTime reports whether s is a 24-hour HH:MM time with a two-digit hour.
func IsValidTime(s string) bool {
	return timePattern.MatchString(s)
}

// ParseTime validates and normalizes a time input.
func ParseTime(s string) (string, error) {
	s = strings.TrimSpace(s)
	if !IsValidTime(s) {
		return "", ErrInvalidTime
	}
	return s, nil
}

// ParseWaterTarget parses a positive whole number of millilitres.
func ParseWaterTarget(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return 0, ErrInvalidWaterTarget
	}
	return n, nil
}

// ParseMinutes parses a positive whole number of minutes.
func ParseMinutes(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return 0, ErrInvalidMinutes
	}
	return n, nil
}

// ParseMoodScore accepts only the literal tokens "1" through "5".
func ParseMoodScore(s string) (int, error) {
	s = strings.TrimSpace(s)
	if len(s) != 1 || s[0] < '0'+MinMoodScore || s[0] > '0'+MaxMoodScore {
		return 0, ErrInvalidMoodScore
	}
	return int(s[0] - '0'), nil
}

// ValidateFreeText trims s and rejects blank values. Any other text is accepted.
func ValidateFreeText(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrEmptyText
	}
	return s, nil
}

// ValidateDate checks an ISO calendar date.
func ValidateDate(s string) error {
	if _, err := time.Parse(DateLayout, s); err != nil {
		return ErrInvalidDate
	}
	return nil
}

// AddDays shifts an ISO date by n days.
func AddDays(date string, n int) (string, error) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return "", ErrInvalidDate
	}
	return t.AddDate(0, 0, n).Format(DateLayout), nil
}

// MessageStatus represents the delivery status of a message.
type MessageStatus string

const (
	// MessageStatusSent indicates the message was sent.
	MessageStatusSent MessageStatus = "sent"
	// MessageStatusDelivered indicates the message was delivered.
	MessageStatusDelivered MessageStatus = "delivered"
	// MessageStatusRead indicates the message was read.
	MessageStatusRead MessageStatus = "read"
	// MessageStatusFailed indicates the message failed to send.
	MessageStatusFailed MessageStatus = "failed"
)

// Receipt is a delivery status update from the transport.
type Receipt struct {
	To     string        `json:"to"`
	Status MessageStatus `json:"status"`
	Time   int64         `json:"time"`
}

// Response represents an incoming chat message from a user.
type Response struct {
	ID       string `json:"id,omitempty"`
	From     string `json:"from"`
	Username string `json:"username,omitempty"`
	Body     string `json:"body"`
	Time     int64  `json:"time"`
}

// APIStatus represents the status of an API response.
type APIStatus string

const (
	// APIStatusOK indicates an API request completed successfully.
	APIStatusOK APIStatus = "ok"
	// APIStatusError indicates an API request failed with an error.
	APIStatusError APIStatus = "error"
)

// APIResponse represents a standard API response with a status and optional data.
type APIResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Result  interface{} `json:"result,omitempty"`
}

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Result: result}
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return APIResponse{Status: string(APIStatusError), Message: message}
}
