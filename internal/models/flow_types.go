// Package models defines flow type definitions to avoid circular imports.
package models

import "time"

// FlowType identifies a multi-step conversation.
type FlowType string

// StepType represents a specific step within a flow
type StepType string

// ScratchKey is a key for transient answers collected mid-flow
type ScratchKey string

// Flow type constants.
const (
	FlowNone        FlowType = "none"
	FlowOnboarding  FlowType = "onboarding"
	FlowPreferences FlowType = "preferences"
	FlowMood        FlowType = "mood"
	FlowHabit       FlowType = "habit"
)

// Onboarding steps.
const (
	StepOnboardingName     StepType = "name"
	StepOnboardingBedtime  StepType = "bedtime"
	StepOnboardingWaketime StepType = "waketime"
	StepOnboardingWater    StepType = "water_target"
	StepOnboardingModules  StepType = "modules"
)

// Preferences steps.
const (
	StepPrefsMainMenu      StepType = "main_menu"
	StepPrefsChangeName    StepType = "change_name"
	StepPrefsChangeBedtime StepType = "change_bedtime"
	StepPrefsChangeWake    StepType = "change_waketime"
	StepPrefsChangeWater   StepType = "change_water"
	StepPrefsToggleModules StepType = "toggle_modules"
)

// Mood steps.
const (
	StepMoodRating StepType = "rating"
	StepMoodNote   StepType = "note"
)

// Habit management steps.
const (
	StepHabitAddFirst StepType = "add_first"
	StepHabitManage   StepType = "manage"
	StepHabitAddNew   StepType = "add_new"
	StepHabitDelete   StepType = "delete"
)

// Scratch keys.
const (
	ScratchName      ScratchKey = "name"
	ScratchBedtime   ScratchKey = "bedtime"
	ScratchWaketime  ScratchKey = "waketime"
	ScratchWater     ScratchKey = "water_target"
	ScratchSpiritual ScratchKey = "spiritual"
	ScratchReading   ScratchKey = "reading"
	ScratchHabits    ScratchKey = "habits"
	ScratchScore     ScratchKey = "score"
)

// Session is the single active conversation for a user.
// A zero Flow or FlowNone means the user is idle.
type Session struct {
	UserID    string                `json:"user_id"`
	Flow      FlowType              `json:"flow"`
	Step      StepType              `json:"step"`
	Scratch   map[ScratchKey]string `json:"scratch,omitempty"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// NewSession returns an idle session for userID.
func NewSession(userID string) Session {
	return Session{UserID: userID, Flow: FlowNone}
}

// Active reports whether a flow is in progress.
func (s Session) Active() bool {
	return s.Flow != "" && s.Flow != FlowNone
}

// Clone returns a deep copy so a flow can mutate scratch without touching the stored session.
func (s Session) Clone() Session {
	c := s
	c.Scratch = make(map[ScratchKey]string, len(s.Scratch))
	for k, v := range s.Scratch {
		c.Scratch[k] = v
	}
	return c
}

// Get returns a scratch value.
func (s Session) Get(key ScratchKey) string {
	if s.Scratch == nil {
		return ""
	}
	return s.Scratch[key]
}

// Set stores a scratch value.
func (s *Session) Set(key ScratchKey, value string) {
	if s.Scratch == nil {
		s.Scratch = make(map[ScratchKey]string)
	}
	s.Scratch[key] = value
}
