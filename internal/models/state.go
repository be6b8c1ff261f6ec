// Package models defines state management structures for DailyBoost flows.
package models

import "time"

// FlowState is the persisted form of a Session in the flow_states table.
type FlowState struct {
	UserID       string                `json:"user_id"`
	FlowType     FlowType              `json:"flow_type"`
	CurrentState StepType              `json:"current_state"`
	StateData    map[ScratchKey]string `json:"state_data,omitempty"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

// Session converts the persisted row back into a Session.
func (f FlowState) Session() Session {
	s := Session{
		UserID:    f.UserID,
		Flow:      f.FlowType,
		Step:      f.CurrentState,
		UpdatedAt: f.UpdatedAt,
	}
	if len(f.StateData) > 0 {
		s.Scratch = make(map[ScratchKey]string, len(f.StateData))
		for k, v := range f.StateData {
			s.Scratch[k] = v
		}
	}
	return s
}

// FlowStateFromSession builds the persisted row for a session.
func FlowStateFromSession(s Session, createdAt time.Time) FlowState {
	return FlowState{
		UserID:       s.UserID,
		FlowType:     s.Flow,
		CurrentState: s.Step,
		StateData:    s.Clone().Scratch,
		CreatedAt:    createdAt,
		UpdatedAt:    s.UpdatedAt,
	}
}
