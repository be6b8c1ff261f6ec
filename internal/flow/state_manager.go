package flow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/BTreeMap/DailyBoost/internal/models"
	"github.com/BTreeMap/DailyBoost/internal/store"
)

// Compile-time checks.
var (
	_ StateManager = (*MemoryStateManager)(nil)
	_ StateManager = (*StoreBasedStateManager)(nil)
)

// MemoryStateManager keeps sessions in process memory. A restart loses only
// in-progress answers.
type MemoryStateManager struct {
	mu       sync.RWMutex
	sessions map[string]models.Session
}

// NewMemoryStateManager creates an empty MemoryStateManager.
func NewMemoryStateManager() *MemoryStateManager {
	return &MemoryStateManager{sessions: make(map[string]models.Session)}
}

func (m *MemoryStateManager) Load(ctx context.Context, userID string) (models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[userID]
	if !ok {
		return models.NewSession(userID), nil
	}
	return s.Clone(), nil
}

func (m *MemoryStateManager) Save(ctx context.Context, s models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.UserID] = s.Clone()
	return nil
}

func (m *MemoryStateManager) Reset(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
	return nil
}

// StoreBasedStateManager persists sessions in the flow_states table so an
// in-progress flow survives a restart.
type StoreBasedStateManager struct {
	store store.FlowStateRepo
}

// NewStoreBasedStateManager creates a new StateManager backed by a Store.
func NewStoreBasedStateManager(st store.FlowStateRepo) *StoreBasedStateManager {
	slog.Debug("Creating StoreBasedStateManager")
	return &StoreBasedStateManager{store: st}
}

func (sm *StoreBasedStateManager) Load(ctx context.Context, userID string) (models.Session, error) {
	fs, err := sm.store.GetFlowState(ctx, userID)
	if err != nil {
		slog.Error("StateManager Load error", "error", err, "userID", userID)
		return models.Session{}, err
	}
	if fs == nil {
		return models.NewSession(userID), nil
	}
	slog.Debug("StateManager Load found", "userID", userID, "flow", fs.FlowType, "step", fs.CurrentState)
	return fs.Session(), nil
}

func (sm *StoreBasedStateManager) Save(ctx context.Context, s models.Session) error {
	createdAt := time.Now()
	existing, err := sm.store.GetFlowState(ctx, s.UserID)
	if err != nil {
		slog.Error("StateManager Save get error", "error", err, "userID", s.UserID)
		return err
	}
	if existing != nil && existing.FlowType == s.Flow {
		createdAt = existing.CreatedAt
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = time.Now()
	}
	if err := sm.store.SaveFlowState(ctx, models.FlowStateFromSession(s, createdAt)); err != nil {
		slog.Error("StateManager Save error", "error", err, "userID", s.UserID, "flow", s.Flow, "step", s.Step)
		return err
	}
	slog.Debug("StateManager Save succeeded", "userID", s.UserID, "flow", s.Flow, "step", s.Step)
	return nil
}

func (sm *StoreBasedStateManager) Reset(ctx context.Context, userID string) error {
	if err := sm.store.DeleteFlowState(ctx, userID); err != nil {
		slog.Error("StateManager Reset error", "error", err, "userID", userID)
		return err
	}
	slog.Debug("StateManager Reset succeeded", "userID", userID)
	return nil
}
