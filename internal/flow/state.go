package flow

import (
	"context"

	"github.com/BTreeMap/DailyBoost/internal/models"
)

// StateManager stores the single conversation session of each user.
type StateManager interface {
	// Load returns the user's session, or an idle session when there is none.
	Load(ctx context.Context, userID string) (models.Session, error)

	// Save replaces the user's session.
	Save(ctx context.Context, s models.Session) error

	// Reset returns the user to idle.
	Reset(ctx context.Context, userID string) error
}
