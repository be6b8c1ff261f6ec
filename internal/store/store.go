package store

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/BTreeMap/DailyBoost/internal/models"
)

// Compile-time check that InMemoryStore implements Store.
var _ Store = (*InMemoryStore)(nil)

type habitLogKey struct {
	habitID int64
	date    string
}

// InMemoryStore keeps everything in process memory. It is the default when
// no database is configured and is used heavily in tests.
type InMemoryStore struct {
	mu          sync.RWMutex
	users       map[string]models.User
	moods       map[string]map[string]models.MoodEntry
	habits      map[int64]models.Habit
	nextHabitID int64
	habitLogs   map[string]map[habitLogKey]bool
	water       []models.WaterLog
	activity    []models.ActivityLog
	reading     []models.ReadingLog
	spiritual   map[string]map[string]models.SpiritualLog
	flowStates  map[string]models.FlowState
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		users:      make(map[string]models.User),
		moods:      make(map[string]map[string]models.MoodEntry),
		habits:     make(map[int64]models.Habit),
		habitLogs:  make(map[string]map[habitLogKey]bool),
		spiritual:  make(map[string]map[string]models.SpiritualLog),
		flowStates: make(map[string]models.FlowState),
	}
}

func (s *InMemoryStore) GetUser(ctx context.Context, userID string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (s *InMemoryStore) CreateUser(ctx context.Context, userID, username, preferredName string) error {
	if userID == "" {
		return models.ErrEmptyUserID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; ok {
		return nil
	}
	s.users[userID] = models.NewUser(userID, username, preferredName)
	slog.Debug("InMemoryStore CreateUser succeeded", "userID", userID)
	return nil
}

func (s *InMemoryStore) UpdateUser(ctx context.Context, userID string, upd models.UserUpdate) error {
	if err := upd.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return models.ErrUserNotFound
	}
	upd.Apply(&u)
	u.UpdatedAt = time.Now()
	s.users[userID] = u
	return nil
}

func (s *InMemoryStore) ListUsers(ctx context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (s *InMemoryStore) UpsertMood(ctx context.Context, userID, date string, score int, note string) error {
	if score < models.MinMoodScore || score > models.MaxMoodScore {
		return models.ErrInvalidMoodScore
	}
	if err := models.ValidateDate(date); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.moods[userID] == nil {
		s.moods[userID] = make(map[string]models.MoodEntry)
	}
	s.moods[userID][date] = models.MoodEntry{UserID: userID, Date: date, Score: score, Note: note, CreatedAt: time.Now()}
	return nil
}

func (s *InMemoryStore) GetMood(ctx context.Context, userID, date string) (*models.MoodEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.moods[userID][date]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (s *InMemoryStore) ListMoodsInRange(ctx context.Context, userID, from, to string) ([]models.MoodEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.MoodEntry
	for date, m := range s.moods[userID] {
		if date >= from && date <= to {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (s *InMemoryStore) ListHabits(ctx context.Context, userID string) ([]models.Habit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.habitsOf(userID), nil
}

// habitsOf must be called with the lock held.
func (s *InMemoryStore) habitsOf(userID string) []models.Habit {
	var out []models.Habit
	for _, h := range s.habits {
		if h.UserID == userID {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *InMemoryStore) AddHabit(ctx context.Context, userID, name string) (int64, error) {
	name, err := models.ValidateFreeText(name)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextHabitID++
	id := s.nextHabitID
	s.habits[id] = models.Habit{ID: id, UserID: userID, Name: name, CreatedAt: time.Now()}
	return id, nil
}

func (s *InMemoryStore) DeleteHabit(ctx context.Context, userID string, habitID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.habits[habitID]
	if !ok || h.UserID != userID {
		return models.ErrHabitNotFound
	}
	delete(s.habits, habitID)
	for k := range s.habitLogs[userID] {
		if k.habitID == habitID {
			delete(s.habitLogs[userID], k)
		}
	}
	return nil
}

func (s *InMemoryStore) UpsertHabitLog(ctx context.Context, userID string, habitID int64, date string, completed bool) error {
	if err := models.ValidateDate(date); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.habits[habitID]
	if !ok || h.UserID != userID {
		return models.ErrHabitNotFound
	}
	if s.habitLogs[userID] == nil {
		s.habitLogs[userID] = make(map[habitLogKey]bool)
	}
	s.habitLogs[userID][habitLogKey{habitID: habitID, date: date}] = completed
	return nil
}

func (s *InMemoryStore) ListHabitLogsForDate(ctx context.Context, userID, date string) ([]models.DailyHabitStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.DailyHabitStatus
	for _, h := range s.habitsOf(userID) {
		out = append(out, models.DailyHabitStatus{
			HabitID:   h.ID,
			HabitName: h.Name,
			Completed: s.habitLogs[userID][habitLogKey{habitID: h.ID, date: date}],
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].HabitName < out[j].HabitName })
	return out, nil
}

func (s *InMemoryStore) ListHabitLogsInRange(ctx context.Context, userID, from, to string) ([]models.HabitLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.HabitLogEntry
	for k, completed := range s.habitLogs[userID] {
		if k.date < from || k.date > to {
			continue
		}
		out = append(out, models.HabitLogEntry{
			HabitID:   k.habitID,
			HabitName: s.habits[k.habitID].Name,
			Date:      k.date,
			Completed: completed,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		if out[i].HabitName != out[j].HabitName {
			return out[i].HabitName < out[j].HabitName
		}
		return out[i].HabitID < out[j].HabitID
	})
	return out, nil
}

func (s *InMemoryStore) AddWaterLog(ctx context.Context, userID, date string, amountML int) error {
	if amountML <= 0 {
		return fmt.Errorf("water amount must be positive: %d", amountML)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.water = append(s.water, models.WaterLog{UserID: userID, Date: date, AmountML: amountML})
	return nil
}

func (s *InMemoryStore) AddActivityLog(ctx context.Context, log models.ActivityLog) error {
	if log.Minutes <= 0 {
		return models.ErrInvalidMinutes
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activity = append(s.activity, log)
	return nil
}

func (s *InMemoryStore) AddReadingLog(ctx context.Context, log models.ReadingLog) error {
	if log.Minutes <= 0 {
		return models.ErrInvalidMinutes
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reading = append(s.reading, log)
	return nil
}

func (s *InMemoryStore) GetSpiritualLog(ctx context.Context, userID, date string) (models.SpiritualLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if l, ok := s.spiritual[userID][date]; ok {
		return l, nil
	}
	return models.SpiritualLog{UserID: userID, Date: date}, nil
}

func (s *InMemoryStore) UpsertSpiritualLog(ctx context.Context, log models.SpiritualLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.spiritual[log.UserID] == nil {
		s.spiritual[log.UserID] = make(map[string]models.SpiritualLog)
	}
	s.spiritual[log.UserID][log.Date] = log
	return nil
}

func (s *InMemoryStore) GetDailyWellness(ctx context.Context, userID, date string) (models.DailyWellness, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d := models.DailyWellness{Date: date, Spiritual: models.SpiritualLog{UserID: userID, Date: date}}
	for _, w := range s.water {
		if w.UserID == userID && w.Date == date {
			d.WaterML += w.AmountML
		}
	}
	for _, a := range s.activity {
		if a.UserID == userID && a.Date == date {
			d.ActivityMinutes += a.Minutes
		}
	}
	for _, r := range s.reading {
		if r.UserID == userID && r.Date == date {
			d.ReadingMinutes += r.Minutes
		}
	}
	if l, ok := s.spiritual[userID][date]; ok {
		d.Spiritual = l
	}
	return d, nil
}

func (s *InMemoryStore) SaveFlowState(ctx context.Context, state models.FlowState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flowStates[state.UserID] = state
	return nil
}

func (s *InMemoryStore) GetFlowState(ctx context.Context, userID string) (*models.FlowState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.flowStates[userID]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

func (s *InMemoryStore) DeleteFlowState(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.flowStates, userID)
	return nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}
