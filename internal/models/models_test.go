package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidTime(t *testing.T) {
	valid := []string{"00:00", "07:00", "09:59", "12:30", "22:30", "23:59"}
	for _, s := range valid {
		assert.True(t, IsValidTime(s), "expected %q to be valid", s)
	}
	invalid := []string{"", "25:00", "24:00", "7:30", "07:60", "0700", "07:0", "ab:cd", " 07:00", "07:00:00"}
	for _, s := range invalid {
		assert.False(t, IsValidTime(s), "expected %q to be rejected", s)
	}
}

func TestParseTimeTrims(t *testing.T) {
	v, err := ParseTime("  06:45 ")
	require.NoError(t, err)
	assert.Equal(t, "06:45", v)

	_, err = ParseTime("6:45")
	assert.ErrorIs(t, err, ErrInvalidTime)
}

func TestParseWaterTarget(t *testing.T) {
	n, err := ParseWaterTarget("2500")
	require.NoError(t, err)
	assert.Equal(t, 2500, n)

	for _, s := range []string{"-5", "0", "abc", "", "12.5"} {
		_, err := ParseWaterTarget(s)
		assert.ErrorIs(t, err, ErrInvalidWaterTarget, "input %q", s)
	}
}

func TestParseMoodScore(t *testing.T) {
	for i, s := range []string{"1", "2", "3", "4", "5"} {
		n, err := ParseMoodScore(s)
		require.NoError(t, err)
		assert.Equal(t, i+1, n)
	}
	for _, s := range []string{"0", "6", "10", "five", "", "4.0"} {
		_, err := ParseMoodScore(s)
		assert.ErrorIs(t, err, ErrInvalidMoodScore, "input %q", s)
	}
}

func TestValidateFreeText(t *testing.T) {
	v, err := ValidateFreeText("  Drink water  ")
	require.NoError(t, err)
	assert.Equal(t, "Drink water", v)

	_, err = ValidateFreeText("   ")
	assert.ErrorIs(t, err, ErrEmptyText)

	long := strings.Repeat("x", 500)
	v, err = ValidateFreeText(long)
	require.NoError(t, err)
	assert.Equal(t, long, v)
}

func TestUserUpdateApplyAndValidate(t *testing.T) {
	name := "Alex"
	bed := "23:15"
	water := 3000
	off := false
	upd := UserUpdate{PreferredName: &name, Bedtime: &bed, WaterTarget: &water, HabitsEnabled: &off}
	require.NoError(t, upd.Validate())
	assert.False(t, upd.IsEmpty())

	u := NewUser("42", "alex", "")
	upd.Apply(&u)
	assert.Equal(t, "Alex", u.PreferredName)
	assert.Equal(t, "23:15", u.Bedtime)
	assert.Equal(t, DefaultWaketime, u.Waketime)
	assert.Equal(t, 3000, u.WaterTarget)
	assert.False(t, u.HabitsEnabled)

	bad := "7:00"
	assert.ErrorIs(t, UserUpdate{Waketime: &bad}.Validate(), ErrInvalidTime)
	zero := 0
	assert.ErrorIs(t, UserUpdate{WaterTarget: &zero}.Validate(), ErrInvalidWaterTarget)
	assert.True(t, UserUpdate{}.IsEmpty())
}

func TestAddDays(t *testing.T) {
	d, err := AddDays("2024-03-01", -1)
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", d)

	_, err = AddDays("03/01/2024", 1)
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestSessionCloneIsIndependent(t *testing.T) {
	s := NewSession("42")
	s.Flow = FlowOnboarding
	s.Set(ScratchName, "Alex")

	c := s.Clone()
	c.Set(ScratchName, "Sam")
	c.Set(ScratchBedtime, "22:00")

	assert.Equal(t, "Alex", s.Get(ScratchName))
	assert.Empty(t, s.Get(ScratchBedtime))
	assert.True(t, s.Active())
	assert.False(t, NewSession("42").Active())
}

func TestEventCommand(t *testing.T) {
	e := Event{Kind: EventText, Payload: "/Water 250"}
	require.True(t, e.IsCommand())
	name, args := e.Command()
	assert.Equal(t, "/water", name)
	assert.Equal(t, "250", args)

	name, _ = Event{Kind: EventText, Payload: "/start@DailyBoostBot"}.Command()
	assert.Equal(t, "/start", name)

	assert.True(t, Event{Kind: EventButton, Payload: " /help"}.IsCommand())
	assert.False(t, Event{Kind: EventText, Payload: "water /help"}.IsCommand())
}
