package util

import "testing"

func TestParseBoolEnv(t *testing.T) {
	tests := []struct {
		value string
		def   bool
		want  bool
	}{
		{"", true, true},
		{"yes", false, true},
		{" ON ", false, true},
		{"0", true, false},
		{"off", true, false},
		{"maybe", true, true},
	}
	for _, tt := range tests {
		t.Setenv("DAILYBOOST_TEST_BOOL", tt.value)
		if got := ParseBoolEnv("DAILYBOOST_TEST_BOOL", tt.def); got != tt.want {
			t.Errorf("ParseBoolEnv(%q, %v) = %v, want %v", tt.value, tt.def, got, tt.want)
		}
	}
}

func TestParseIntEnv(t *testing.T) {
	t.Setenv("DAILYBOOST_TEST_INT", "42")
	if got := ParseIntEnv("DAILYBOOST_TEST_INT", 7); got != 42 {
		t.Errorf("ParseIntEnv = %d, want 42", got)
	}
	t.Setenv("DAILYBOOST_TEST_INT", "forty")
	if got := ParseIntEnv("DAILYBOOST_TEST_INT", 7); got != 7 {
		t.Errorf("ParseIntEnv invalid = %d, want default 7", got)
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("DAILYBOOST_TEST_STR", "  ")
	if got := GetEnv("DAILYBOOST_TEST_STR", "fallback"); got != "fallback" {
		t.Errorf("GetEnv blank = %q, want fallback", got)
	}
	t.Setenv("DAILYBOOST_TEST_STR", "value")
	if got := GetEnv("DAILYBOOST_TEST_STR", "fallback"); got != "value" {
		t.Errorf("GetEnv = %q, want value", got)
	}
}
