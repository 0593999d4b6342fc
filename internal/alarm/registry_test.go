package alarm

import "testing"

func TestRegistry(t *testing.T) {
	registry, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	t.Run("severities", func(t *testing.T) {
		tests := []struct {
			value string
			valid bool
		}{
			{"NONE", true},
			{"MINOR", true},
			{"MAJOR", true},
			{"INVALID", true},
			{"UNDEFINED", true},
			{"", true}, // capture sources without alarm support omit it
			{"minor", false},
			{"CRITICAL", false},
		}
		for _, tt := range tests {
			if got := registry.IsValidSeverity(tt.value); got != tt.valid {
				t.Errorf("IsValidSeverity(%q) = %v, want %v", tt.value, got, tt.valid)
			}
		}
	})

	t.Run("statuses", func(t *testing.T) {
		tests := []struct {
			value string
			valid bool
		}{
			{"NO_ALARM", true},
			{"HIHI", true},
			{"UDF", true},
			{"", true},
			{"no_alarm", false},
			{"BROKEN", false},
		}
		for _, tt := range tests {
			if got := registry.IsValidStatus(tt.value); got != tt.valid {
				t.Errorf("IsValidStatus(%q) = %v, want %v", tt.value, got, tt.valid)
			}
		}
	})
}
