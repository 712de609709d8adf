package sdk

import "testing"

func TestMatchTopic(t *testing.T) {
	tests := []struct {
		filter string
		topic  string
		want   bool
	}{
		{"devices/pump/status", "devices/pump/status", true},
		{"devices/pump/status", "devices/pump/state", false},
		{"devices/+/status", "devices/pump/status", true},
		{"devices/+/status", "devices/pump/valve/status", false},
		{"+/+/+", "devices/pump/status", true},
		{"devices/#", "devices/pump/status", true},
		{"devices/#", "devices", true},
		{"devices/#", "device", false},
		{"devices/pump/#", "devices/pump/status/raw", true},
		{"#", "devices/pump/status", true},
		{"devices/pump", "devices/pump/status", false},
		{"devices/pump/status", "devices/pump", false},
		{"devices/+", "devices", false},
		{"devices/+", "devices/", true},
	}

	for _, tt := range tests {
		if got := matchTopic(tt.filter, tt.topic); got != tt.want {
			t.Errorf("matchTopic(%q, %q) = %v, want %v", tt.filter, tt.topic, got, tt.want)
		}
	}
}
