package types

import "testing"

func TestHealthStatus_Predicates(t *testing.T) {
	tests := []struct {
		name          string
		status        HealthStatus
		wantHealthy   bool
		wantDegraded  bool
		wantUnhealthy bool
	}{
		{
			name:        "healthy status",
			status:      HealthStatus{Status: StatusHealthy},
			wantHealthy: true,
		},
		{
			name:         "degraded status",
			status:       HealthStatus{Status: StatusDegraded},
			wantDegraded: true,
		},
		{
			name:          "unhealthy status",
			status:        HealthStatus{Status: StatusUnhealthy},
			wantUnhealthy: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.IsHealthy(); got != tt.wantHealthy {
				t.Errorf("IsHealthy() = %v, want %v", got, tt.wantHealthy)
			}
			if got := tt.status.IsDegraded(); got != tt.wantDegraded {
				t.Errorf("IsDegraded() = %v, want %v", got, tt.wantDegraded)
			}
			if got := tt.status.IsUnhealthy(); got != tt.wantUnhealthy {
				t.Errorf("IsUnhealthy() = %v, want %v", got, tt.wantUnhealthy)
			}
		})
	}
}

func TestHealthStatus_Severity(t *testing.T) {
	tests := []struct {
		name   string
		status HealthStatus
		want   int
	}{
		{
			name:   "healthy ranks best",
			status: NewHealthyStatus(""),
			want:   0,
		},
		{
			name:   "degraded ranks middle",
			status: NewDegradedStatus("", nil),
			want:   1,
		},
		{
			name:   "unhealthy ranks worse",
			status: NewUnhealthyStatus("", nil),
			want:   2,
		},
		{
			name:   "unknown status ranks worst",
			status: HealthStatus{Status: "exploded"},
			want:   3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.Severity(); got != tt.want {
				t.Errorf("Severity() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestHealthStatus_Worst(t *testing.T) {
	healthy := NewHealthyStatus("broker reachable")
	degraded := NewDegradedStatus("btmgmt missing", nil)
	unhealthy := NewUnhealthyStatus("broker unreachable", nil)

	if got := healthy.Worst(unhealthy); got.Status != StatusUnhealthy {
		t.Errorf("Worst(healthy, unhealthy) = %v, want unhealthy", got.Status)
	}

	if got := unhealthy.Worst(degraded); got.Status != StatusUnhealthy {
		t.Errorf("Worst(unhealthy, degraded) = %v, want unhealthy", got.Status)
	}

	// Ties keep the receiver, preserving the first failure's message.
	first := NewDegradedStatus("first", nil)
	second := NewDegradedStatus("second", nil)
	if got := first.Worst(second); got.Message != "first" {
		t.Errorf("Worst tie kept %q, want %q", got.Message, "first")
	}
}

func TestNewHealthyStatus(t *testing.T) {
	status := NewHealthyStatus("broker reachable")

	if status.Status != StatusHealthy {
		t.Errorf("Status = %v, want %v", status.Status, StatusHealthy)
	}

	if status.Message != "broker reachable" {
		t.Errorf("Message = %v, want %v", status.Message, "broker reachable")
	}

	if status.Details != nil {
		t.Errorf("Details should be nil, got %v", status.Details)
	}
}

func TestNewDegradedStatus(t *testing.T) {
	details := map[string]any{
		"binary": "btmgmt",
	}

	status := NewDegradedStatus("bluetooth tooling missing", details)

	if status.Status != StatusDegraded {
		t.Errorf("Status = %v, want %v", status.Status, StatusDegraded)
	}

	if status.Message != "bluetooth tooling missing" {
		t.Errorf("Message = %v, want %v", status.Message, "bluetooth tooling missing")
	}

	if status.Details == nil {
		t.Fatal("Details should not be nil")
	}

	if status.Details["binary"] != "btmgmt" {
		t.Errorf("Details[binary] = %v, want %v", status.Details["binary"], "btmgmt")
	}
}

func TestNewUnhealthyStatus(t *testing.T) {
	details := map[string]any{
		"error":   "connection refused",
		"address": "broker.local:1883",
	}

	status := NewUnhealthyStatus("cannot reach broker", details)

	if status.Status != StatusUnhealthy {
		t.Errorf("Status = %v, want %v", status.Status, StatusUnhealthy)
	}

	if status.Message != "cannot reach broker" {
		t.Errorf("Message = %v, want %v", status.Message, "cannot reach broker")
	}

	if status.Details == nil {
		t.Fatal("Details should not be nil")
	}

	if status.Details["error"] != "connection refused" {
		t.Errorf("Details[error] = %v, want %v", status.Details["error"], "connection refused")
	}
}

func TestHealthStatusConstants(t *testing.T) {
	if StatusHealthy != "healthy" {
		t.Errorf("StatusHealthy = %v, want %v", StatusHealthy, "healthy")
	}

	if StatusDegraded != "degraded" {
		t.Errorf("StatusDegraded = %v, want %v", StatusDegraded, "degraded")
	}

	if StatusUnhealthy != "unhealthy" {
		t.Errorf("StatusUnhealthy = %v, want %v", StatusUnhealthy, "unhealthy")
	}
}
