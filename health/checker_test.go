package health

import (
	"context"
	"errors"
	"testing"
)

func TestStatus_String(t *testing.T) {
	tests := []struct {
		status Status
		want   string
		code   int
	}{
		{StatusHealthy, "healthy", 200},
		{StatusDegraded, "degraded", 200},
		{StatusUnhealthy, "unhealthy", 503},
		{Status(99), "unknown", 503},
		{Status(-1), "unknown", 503},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.status.String(); got != tt.want {
				t.Errorf("Status.String() = %v, want %v", got, tt.want)
			}
			if got := tt.status.HTTPCode(); got != tt.code {
				t.Errorf("Status.HTTPCode() = %v, want %v", got, tt.code)
			}
		})
	}
}

func TestResultConstructors(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name    string
		result  Result
		status  Status
		wantErr error
	}{
		{"healthy", Healthy("ok"), StatusHealthy, nil},
		{"degraded", Degraded("slow"), StatusDegraded, nil},
		{"unhealthy", Unhealthy("down", boom), StatusUnhealthy, boom},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.result.Status != tt.status {
				t.Errorf("Status = %v, want %v", tt.result.Status, tt.status)
			}
			if tt.result.Error != tt.wantErr {
				t.Errorf("Error = %v, want %v", tt.result.Error, tt.wantErr)
			}
			if tt.result.Timestamp.IsZero() {
				t.Error("Timestamp should not be zero")
			}
		})
	}
}

func TestResult_WithDetails(t *testing.T) {
	r := Healthy("ok").WithDetails(map[string]any{"k": 1})
	if r.Details["k"] != 1 {
		t.Errorf("Details = %v", r.Details)
	}
}

func TestCheckerFunc(t *testing.T) {
	called := false
	c := NewCheckerFunc("fn", func(ctx context.Context) Result {
		called = true
		return Degraded("meh")
	})

	if c.Name() != "fn" {
		t.Errorf("Name() = %q, want fn", c.Name())
	}
	if r := c.Check(context.Background()); r.Status != StatusDegraded || !called {
		t.Errorf("Check() = %+v, called = %v", r, called)
	}
}
