package health

import (
	"context"
	"errors"
	"testing"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func TestServerCheck(t *testing.T) {
	tests := []struct {
		name     string
		checks   map[string]Checker
		expected healthpb.HealthCheckResponse_ServingStatus
	}{
		{
			name:     "noChecks",
			checks:   nil,
			expected: healthpb.HealthCheckResponse_SERVING,
		},
		{
			name: "allPass",
			checks: map[string]Checker{
				"mongo": func(ctx context.Context) error { return nil },
			},
			expected: healthpb.HealthCheckResponse_SERVING,
		},
		{
			name: "oneFails",
			checks: map[string]Checker{
				"mongo": func(ctx context.Context) error { return nil },
				"nats":  func(ctx context.Context) error { return errors.New("connection closed") },
			},
			expected: healthpb.HealthCheckResponse_NOT_SERVING,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServer("chatorder.checkout", tt.checks, 0, nil)

			if got := s.Check(context.Background()); got != tt.expected {
				t.Errorf("Check() = %v, want %v", got, tt.expected)
			}

			for _, service := range []string{"", "chatorder.checkout"} {
				resp, err := s.hs.Check(context.Background(), &healthpb.HealthCheckRequest{Service: service})
				if err != nil {
					t.Fatalf("health Check(%q) error = %v", service, err)
				}
				if resp.Status != tt.expected {
					t.Errorf("service %q status = %v, want %v", service, resp.Status, tt.expected)
				}
			}
		})
	}
}

func TestServerStartStop(t *testing.T) {
	calls := 0
	s := NewServer("chatorder.checkout", map[string]Checker{
		"mongo": func(ctx context.Context) error {
			calls++
			return nil
		},
	}, 0, nil)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("expected an immediate check, got %d calls", calls)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("second Start() error = %v", err)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("second Stop() error = %v", err)
	}
}
