package config

import (
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"
)

func TestParseServices(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    map[ServiceMode]bool
		expectError bool
	}{
		{
			name:  "single service - completion-runner",
			input: "completion-runner",
			expected: map[ServiceMode]bool{
				ServiceModeCompletionRunner: true,
			},
			expectError: false,
		},
		{
			name:  "single service - outcome-runner",
			input: "outcome-runner",
			expected: map[ServiceMode]bool{
				ServiceModeOutcomeRunner: true,
			},
			expectError: false,
		},
		{
			name:  "single service - reaper",
			input: "reaper",
			expected: map[ServiceMode]bool{
				ServiceModeReaper: true,
			},
			expectError: false,
		},
		{
			name:  "all services",
			input: "completion-runner,outcome-runner,reaper",
			expected: map[ServiceMode]bool{
				ServiceModeCompletionRunner: true,
				ServiceModeOutcomeRunner:    true,
				ServiceModeReaper:           true,
			},
			expectError: false,
		},
		{
			name:  "services with spaces",
			input: " completion-runner , outcome-runner ",
			expected: map[ServiceMode]bool{
				ServiceModeCompletionRunner: true,
				ServiceModeOutcomeRunner:    true,
			},
			expectError: false,
		},
		{
			name:  "duplicate services",
			input: "reaper,reaper,outcome-runner",
			expected: map[ServiceMode]bool{
				ServiceModeReaper:        true,
				ServiceModeOutcomeRunner: true,
			},
			expectError: false,
		},
		{
			name:        "empty string",
			input:       "",
			expected:    nil,
			expectError: true,
		},
		{
			name:        "only spaces and commas",
			input:       " , , ",
			expected:    nil,
			expectError: true,
		},
		{
			name:        "invalid service name",
			input:       "completion-runner,grader",
			expected:    nil,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseServices(tt.input)

			if tt.expectError {
				if err == nil {
					t.Errorf("expected error but got none")
				}
				return
			}

			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}

			if len(result) != len(tt.expected) {
				t.Errorf("expected %d services, got %d", len(tt.expected), len(result))
				return
			}

			for service, expected := range tt.expected {
				if result[service] != expected {
					t.Errorf("expected service %s to be %v, got %v", service, expected, result[service])
				}
			}
		})
	}
}

func TestConfig_GetEnabledServices(t *testing.T) {
	tests := []struct {
		name        string
		services    string
		expected    map[ServiceMode]bool
		expectError bool
	}{
		{
			name:     "default configuration",
			services: "completion-runner,outcome-runner",
			expected: map[ServiceMode]bool{
				ServiceModeCompletionRunner: true,
				ServiceModeOutcomeRunner:    true,
			},
			expectError: false,
		},
		{
			name:     "reaper only",
			services: "reaper",
			expected: map[ServiceMode]bool{
				ServiceModeReaper: true,
			},
			expectError: false,
		},
		{
			name:        "invalid configuration",
			services:    "invalid-service",
			expected:    nil,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := AppConfig{Services: tt.services}
			result, err := cfg.GetEnabledServices()

			if tt.expectError {
				if err == nil {
					t.Errorf("expected error but got none")
				}
				return
			}

			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}

			if len(result) != len(tt.expected) {
				t.Errorf("expected %d services, got %d", len(tt.expected), len(result))
				return
			}

			for service, expected := range tt.expected {
				if result[service] != expected {
					t.Errorf("expected service %s to be %v, got %v", service, expected, result[service])
				}
			}
		})
	}
}

func TestAppConfig_ParseGradingEnv(t *testing.T) {
	t.Setenv("GRADING_DISPATCH_QUEUE", "custom:jobs:pending")
	t.Setenv("GRADING_RETENTION_COUNT", "3")
	t.Setenv("GRADING_KEEP_BEST", "false")
	t.Setenv("OUTCOMES_MAX_ATTEMPTS", "7")
	t.Setenv("RECOVERY_MAX_ATTEMPTS", "4")

	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse config: %v", err)
	}

	if cfg.Grading.DispatchQueue != "custom:jobs:pending" {
		t.Errorf("expected custom dispatch queue, got %q", cfg.Grading.DispatchQueue)
	}
	if cfg.Grading.RetentionCount != 3 {
		t.Errorf("expected retention count 3, got %d", cfg.Grading.RetentionCount)
	}
	if cfg.Grading.KeepBest {
		t.Error("expected keep best to be disabled")
	}
	if cfg.Outcomes.MaxAttempts != 7 {
		t.Errorf("expected outcome max attempts 7, got %d", cfg.Outcomes.MaxAttempts)
	}
	if cfg.Recovery.MaxAttempts != 4 {
		t.Errorf("expected recovery max attempts 4, got %d", cfg.Recovery.MaxAttempts)
	}
	if len(cfg.Grading.AllowedExtensions) != 8 {
		t.Fatalf("expected 8 default allowed extensions, got %v", cfg.Grading.AllowedExtensions)
	}
	if cfg.Grading.AllowedExtensions[0] != ".c" || cfg.Grading.AllowedExtensions[5] != ".tar.gz" {
		t.Errorf("unexpected default allowed extensions: %v", cfg.Grading.AllowedExtensions)
	}
}

func TestGradingConfig_SanitizeAllowedExtensions(t *testing.T) {
	cfg := GradingConfig{
		AllowedExtensions: []string{" .PY ", "zip", "", "Tar.GZ"},
	}
	cfg.Sanitize()

	want := []string{".py", ".zip", ".tar.gz"}
	if len(cfg.AllowedExtensions) != len(want) {
		t.Fatalf("expected %v, got %v", want, cfg.AllowedExtensions)
	}
	for i, ext := range want {
		if cfg.AllowedExtensions[i] != ext {
			t.Errorf("expected extension %q at %d, got %q", ext, i, cfg.AllowedExtensions[i])
		}
	}
}

func TestAppConfig_SanitizeGuardrails(t *testing.T) {
	cfg := AppConfig{
		Services: "completion-runner",
		Grading: GradingConfig{
			RetentionCount:        0,
			CompletionConcurrency: -1,
			MaxInputBytes:         0,
		},
		Recovery: RecoveryConfig{
			InitialBackoff: time.Millisecond,
			MaxBackoff:     0,
			MaxAttempts:    0,
		},
		Reaper: ReaperConfig{
			Interval:        time.Second,
			DeliveredMaxAge: time.Minute,
			BatchSize:       0,
		},
	}

	cfg.Sanitize()

	if cfg.Grading.RetentionCount != 1 {
		t.Errorf("expected retention count floor 1, got %d", cfg.Grading.RetentionCount)
	}
	if cfg.Grading.CompletionConcurrency != 1 {
		t.Errorf("expected completion concurrency floor 1, got %d", cfg.Grading.CompletionConcurrency)
	}
	if cfg.Grading.MaxInputBytes != 1 {
		t.Errorf("expected max input bytes floor 1, got %d", cfg.Grading.MaxInputBytes)
	}
	if cfg.Recovery.InitialBackoff != 100*time.Millisecond {
		t.Errorf("expected initial backoff floor 100ms, got %v", cfg.Recovery.InitialBackoff)
	}
	if cfg.Recovery.MaxBackoff != cfg.Recovery.InitialBackoff {
		t.Errorf("expected max backoff raised to initial backoff, got %v", cfg.Recovery.MaxBackoff)
	}
	if cfg.Recovery.MaxAttempts != 1 {
		t.Errorf("expected recovery max attempts floor 1, got %d", cfg.Recovery.MaxAttempts)
	}
	if cfg.Reaper.Interval != time.Minute {
		t.Errorf("expected reaper interval floor 1m, got %v", cfg.Reaper.Interval)
	}
	if cfg.Reaper.DeliveredMaxAge != time.Hour {
		t.Errorf("expected delivered max age floor 1h, got %v", cfg.Reaper.DeliveredMaxAge)
	}
	if cfg.Reaper.BatchSize != 1 {
		t.Errorf("expected batch size floor 1, got %d", cfg.Reaper.BatchSize)
	}
}

func TestAppConfig_DetectDevMode(t *testing.T) {
	t.Setenv("APP_ENV", "development")

	cfg := AppConfig{Services: "reaper"}
	cfg.Sanitize()

	if !cfg.IsDev {
		t.Error("expected dev mode from APP_ENV")
	}
}
