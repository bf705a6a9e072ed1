package config

import (
	"strings"
	"time"
)

// GradingConfig contains submission intake and grading backend configuration.
type GradingConfig struct {
	// DispatchQueue is the Redis list new grading jobs are pushed to.
	DispatchQueue string `env:"GRADING_DISPATCH_QUEUE" envDefault:"gradeflow:jobs:pending"`

	// CompletionQueue is the Redis list graded results are consumed from.
	CompletionQueue string `env:"GRADING_COMPLETION_QUEUE" envDefault:"gradeflow:jobs:done"`

	// ResultKeyPrefix prefixes the per-job Redis result keys.
	ResultKeyPrefix string `env:"GRADING_RESULT_KEY_PREFIX" envDefault:"gradeflow:result:"`

	// ActiveSetKey is the Redis set tracking jobs the backend has accepted.
	ActiveSetKey string `env:"GRADING_ACTIVE_SET_KEY" envDefault:"gradeflow:jobs:active"`

	// ResultTTL bounds how long backend results linger in Redis after completion.
	ResultTTL time.Duration `env:"GRADING_RESULT_TTL" envDefault:"24h"`

	// RetentionCount is the number of terminal submissions retained per user and task.
	// Older submissions beyond this count are pruned after each new submission.
	RetentionCount int `env:"GRADING_RETENTION_COUNT" envDefault:"5"`

	// KeepBest protects the highest-graded submission from pruning even when it
	// falls outside the retention window.
	KeepBest bool `env:"GRADING_KEEP_BEST" envDefault:"true"`

	// CompletionConcurrency is the number of completion consumer goroutines.
	CompletionConcurrency int `env:"GRADING_COMPLETION_CONCURRENCY" envDefault:"4"`

	// MaxInputBytes bounds the accepted size of a submission input reference.
	MaxInputBytes int `env:"GRADING_MAX_INPUT_BYTES" envDefault:"1048576"`

	// AllowedExtensions lists the file extensions intake accepts for a
	// submission input reference. An empty list accepts anything.
	AllowedExtensions []string `env:"GRADING_ALLOWED_EXTENSIONS" envDefault:".c,.cpp,.java,.oz,.zip,.tar.gz,.tar.bz2,.txt"`
}

// Sanitize applies guardrails to grading configuration values.
func (g *GradingConfig) Sanitize() {
	if g.RetentionCount < 1 {
		g.RetentionCount = 1
	}
	if g.CompletionConcurrency < 1 {
		g.CompletionConcurrency = 1
	}
	if g.MaxInputBytes < 1 {
		g.MaxInputBytes = 1
	}
	if g.ResultTTL <= 0 {
		g.ResultTTL = 24 * time.Hour
	}
	exts := g.AllowedExtensions[:0]
	for _, ext := range g.AllowedExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts = append(exts, ext)
	}
	g.AllowedExtensions = exts
}

// RecoveryConfig contains startup recovery sweep configuration.
//
// The sweep reconciles jobs that were in flight when the previous process
// stopped. Intake stays closed until the sweep finishes, so the budget below
// bounds startup time when the backend is unreachable.
type RecoveryConfig struct {
	// InitialBackoff is the delay before the first retry of a failed sweep.
	InitialBackoff time.Duration `env:"RECOVERY_INITIAL_BACKOFF" envDefault:"1s"`

	// MaxBackoff caps the exponential growth of the retry delay.
	MaxBackoff time.Duration `env:"RECOVERY_MAX_BACKOFF" envDefault:"30s"`

	// MaxAttempts bounds the number of sweep attempts before startup fails.
	MaxAttempts int `env:"RECOVERY_MAX_ATTEMPTS" envDefault:"10"`
}

// Sanitize applies guardrails to recovery configuration values.
func (r *RecoveryConfig) Sanitize() {
	if r.InitialBackoff < 100*time.Millisecond {
		r.InitialBackoff = 100 * time.Millisecond
	}
	if r.MaxBackoff < r.InitialBackoff {
		r.MaxBackoff = r.InitialBackoff
	}
	if r.MaxAttempts < 1 {
		r.MaxAttempts = 1
	}
}
