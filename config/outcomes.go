package config

import "time"

// OutcomesConfig contains LMS outcome delivery configuration.
type OutcomesConfig struct {
	// Concurrency is the number of delivery worker goroutines.
	Concurrency int `env:"OUTCOMES_CONCURRENCY" envDefault:"2"`

	// BatchSize is the maximum number of deliveries reserved per poll.
	BatchSize int `env:"OUTCOMES_BATCH_SIZE" envDefault:"25"`

	// Lease is how long a reserved delivery is protected from other workers.
	Lease time.Duration `env:"OUTCOMES_LEASE" envDefault:"1m"`

	// PollInterval is the delay between polls when no deliveries are due.
	PollInterval time.Duration `env:"OUTCOMES_POLL_INTERVAL" envDefault:"5s"`

	// BackoffBase is the first retry delay after a failed delivery attempt.
	// Subsequent attempts double the delay up to BackoffCap.
	BackoffBase time.Duration `env:"OUTCOMES_BACKOFF_BASE" envDefault:"30s"`

	// BackoffCap bounds the exponential retry delay.
	BackoffCap time.Duration `env:"OUTCOMES_BACKOFF_CAP" envDefault:"1h"`

	// MaxAttempts is the number of delivery attempts before a delivery is abandoned.
	MaxAttempts int `env:"OUTCOMES_MAX_ATTEMPTS" envDefault:"10"`

	// RequestTimeout bounds each HTTP call to the LMS outcome service.
	RequestTimeout time.Duration `env:"OUTCOMES_REQUEST_TIMEOUT" envDefault:"15s"`

	// ConsumerKey identifies this platform to the LMS outcome service.
	ConsumerKey string `env:"OUTCOMES_CONSUMER_KEY"`

	// ConsumerSecret signs outcome requests. Required when outcome delivery is enabled.
	ConsumerSecret string `env:"OUTCOMES_CONSUMER_SECRET"`
}

// Sanitize applies guardrails to outcome delivery configuration values.
func (o *OutcomesConfig) Sanitize() {
	if o.Concurrency < 1 {
		o.Concurrency = 1
	}
	if o.BatchSize < 1 {
		o.BatchSize = 1
	}
	if o.Lease < 5*time.Second {
		o.Lease = 5 * time.Second
	}
	if o.PollInterval < time.Second {
		o.PollInterval = time.Second
	}
	if o.BackoffBase < time.Second {
		o.BackoffBase = time.Second
	}
	if o.BackoffCap < o.BackoffBase {
		o.BackoffCap = o.BackoffBase
	}
	if o.MaxAttempts < 1 {
		o.MaxAttempts = 1
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 15 * time.Second
	}
}
