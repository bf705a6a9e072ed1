package data

import "log/slog"

// RepoConfig holds shared configuration options for repositories.
type RepoConfig struct {
	Logger       *slog.Logger
	TimeProvider TimeProvider
}
