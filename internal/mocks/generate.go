// Package mocks provides mock implementations for testing the gradeflow services.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for our repository interfaces.
// The mocks are generated using go:generate directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	mockRepo := mocks.NewMockSubmissionRepository(ctrl)
//	mockRepo.EXPECT().GetByID(gomock.Any(), gomock.Any()).Return(submission, nil)
package mocks

// Generate mock for SubmissionRepository interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=submission_repository_mock.go github.com/opencampus/gradeflow/internal/core SubmissionRepository

// Generate mock for GradingJobRepository interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=grading_job_repository_mock.go github.com/opencampus/gradeflow/internal/core GradingJobRepository

// Generate mock for GradeRepository interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=grade_repository_mock.go github.com/opencampus/gradeflow/internal/core GradeRepository

// Generate mock for OutcomeRepository interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=outcome_repository_mock.go github.com/opencampus/gradeflow/internal/core OutcomeRepository

// Generate mock for GradingBackend interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=grading_backend_mock.go github.com/opencampus/gradeflow/internal/core GradingBackend

// Generate mock for TaskMetadataProvider interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=task_metadata_provider_mock.go github.com/opencampus/gradeflow/internal/core TaskMetadataProvider

// Generate mock for LMSOutcomeClient interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=lms_outcome_client_mock.go github.com/opencampus/gradeflow/internal/core LMSOutcomeClient

// Generate mock for ReaperRepository interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=reaper_repository_mock.go github.com/opencampus/gradeflow/internal/core ReaperRepository
