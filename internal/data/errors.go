package data

import "errors"

// Shared sentinel errors for data-layer repositories.
var (
	// Submission repository sentinels.
	ErrSubmissionNotFound = errors.New("submission not found")

	// Grading job repository sentinels.
	ErrJobNotFound = errors.New("grading job not found")

	// Grade repository sentinels.
	ErrGradeNotFound = errors.New("user task grade not found")

	// Outcome repository sentinels.
	ErrDeliveryNotFound = errors.New("outcome delivery not found")
)
