package domain

import "errors"

var (
	// ErrSubmissionsDisabled is returned when the event is not live or new
	// entries are switched off.
	ErrSubmissionsDisabled = errors.New("submissions are currently disabled")
	// ErrChallengeLocked is returned when a participant targets a challenge
	// whose predecessor is not yet solved.
	ErrChallengeLocked = errors.New("challenge is locked")
	// ErrEmptyAnswer is returned for empty or whitespace-only submissions;
	// these never reach the ledger.
	ErrEmptyAnswer = errors.New("answer must not be empty")
	// ErrChallengeNotFound indicates an unknown or inactive challenge ID.
	ErrChallengeNotFound = errors.New("challenge not found")
	// ErrRecordNotFound indicates a ledger row that does not exist.
	ErrRecordNotFound = errors.New("progress record not found")
	// ErrRecordFinalized is returned on writes against a solved record.
	ErrRecordFinalized = errors.New("progress record already finalized")
)
