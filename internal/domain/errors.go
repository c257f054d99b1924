package domain

import "errors"

var (
	// ErrValidation is returned when participant fields are missing or malformed.
	ErrValidation = errors.New("invalid participant data")
	// ErrInvalidPhone is returned when a phone number fails regional validation.
	ErrInvalidPhone = errors.New("invalid phone number")
	// ErrInvalidCampaign is returned when campaign settings break a setup invariant.
	ErrInvalidCampaign = errors.New("invalid campaign configuration")
	// ErrCampaignNotFound indicates the campaign does not exist or is archived.
	ErrCampaignNotFound = errors.New("campaign not found")
	// ErrCampaignNotActive is returned outside the campaign's active window.
	ErrCampaignNotActive = errors.New("campaign is not active")
	// ErrCampaignFull is returned when the participant cap has been reached.
	ErrCampaignFull = errors.New("campaign has reached its participant limit")
	// ErrDuplicateParticipation is returned when the phone number already entered the campaign.
	ErrDuplicateParticipation = errors.New("phone number has already participated")
	// ErrInsufficientQuestions indicates the campaign has fewer active questions than it is configured to serve.
	ErrInsufficientQuestions = errors.New("not enough active questions for campaign")
	// ErrSessionNotFound is returned when a quiz session does not exist or has expired.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrSessionExpired is returned when a submission arrives past the server-side deadline.
	ErrSessionExpired = errors.New("quiz session has expired")
	// ErrAlreadyCompleted is returned on a second submission for the same attempt.
	ErrAlreadyCompleted = errors.New("quiz already completed")
	// ErrCodeGenerationExhausted indicates repeated gift-code collisions beyond the retry budget.
	ErrCodeGenerationExhausted = errors.New("gift code generation exhausted retries")
)
