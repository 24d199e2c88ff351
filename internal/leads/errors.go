package leads

import "errors"

var (
	// ErrMissingOrgID is returned when the org id is empty
	ErrMissingOrgID = errors.New("org_id is required")

	// ErrMissingConversation is returned when the conversation id is empty
	ErrMissingConversation = errors.New("conversation_id is required")

	// ErrNothingToStore is returned when an analysis extracted no lead info
	ErrNothingToStore = errors.New("analysis has no lead info")

	// ErrLeadNotFound is returned when a lead is not found
	ErrLeadNotFound = errors.New("lead not found")
)
