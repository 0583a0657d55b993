package dto

import "time"

// Collection names carried by change events.
const (
	CollectionChallenges  = "challenges"
	CollectionSubmissions = "submissions"
	CollectionUsers       = "users"
)

// Change-event actions.
const (
	ChangeActionCreated = "created"
	ChangeActionUpdated = "updated"
	ChangeActionDeleted = "deleted"
)

// ChangeEvent notifies subscribers that a document in one of the persisted
// collections changed. Subscribers re-read and re-derive state instead of
// trusting any payload beyond the reference.
type ChangeEvent struct {
	Collection string    `json:"collection"`
	Action     string    `json:"action"`
	DocumentID string    `json:"document_id"`
	OccurredAt time.Time `json:"occurred_at"`
}
