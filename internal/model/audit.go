package model

import "time"

type AuditEntry struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	OccurredAt time.Time `json:"occurred_at"`
	UserID     *int64    `json:"user_id,omitempty"`
	Status     string    `json:"status"`
	Resource   string    `json:"resource,omitempty"`
	Details    any       `json:"details,omitempty"`
}

type AuditQuery struct {
	UserID int64
	Action string
	Page   int
	Limit  int
}

type AuditList struct {
	Entries    []AuditEntry `json:"entries"`
	Pagination Pagination   `json:"pagination"`
}
