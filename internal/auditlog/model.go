package auditlog

import (
	"time"
)

// Entry is one append-only action record. Rows are never updated or
// deleted by application code.
type Entry struct {
	ID         uint64    `json:"id"`
	ActorID    uint64    `json:"actor_id"`
	Action     string    `json:"action"`
	Resource   string    `json:"resource"`
	ResourceID string    `json:"resource_id"`
	Details    string    `json:"details"`
	IPAddress  string    `json:"ip_address"`
	UserAgent  string    `json:"user_agent"`
	StatusCode int       `json:"status_code"`
	CreatedAt  time.Time `json:"created_at"`
}

func (Entry) TableName() string { return "audit_log_entries" }
