// Package models - ticket.go defines the Ticket model and its status/priority
// enumerations. Tickets are the primary tenant-scoped resource; every row carries
// the owning tenant's id and is filtered by the database's row-level security
// policies.
package models

import "time"

// TicketStatus enumerates the ticket workflow states.
type TicketStatus string

const (
	TicketOpen     TicketStatus = "open"
	TicketPending  TicketStatus = "pending"
	TicketResolved TicketStatus = "resolved"
	TicketClosed   TicketStatus = "closed"
)

// IsValid reports whether s is a defined status.
func (s TicketStatus) IsValid() bool {
	switch s {
	case TicketOpen, TicketPending, TicketResolved, TicketClosed:
		return true
	}
	return false
}

// TicketPriority enumerates ticket priorities.
type TicketPriority string

const (
	PriorityLow    TicketPriority = "low"
	PriorityNormal TicketPriority = "normal"
	PriorityHigh   TicketPriority = "high"
	PriorityUrgent TicketPriority = "urgent"
)

// IsValid reports whether p is a defined priority.
func (p TicketPriority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Ticket represents a support request within one tenant.
type Ticket struct {
	ID          string         `db:"id"`
	TenantID    string         `db:"tenant_id"`
	CategoryID  *string        `db:"category_id"`
	RequesterID string         `db:"requester_id"`
	AssigneeID  *string        `db:"assignee_id"`
	Subject     string         `db:"subject"`
	Description string         `db:"description"`
	Status      TicketStatus   `db:"status"`
	Priority    TicketPriority `db:"priority"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

// Comment represents a message on a ticket. Internal comments are visible to
// agents and admins only; visibility beyond tenant isolation is handler policy.
type Comment struct {
	ID        string    `db:"id"`
	TenantID  string    `db:"tenant_id"`
	TicketID  string    `db:"ticket_id"`
	AuthorID  string    `db:"author_id"`
	Body      string    `db:"body"`
	Internal  bool      `db:"internal"`
	CreatedAt time.Time `db:"created_at"`
}

// Attachment represents a file attached to a ticket, stored in the configured
// storage backend under StorageKey.
type Attachment struct {
	ID         string    `db:"id"`
	TenantID   string    `db:"tenant_id"`
	TicketID   string    `db:"ticket_id"`
	UploaderID string    `db:"uploader_id"`
	FileName   string    `db:"file_name"`
	SizeBytes  int64     `db:"size_bytes"`
	StorageKey string    `db:"storage_key"`
	CreatedAt  time.Time `db:"created_at"`
}
