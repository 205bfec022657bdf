package application

import (
	"time"

	"github.com/felixgeelhaar/nativebridge/internal/billing/domain"
)

// JournalEntry is a dispatched event as kept by the journal.
type JournalEntry struct {
	EventID     string              `json:"eventId"`
	Kind        domain.EventKind    `json:"kind"`
	OccurredAt  time.Time           `json:"occurredAt"`
	Entitlement *domain.Entitlement `json:"entitlement,omitempty"`
	Message     string              `json:"message,omitempty"`
}

// EntryFor converts a purchase event into a journal entry.
func EntryFor(event domain.PurchaseEvent) JournalEntry {
	entry := JournalEntry{
		EventID:    event.EventID().String(),
		Kind:       event.Kind(),
		OccurredAt: event.OccurredAt(),
	}
	switch e := event.(type) {
	case *domain.EntitlementUpdated:
		ent := e.Entitlement
		entry.Entitlement = &ent
	case *domain.PurchaseFailed:
		entry.Message = e.Message
	}
	return entry
}

// Journal keeps the most recent dispatched events in memory. It is owned by
// the loop.
type Journal struct {
	entries []JournalEntry
	next    int
	full    bool
}

// NewJournal creates a journal holding up to capacity entries.
func NewJournal(capacity int) *Journal {
	if capacity <= 0 {
		capacity = 1
	}
	return &Journal{entries: make([]JournalEntry, capacity)}
}

// Record appends event, evicting the oldest entry when full.
func (j *Journal) Record(event domain.PurchaseEvent) {
	j.entries[j.next] = EntryFor(event)
	j.next = (j.next + 1) % len(j.entries)
	if j.next == 0 {
		j.full = true
	}
}

// Recent returns up to limit entries, oldest first. A limit of zero or less
// returns everything held.
func (j *Journal) Recent(limit int) []JournalEntry {
	var ordered []JournalEntry
	if j.full {
		ordered = append(ordered, j.entries[j.next:]...)
	}
	ordered = append(ordered, j.entries[:j.next]...)
	if limit > 0 && len(ordered) > limit {
		ordered = ordered[len(ordered)-limit:]
	}
	return ordered
}

// Reset drops every entry.
func (j *Journal) Reset() {
	for i := range j.entries {
		j.entries[i] = JournalEntry{}
	}
	j.next = 0
	j.full = false
}
