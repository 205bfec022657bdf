package domain

import (
	sharedDomain "github.com/felixgeelhaar/nativebridge/internal/shared/domain"
)

const subjectType = "Purchase"

// Routing keys for purchase events.
const (
	RoutingKeyEntitlementUpdated = "billing.entitlement.updated"
	RoutingKeyPurchaseCancelled  = "billing.purchase.cancelled"
	RoutingKeyPurchaseFailed     = "billing.purchase.failed"
)

// EventKind is the name under which subscribers receive an event.
type EventKind string

const (
	EventEntitlementUpdated EventKind = "entitlementUpdated"
	EventPurchaseCancelled  EventKind = "purchaseCancelled"
	EventPurchaseError      EventKind = "purchaseError"
)

// PurchaseEvent is one classified outcome of an inbound provider update.
type PurchaseEvent interface {
	sharedDomain.DomainEvent
	Kind() EventKind
}

// EntitlementUpdated is emitted once per entitlement changed by a successful update.
type EntitlementUpdated struct {
	sharedDomain.BaseEvent
	Entitlement Entitlement
}

// NewEntitlementUpdated creates an EntitlementUpdated event.
func NewEntitlementUpdated(e Entitlement) *EntitlementUpdated {
	return &EntitlementUpdated{
		BaseEvent:   sharedDomain.NewBaseEvent(e.PurchaseToken, subjectType, RoutingKeyEntitlementUpdated),
		Entitlement: e,
	}
}

func (e *EntitlementUpdated) Kind() EventKind { return EventEntitlementUpdated }

// PurchaseCancelled is emitted when the user aborts a purchase flow.
type PurchaseCancelled struct {
	sharedDomain.BaseEvent
}

// NewPurchaseCancelled creates a PurchaseCancelled event.
func NewPurchaseCancelled() *PurchaseCancelled {
	return &PurchaseCancelled{
		BaseEvent: sharedDomain.NewBaseEvent("", subjectType, RoutingKeyPurchaseCancelled),
	}
}

func (e *PurchaseCancelled) Kind() EventKind { return EventPurchaseCancelled }

// PurchaseFailed carries the provider's diagnostic for any other failed update.
type PurchaseFailed struct {
	sharedDomain.BaseEvent
	Code    ResponseCode
	Message string
}

// NewPurchaseFailed creates a PurchaseFailed event.
func NewPurchaseFailed(code ResponseCode, message string) *PurchaseFailed {
	return &PurchaseFailed{
		BaseEvent: sharedDomain.NewBaseEvent("", subjectType, RoutingKeyPurchaseFailed),
		Code:      code,
		Message:   message,
	}
}

func (e *PurchaseFailed) Kind() EventKind { return EventPurchaseError }

// ClassifyUpdate turns one inbound provider update into the events it produces.
func ClassifyUpdate(result BillingResult, purchases []Entitlement) []PurchaseEvent {
	switch {
	case result.OK() && purchases != nil:
		events := make([]PurchaseEvent, 0, len(purchases))
		for _, p := range purchases {
			events = append(events, NewEntitlementUpdated(p))
		}
		return events
	case result.Code == ResponseUserCanceled:
		return []PurchaseEvent{NewPurchaseCancelled()}
	default:
		return []PurchaseEvent{NewPurchaseFailed(result.Code, result.DebugMessage)}
	}
}
