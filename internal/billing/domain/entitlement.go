package domain

import "time"

// PurchaseState is the lifecycle state of an entitlement.
type PurchaseState string

const (
	PurchaseStatePending   PurchaseState = "pending"
	PurchaseStatePurchased PurchaseState = "purchased"
	PurchaseStateCancelled PurchaseState = "cancelled"
)

// Entitlement is a record of the user's right to one or more products.
type Entitlement struct {
	OrderID       string        `json:"orderId"`
	PackageName   string        `json:"packageName,omitempty"`
	PurchaseToken string        `json:"purchaseToken"`
	PurchaseTime  time.Time     `json:"purchaseTime"`
	State         PurchaseState `json:"purchaseState"`
	Acknowledged  bool          `json:"isAcknowledged"`
	AutoRenewing  bool          `json:"isAutoRenewing"`
	ProductIDs    []string      `json:"products"`
}

// Grants reports whether the entitlement covers productID.
func (e Entitlement) Grants(productID string) bool {
	for _, id := range e.ProductIDs {
		if id == productID {
			return true
		}
	}
	return false
}

// IsActive reports whether the purchase has completed.
func (e Entitlement) IsActive() bool {
	return e.State == PurchaseStatePurchased
}
