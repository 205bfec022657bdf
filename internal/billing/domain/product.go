package domain

import "strings"

// RecurrenceMode describes how a pricing phase repeats.
type RecurrenceMode int

const (
	RecurrenceInfinite RecurrenceMode = 1
	RecurrenceFinite   RecurrenceMode = 2
	RecurrenceNone     RecurrenceMode = 3
)

// PricingPhase is one segment of an offer's price schedule.
type PricingPhase struct {
	FormattedPrice    string         `json:"formattedPrice" yaml:"formatted_price"`
	PriceAmountMicros int64          `json:"priceAmountMicros" yaml:"price_amount_micros"`
	PriceCurrencyCode string         `json:"priceCurrencyCode" yaml:"price_currency_code"`
	BillingPeriod     string         `json:"billingPeriod" yaml:"billing_period"`
	BillingCycleCount int            `json:"billingCycleCount" yaml:"billing_cycle_count"`
	RecurrenceMode    RecurrenceMode `json:"recurrenceMode" yaml:"recurrence_mode"`
}

// IsFree reports whether the phase costs nothing.
func (p PricingPhase) IsFree() bool {
	return p.PriceAmountMicros == 0
}

// Offer is a purchasable configuration of a product.
type Offer struct {
	OfferID       string         `json:"offerId,omitempty" yaml:"offer_id"`
	OfferToken    string         `json:"offerToken" yaml:"offer_token"`
	BasePlanID    string         `json:"basePlanId,omitempty" yaml:"base_plan_id"`
	PricingPhases []PricingPhase `json:"pricingPhases" yaml:"pricing_phases"`
}

// IntroductoryPhase returns the leading phase when it is a finite phase
// followed by at least one more phase.
func (o Offer) IntroductoryPhase() (PricingPhase, bool) {
	if len(o.PricingPhases) < 2 {
		return PricingPhase{}, false
	}
	first := o.PricingPhases[0]
	if first.RecurrenceMode == RecurrenceInfinite {
		return PricingPhase{}, false
	}
	return first, true
}

// HasFreeTrial reports whether the offer opens with a free introductory phase.
// This describes the catalog, not whether any given entitlement is in trial.
func (o Offer) HasFreeTrial() bool {
	intro, ok := o.IntroductoryPhase()
	return ok && intro.IsFree()
}

// Product is a catalog entry.
type Product struct {
	ProductID   string  `json:"productId" yaml:"product_id"`
	Name        string  `json:"name" yaml:"name"`
	Title       string  `json:"title" yaml:"title"`
	Description string  `json:"description" yaml:"description"`
	Offers      []Offer `json:"subscriptionOffers" yaml:"offers"`
}

// DefaultOffer returns the first offer, if any.
func (p Product) DefaultOffer() (Offer, bool) {
	if len(p.Offers) == 0 {
		return Offer{}, false
	}
	return p.Offers[0], true
}

// OfferByToken finds the offer carrying token.
func (p Product) OfferByToken(token string) (Offer, bool) {
	for _, o := range p.Offers {
		if o.OfferToken == token {
			return o, true
		}
	}
	return Offer{}, false
}

// NormalizeProductIDs trims ids, drops blanks and duplicates, and keeps order.
func NormalizeProductIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
