package domain

import "context"

// ResponseCode is the provider's result code.
type ResponseCode int

const (
	ResponseOK                  ResponseCode = 0
	ResponseUserCanceled        ResponseCode = 1
	ResponseServiceUnavailable  ResponseCode = 2
	ResponseBillingUnavailable  ResponseCode = 3
	ResponseItemUnavailable     ResponseCode = 4
	ResponseDeveloperError      ResponseCode = 5
	ResponseError               ResponseCode = 6
	ResponseItemAlreadyOwned    ResponseCode = 7
	ResponseServiceDisconnected ResponseCode = -1
)

// BillingResult is the outcome of a provider call.
type BillingResult struct {
	Code         ResponseCode
	DebugMessage string
}

// OK reports a successful result.
func (r BillingResult) OK() bool {
	return r.Code == ResponseOK
}

// Result builds a BillingResult.
func Result(code ResponseCode, debugMessage string) BillingResult {
	return BillingResult{Code: code, DebugMessage: debugMessage}
}

// FlowParams selects what a purchase flow should sell.
type FlowParams struct {
	ProductID  string
	OfferToken string
}

// Listener receives unsolicited signals from the billing client. Callbacks may
// arrive on any goroutine.
type Listener interface {
	OnPurchasesUpdated(result BillingResult, purchases []Entitlement)
	OnServiceDisconnected()
}

// Client is the external billing provider.
type Client interface {
	SetListener(l Listener)
	StartConnection(ctx context.Context) BillingResult
	EndConnection()
	QueryProducts(ctx context.Context, productIDs []string) (BillingResult, []Product)
	QueryPurchases(ctx context.Context) (BillingResult, []Entitlement)
	LaunchBillingFlow(ctx context.Context, params FlowParams) BillingResult
}
