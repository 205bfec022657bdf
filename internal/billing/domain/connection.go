package domain

// ConnectionState is the lifecycle state of the billing client connection.
type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateReady        ConnectionState = "ready"
	StateFailed       ConnectionState = "failed"
)

// IsReady reports whether operations may proceed.
func (s ConnectionState) IsReady() bool {
	return s == StateReady
}
