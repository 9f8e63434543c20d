// internal/service/order/domain/status.go
package domain

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending    Status = "PENDING"    // received, not yet validated
	StatusValidating Status = "VALIDATING" // stock checks in progress
	StatusConfirmed  Status = "CONFIRMED"  // durably persisted; visible to the customer
	StatusRejected   Status = "REJECTED"   // failed validation; never persisted
	// StatusFailedPublish flags a confirmed order whose debit messages
	// did not all reach the broker. The order itself stays visible; the
	// resend sweep re-publishes the missing lines and promotes the order
	// back to CONFIRMED.
	StatusFailedPublish Status = "FAILED_PUBLISH"
)
