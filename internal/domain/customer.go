package domain

import "time"

// DefaultCustomerName is used when an anonymous customer submits a ticket
// without giving a name.
const DefaultCustomerName = "Anonymous"

// Customer identifies a ticket requester. Anonymous browsers are correlated
// to a customer record through the opaque session token; there is no
// cryptographic binding. Customers are never deleted.
type Customer struct {
	ID        string
	Name      string
	Email     *string
	SessionID string
	CreatedAt time.Time
	UpdatedAt time.Time
}
