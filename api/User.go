package api

// User is a platform account as returned by the user endpoints, including
// the "who am I" verification probe.
type User struct {
	ID             EntityID       `json:"id"`
	CreatedTime    int64          `json:"createdTime,omitempty"`
	TenantID       *EntityID      `json:"tenantId,omitempty"`
	CustomerID     *EntityID      `json:"customerId,omitempty"`
	Email          string         `json:"email"`
	Authority      string         `json:"authority,omitempty"`
	FirstName      string         `json:"firstName,omitempty"`
	LastName       string         `json:"lastName,omitempty"`
	AdditionalInfo map[string]any `json:"additionalInfo,omitempty"`
}

// Customer is a tenant customer record. The gateway only needs its id for
// the per-customer user fan-out but the full record is decoded for callers.
type Customer struct {
	ID             EntityID       `json:"id"`
	CreatedTime    int64          `json:"createdTime,omitempty"`
	TenantID       *EntityID      `json:"tenantId,omitempty"`
	Title          string         `json:"title"`
	Email          string         `json:"email,omitempty"`
	Country        string         `json:"country,omitempty"`
	City           string         `json:"city,omitempty"`
	AdditionalInfo map[string]any `json:"additionalInfo,omitempty"`
}
