package api

// Device is a device record as returned by the device endpoints.
type Device struct {
	ID             EntityID       `json:"id"`
	CreatedTime    int64          `json:"createdTime,omitempty"`
	TenantID       *EntityID      `json:"tenantId,omitempty"`
	CustomerID     *EntityID      `json:"customerId,omitempty"`
	Name           string         `json:"name"`
	Type           string         `json:"type,omitempty"`
	Label          string         `json:"label,omitempty"`
	AdditionalInfo map[string]any `json:"additionalInfo,omitempty"`
}

// Dashboard is a dashboard record. Configuration is kept as raw JSON as the
// SDK never interprets widget layout.
type Dashboard struct {
	ID             EntityID       `json:"id"`
	CreatedTime    int64          `json:"createdTime,omitempty"`
	TenantID       *EntityID      `json:"tenantId,omitempty"`
	Name           string         `json:"name,omitempty"`
	Title          string         `json:"title"`
	Image          string         `json:"image,omitempty"`
	Configuration  map[string]any `json:"configuration,omitempty"`
	AssignedCustomers []struct {
		CustomerID *EntityID `json:"customerId,omitempty"`
		Title      string    `json:"title,omitempty"`
		Public     bool      `json:"public,omitempty"`
	} `json:"assignedCustomers,omitempty"`
}
