// Package api holds the wire types shared between the session manager,
// the resource gateway and the telemetry stream.
package api

// EntityType identifies the kind of addressable platform object.
// Only device entities are exercised by this SDK.
type EntityType string

const EntityTypeDevice EntityType = "DEVICE"

// EntityRef addresses one entity on the platform. Immutable, supplied
// per-call by the caller.
type EntityRef struct {
	EntityType EntityType `json:"entityType"`
	EntityID   string     `json:"entityId"`
}

// NewDeviceRef returns a reference to a device entity.
func NewDeviceRef(deviceID string) EntityRef {
	return EntityRef{EntityType: EntityTypeDevice, EntityID: deviceID}
}

// EntityID is the platform's composite id object as it appears inside
// device, dashboard, user and customer records.
type EntityID struct {
	EntityType EntityType `json:"entityType"`
	ID         string     `json:"id"`
}
