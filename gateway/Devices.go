package gateway

import (
	"fmt"
	"net/http"
	"strconv"

	jsoniter "github.com/json-iterator/go"

	"github.com/devicelink/tbclient/api"
)

// DeviceListParams select a page of tenant devices. Zero values fall back
// to pageSize 100, page 0, sorted ascending by name.
type DeviceListParams struct {
	PageSize     int
	Page         int
	SortProperty string
	SortOrder    string
}

// GetTenantDevices lists the tenant's devices, one page at a time.
// Returns the data sequence of the page envelope.
func (g *Gateway) GetTenantDevices(p DeviceListParams) ([]api.Device, error) {
	if p.PageSize == 0 {
		p.PageSize = api.DefaultListPageSize
	}
	if p.SortProperty == "" {
		p.SortProperty = api.DefaultDeviceSortProperty
	}
	if p.SortOrder == "" {
		p.SortOrder = api.DefaultSortOrder
	}
	qParams := map[string]string{
		"pageSize":     strconv.Itoa(p.PageSize),
		"page":         strconv.Itoa(p.Page),
		"sortProperty": p.SortProperty,
		"sortOrder":    p.SortOrder,
	}
	respRaw, status, err := g.session.Signer().Get("/api/tenant/devices", qParams)
	if err != nil || status != http.StatusOK {
		return nil, fmt.Errorf("listing tenant devices: %w", err)
	}
	var page api.PageData[api.Device]
	if err = jsoniter.Unmarshal(respRaw, &page); err != nil {
		return nil, fmt.Errorf("listing tenant devices: decoding page: %w", err)
	}
	return page.Data, nil
}

// GetDeviceInfo fetches a single device by id.
func (g *Gateway) GetDeviceInfo(deviceID string) (*api.Device, error) {
	if deviceID == "" {
		return nil, fmt.Errorf("get device info: deviceID is required")
	}
	respRaw, status, err := g.session.Signer().Get("/api/device/"+deviceID, nil)
	if err != nil || status != http.StatusOK {
		return nil, fmt.Errorf("get device %q: %w", deviceID, err)
	}
	var device api.Device
	if err = jsoniter.Unmarshal(respRaw, &device); err != nil {
		return nil, fmt.Errorf("get device %q: decoding: %w", deviceID, err)
	}
	return &device, nil
}
