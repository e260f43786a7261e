package gateway_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devicelink/tbclient/gateway"
)

func TestGetTenantDevicesDefaults(t *testing.T) {
	p, gw := newTestGateway(t)

	devices, err := gw.GetTenantDevices(gateway.DeviceListParams{})
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "thermostat-1", devices[0].Name)

	// defaults: pageSize 100, page 0, ascending by name
	assert.Equal(t, "100", p.LastDeviceQuery.Get("pageSize"))
	assert.Equal(t, "0", p.LastDeviceQuery.Get("page"))
	assert.Equal(t, "name", p.LastDeviceQuery.Get("sortProperty"))
	assert.Equal(t, "ASC", p.LastDeviceQuery.Get("sortOrder"))
}

func TestGetTenantDevicesExplicitPaging(t *testing.T) {
	p, gw := newTestGateway(t)

	_, err := gw.GetTenantDevices(gateway.DeviceListParams{
		PageSize: 25, Page: 3, SortProperty: "createdTime", SortOrder: "DESC"})
	require.NoError(t, err)
	assert.Equal(t, "25", p.LastDeviceQuery.Get("pageSize"))
	assert.Equal(t, "3", p.LastDeviceQuery.Get("page"))
	assert.Equal(t, "createdTime", p.LastDeviceQuery.Get("sortProperty"))
	assert.Equal(t, "DESC", p.LastDeviceQuery.Get("sortOrder"))
}

func TestGetDeviceInfo(t *testing.T) {
	p, gw := newTestGateway(t)

	device, err := gw.GetDeviceInfo(p.FirstDeviceID())
	require.NoError(t, err)
	assert.Equal(t, "thermostat-1", device.Name)

	_, err = gw.GetDeviceInfo("no-such-device")
	require.Error(t, err)
}

func TestGetDeviceInfoRequiresID(t *testing.T) {
	_, gw := newTestGateway(t)
	_, err := gw.GetDeviceInfo("")
	require.Error(t, err)
}
