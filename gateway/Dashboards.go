package gateway

import (
	"fmt"
	"net/http"
	"strconv"

	jsoniter "github.com/json-iterator/go"

	"github.com/devicelink/tbclient/api"
)

// PageParams select one page of a listing. Zero values fall back to
// pageSize 100, page 0.
type PageParams struct {
	PageSize int
	Page     int
}

func (p PageParams) query() map[string]string {
	if p.PageSize == 0 {
		p.PageSize = api.DefaultListPageSize
	}
	return map[string]string{
		"pageSize": strconv.Itoa(p.PageSize),
		"page":     strconv.Itoa(p.Page),
	}
}

// PublicDashboardLink is the shareable address of a published dashboard.
type PublicDashboardLink struct {
	DashboardID string
	PublicID    string
	PublicLink  string
}

// GetDashboards lists the tenant's dashboards, one page at a time.
func (g *Gateway) GetDashboards(p PageParams) ([]api.Dashboard, error) {
	respRaw, status, err := g.session.Signer().Get("/api/tenant/dashboards", p.query())
	if err != nil || status != http.StatusOK {
		return nil, fmt.Errorf("listing dashboards: %w", err)
	}
	var page api.PageData[api.Dashboard]
	if err = jsoniter.Unmarshal(respRaw, &page); err != nil {
		return nil, fmt.Errorf("listing dashboards: decoding page: %w", err)
	}
	return page.Data, nil
}

// GetDashboardInfo fetches a single dashboard by id.
func (g *Gateway) GetDashboardInfo(dashboardID string) (*api.Dashboard, error) {
	if dashboardID == "" {
		return nil, fmt.Errorf("get dashboard info: dashboardID is required")
	}
	respRaw, status, err := g.session.Signer().Get("/api/dashboard/"+dashboardID, nil)
	if err != nil || status != http.StatusOK {
		return nil, fmt.Errorf("get dashboard %q: %w", dashboardID, err)
	}
	var dashboard api.Dashboard
	if err = jsoniter.Unmarshal(respRaw, &dashboard); err != nil {
		return nil, fmt.Errorf("get dashboard %q: decoding: %w", dashboardID, err)
	}
	return &dashboard, nil
}

// MakeDashboardPublic assigns the dashboard to the public customer. The raw
// response object is returned as upstream versions disagree on its shape.
func (g *Gateway) MakeDashboardPublic(dashboardID string) (map[string]any, error) {
	if dashboardID == "" {
		return nil, fmt.Errorf("make dashboard public: dashboardID is required")
	}
	respRaw, status, err := g.session.Signer().Post("/api/customer/public/dashboard/"+dashboardID, nil)
	if err != nil || status != http.StatusOK {
		return nil, fmt.Errorf("make dashboard %q public: %w", dashboardID, err)
	}
	return decodeObject(respRaw, "make dashboard public")
}

// RemoveDashboardPublic unassigns the dashboard from the public customer.
func (g *Gateway) RemoveDashboardPublic(dashboardID string) (map[string]any, error) {
	if dashboardID == "" {
		return nil, fmt.Errorf("remove public dashboard: dashboardID is required")
	}
	respRaw, status, err := g.session.Signer().Delete("/api/customer/public/dashboard/"+dashboardID, nil)
	if err != nil || status != http.StatusOK {
		return nil, fmt.Errorf("remove public dashboard %q: %w", dashboardID, err)
	}
	return decodeObject(respRaw, "remove public dashboard")
}

// GetPublicDashboardLink publishes the dashboard and derives its shareable
// link from the response. The upstream API is inconsistent about where it
// places the public identifier, so extraction tries a top-level publicId,
// then a nested id object's id, then a bare id, and finally falls back to
// the dashboard id itself.
func (g *Gateway) GetPublicDashboardLink(dashboardID string) (*PublicDashboardLink, error) {
	if dashboardID == "" {
		return nil, fmt.Errorf("get public dashboard link: dashboardID is required")
	}
	respRaw, status, err := g.session.Signer().Post("/api/customer/public/dashboard/"+dashboardID, nil)
	if err != nil || status != http.StatusOK {
		return nil, fmt.Errorf("get public dashboard link for %q: %w", dashboardID, err)
	}
	body, err := decodeObject(respRaw, "get public dashboard link")
	if err != nil {
		return nil, err
	}
	publicID := extractPublicID(body, dashboardID)
	return &PublicDashboardLink{
		DashboardID: dashboardID,
		PublicID:    publicID,
		PublicLink:  "https://" + g.hostPort() + "/dashboard/" + publicID,
	}, nil
}

// GetPublicDashboardInfo fetches a public dashboard without any
// authentication token. The endpoint is intentionally anonymous, so this
// uses the session's token-less signer rather than the authenticated one.
func (g *Gateway) GetPublicDashboardInfo(publicID string) (*api.Dashboard, error) {
	if publicID == "" {
		return nil, fmt.Errorf("get public dashboard info: publicID is required")
	}
	respRaw, status, err := g.session.Anonymous().Get("/api/dashboard/info/"+publicID, nil)
	if err != nil || status != http.StatusOK {
		return nil, fmt.Errorf("get public dashboard %q: %w", publicID, err)
	}
	var dashboard api.Dashboard
	if err = jsoniter.Unmarshal(respRaw, &dashboard); err != nil {
		return nil, fmt.Errorf("get public dashboard %q: decoding: %w", publicID, err)
	}
	return &dashboard, nil
}

// extractPublicID selects the server-returned public identifier from one of
// the response shapes observed across platform versions, in priority order:
// {publicId:"X"}, {id:{id:"Y"}}, {id:"Z"}, else the fallback id.
func extractPublicID(body map[string]any, fallback string) string {
	if v, ok := body["publicId"].(string); ok && v != "" {
		return v
	}
	switch id := body["id"].(type) {
	case map[string]any:
		if v, ok := id["id"].(string); ok && v != "" {
			return v
		}
	case string:
		if id != "" {
			return id
		}
	}
	return fallback
}

func decodeObject(raw []byte, op string) (map[string]any, error) {
	body := map[string]any{}
	if len(raw) == 0 {
		return body, nil
	}
	if err := jsoniter.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("%s: decoding: %w", op, err)
	}
	return body, nil
}
