package gateway

import (
	"fmt"
	"log/slog"
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"github.com/devicelink/tbclient/api"
)

// GetUserInfo fetches the current authenticated user.
func (g *Gateway) GetUserInfo() (*api.User, error) {
	respRaw, status, err := g.session.Signer().Get("/api/auth/user", nil)
	if err != nil || status != http.StatusOK {
		return nil, fmt.Errorf("get user info: %w", err)
	}
	var user api.User
	if err = jsoniter.Unmarshal(respRaw, &user); err != nil {
		return nil, fmt.Errorf("get user info: decoding: %w", err)
	}
	return &user, nil
}

// GetTenantUsers lists the tenant's users, one page at a time.
func (g *Gateway) GetTenantUsers(p PageParams) ([]api.User, error) {
	respRaw, status, err := g.session.Signer().Get("/api/tenant/users", p.query())
	if err != nil || status != http.StatusOK {
		return nil, fmt.Errorf("listing tenant users: %w", err)
	}
	var page api.PageData[api.User]
	if err = jsoniter.Unmarshal(respRaw, &page); err != nil {
		return nil, fmt.Errorf("listing tenant users: decoding page: %w", err)
	}
	return page.Data, nil
}

// GetCustomers lists the tenant's customers, one page at a time.
func (g *Gateway) GetCustomers(p PageParams) ([]api.Customer, error) {
	respRaw, status, err := g.session.Signer().Get("/api/customers", p.query())
	if err != nil || status != http.StatusOK {
		return nil, fmt.Errorf("listing customers: %w", err)
	}
	var page api.PageData[api.Customer]
	if err = jsoniter.Unmarshal(respRaw, &page); err != nil {
		return nil, fmt.Errorf("listing customers: decoding page: %w", err)
	}
	return page.Data, nil
}

// GetCustomerUsers lists customer users.
//
// With a customerID it lists that customer's users. With an empty
// customerID it fetches every customer first and concatenates their user
// lists, issuing one request per customer sequentially to bound load on
// the server. A failing per-customer request is logged and skipped, not
// fatal. Zero customers yields an empty, non-nil sequence.
func (g *Gateway) GetCustomerUsers(customerID string, p PageParams) ([]api.User, error) {
	if customerID != "" {
		return g.customerUsersPage(customerID, p)
	}

	customers, err := g.GetCustomers(PageParams{PageSize: api.DefaultListPageSize})
	if err != nil {
		return nil, fmt.Errorf("customer users fan-out: %w", err)
	}
	allUsers := []api.User{}
	for _, customer := range customers {
		users, err := g.customerUsersPage(customer.ID.ID, p)
		if err != nil {
			slog.Warn("GetCustomerUsers: skipping customer",
				slog.String("customerID", customer.ID.ID),
				slog.String("err", err.Error()))
			continue
		}
		allUsers = append(allUsers, users...)
	}
	return allUsers, nil
}

func (g *Gateway) customerUsersPage(customerID string, p PageParams) ([]api.User, error) {
	respRaw, status, err := g.session.Signer().Get("/api/customer/"+customerID+"/users", p.query())
	if err != nil || status != http.StatusOK {
		return nil, fmt.Errorf("listing users of customer %q: %w", customerID, err)
	}
	var page api.PageData[api.User]
	if err = jsoniter.Unmarshal(respRaw, &page); err != nil {
		return nil, fmt.Errorf("listing users of customer %q: decoding page: %w", customerID, err)
	}
	return page.Data, nil
}
