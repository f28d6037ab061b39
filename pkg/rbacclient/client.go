// Package rbacclient mirrors the server's role table for front-end style
// affordance checks. Decisions made here are hints for rendering; the server
// remains the only enforcement point.
package rbacclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/inkwell-blog/inkwell/internal/rbac"
	"github.com/inkwell-blog/inkwell/internal/shared"
)

// TablePath is where the server publishes its role table.
const TablePath = "/api/rbac/table"

// Client fetches the published role table.
type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a Client for baseURL. A nil httpClient uses a 10s timeout client.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// FetchTable downloads the role table.
func (c *Client) FetchTable(ctx context.Context) (rbac.Table, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+TablePath, nil)
	if err != nil {
		return rbac.Table{}, fmt.Errorf("rbacclient: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return rbac.Table{}, fmt.Errorf("rbacclient: fetch table: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return rbac.Table{}, fmt.Errorf("rbacclient: fetch table: unexpected status %d", resp.StatusCode)
	}
	var table rbac.Table
	if err := json.NewDecoder(resp.Body).Decode(&table); err != nil {
		return rbac.Table{}, fmt.Errorf("rbacclient: decode table: %w", err)
	}
	return table, nil
}

// Load fetches the table and builds a Mirror from it.
func (c *Client) Load(ctx context.Context) (*Mirror, error) {
	table, err := c.FetchTable(ctx)
	if err != nil {
		return nil, err
	}
	return NewMirror(table)
}

// Mirror evaluates permissions with the same registry logic the server uses.
type Mirror struct {
	registry *rbac.Registry
}

// NewMirror validates table and wraps it.
func NewMirror(table rbac.Table) (*Mirror, error) {
	reg, err := rbac.NewRegistry(table)
	if err != nil {
		return nil, fmt.Errorf("rbacclient: %w", err)
	}
	return &Mirror{registry: reg}, nil
}

// For returns the permission view of a user. Unknown roles evaluate as having nothing.
func (m *Mirror) For(role shared.Role, userID string) Permissions {
	return Permissions{registry: m.registry, role: role, userID: userID}
}

// Roles lists the hierarchy from lowest to highest.
func (m *Mirror) Roles() []shared.Role { return m.registry.Roles() }
