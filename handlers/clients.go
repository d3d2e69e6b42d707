// ABOUTME: Client MCP tool handlers
// ABOUTME: Implements add_client, find_clients, update_client, and delete_client tools
package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/clientbook/app"
	"github.com/harperreed/clientbook/models"
)

type ClientHandlers struct {
	app *app.App
}

func NewClientHandlers(a *app.App) *ClientHandlers {
	return &ClientHandlers{app: a}
}

type AddClientInput struct {
	FirstName string `json:"first_name" jsonschema:"First name (required)"`
	LastName  string `json:"last_name,omitempty" jsonschema:"Last name"`
	Company   string `json:"company,omitempty" jsonschema:"Company name"`
	Position  string `json:"position,omitempty" jsonschema:"Job title"`
	Email     string `json:"email,omitempty" jsonschema:"Email address"`
	Phone     string `json:"phone,omitempty" jsonschema:"Phone number"`
	Address   string `json:"address,omitempty" jsonschema:"Postal address"`
	Status    string `json:"status,omitempty" jsonschema:"lead, prospect, customer, or inactive (default lead)"`
	Notes     string `json:"notes,omitempty" jsonschema:"Additional notes about the client"`
}

type ClientOutput struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Company   string `json:"company,omitempty"`
	Position  string `json:"position,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Address   string `json:"address,omitempty"`
	Status    string `json:"status"`
	Notes     string `json:"notes,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func (h *ClientHandlers) AddClient(ctx context.Context, _ *mcp.CallToolRequest, input AddClientInput) (*mcp.CallToolResult, ClientOutput, error) {
	if input.FirstName == "" {
		return nil, ClientOutput{}, fmt.Errorf("first_name is required")
	}

	in := models.ClientInput{
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Company:   input.Company,
		Position:  input.Position,
		Email:     input.Email,
		Phone:     input.Phone,
		Address:   input.Address,
		Notes:     input.Notes,
	}
	if input.Status != "" {
		st, err := models.ParseClientStatus(input.Status)
		if err != nil {
			return nil, ClientOutput{}, err
		}
		in.Status = st
	}

	id, err := h.app.Clients.Add(ctx, in)
	if err != nil {
		return nil, ClientOutput{}, fmt.Errorf("failed to create client: %w", err)
	}

	c, _ := h.app.Clients.Get(id)
	return nil, clientToOutput(c), nil
}

type FindClientsInput struct {
	Query  string `json:"query,omitempty" jsonschema:"Search query (matches name, company, email, phone)"`
	Status string `json:"status,omitempty" jsonschema:"Filter by status"`
	Limit  int    `json:"limit,omitempty" jsonschema:"Maximum number of results (default 10)"`
}

type FindClientsOutput struct {
	Clients []ClientOutput `json:"clients"`
}

func (h *ClientHandlers) FindClients(_ context.Context, _ *mcp.CallToolRequest, input FindClientsInput) (*mcp.CallToolResult, FindClientsOutput, error) {
	limit := input.Limit
	if limit == 0 {
		limit = 10
	}

	var status models.ClientStatus
	if input.Status != "" {
		st, err := models.ParseClientStatus(input.Status)
		if err != nil {
			return nil, FindClientsOutput{}, err
		}
		status = st
	}

	result := []ClientOutput{}
	for _, c := range h.app.Clients.Search(input.Query) {
		if status != "" && c.Status != status {
			continue
		}
		result = append(result, clientToOutput(c))
		if len(result) == limit {
			break
		}
	}

	return nil, FindClientsOutput{Clients: result}, nil
}

type UpdateClientInput struct {
	ID        string  `json:"id" jsonschema:"Client ID (required)"`
	FirstName *string `json:"first_name,omitempty" jsonschema:"First name"`
	LastName  *string `json:"last_name,omitempty" jsonschema:"Last name"`
	Company   *string `json:"company,omitempty" jsonschema:"Company name"`
	Position  *string `json:"position,omitempty" jsonschema:"Job title"`
	Email     *string `json:"email,omitempty" jsonschema:"Email address"`
	Phone     *string `json:"phone,omitempty" jsonschema:"Phone number"`
	Address   *string `json:"address,omitempty" jsonschema:"Postal address"`
	Status    *string `json:"status,omitempty" jsonschema:"lead, prospect, customer, or inactive"`
	Notes     *string `json:"notes,omitempty" jsonschema:"Notes"`
}

func (h *ClientHandlers) UpdateClient(ctx context.Context, _ *mcp.CallToolRequest, input UpdateClientInput) (*mcp.CallToolResult, ClientOutput, error) {
	if input.ID == "" {
		return nil, ClientOutput{}, fmt.Errorf("id is required")
	}

	patch := models.ClientPatch{
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Company:   input.Company,
		Position:  input.Position,
		Email:     input.Email,
		Phone:     input.Phone,
		Address:   input.Address,
		Notes:     input.Notes,
	}
	if input.Status != nil {
		st, err := models.ParseClientStatus(*input.Status)
		if err != nil {
			return nil, ClientOutput{}, err
		}
		patch.Status = &st
	}

	if err := h.app.Clients.Update(ctx, input.ID, patch); err != nil {
		return nil, ClientOutput{}, fmt.Errorf("failed to update client: %w", err)
	}

	c, _ := h.app.Clients.Get(input.ID)
	return nil, clientToOutput(c), nil
}

type DeleteInput struct {
	ID string `json:"id" jsonschema:"ID of the record to delete (required)"`
}

type DeleteOutput struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

func (h *ClientHandlers) DeleteClient(ctx context.Context, _ *mcp.CallToolRequest, input DeleteInput) (*mcp.CallToolResult, DeleteOutput, error) {
	if input.ID == "" {
		return nil, DeleteOutput{}, fmt.Errorf("id is required")
	}
	if err := h.app.Clients.Delete(ctx, input.ID); err != nil {
		return nil, DeleteOutput{}, fmt.Errorf("failed to delete client: %w", err)
	}
	return nil, DeleteOutput{ID: input.ID, Deleted: true}, nil
}

func isoTime(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}

func optionalISO(ms *int64) *string {
	if ms == nil {
		return nil
	}
	s := isoTime(*ms)
	return &s
}

// parseTime accepts RFC3339 or a plain YYYY-MM-DD date in UTC.
func parseTime(s string) (int64, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UnixMilli(), nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return 0, fmt.Errorf("invalid date %q (use RFC3339 or YYYY-MM-DD)", s)
	}
	return t.UnixMilli(), nil
}

func clientToOutput(c models.Client) ClientOutput {
	return ClientOutput{
		ID:        c.ID,
		Name:      c.FullName(),
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Company:   c.Company,
		Position:  c.Position,
		Email:     c.Email,
		Phone:     c.Phone,
		Address:   c.Address,
		Status:    string(c.Status),
		Notes:     c.Notes,
		CreatedAt: isoTime(c.CreatedAt),
		UpdatedAt: isoTime(c.UpdatedAt),
	}
}
