package store

import (
	"context"
	"strings"

	"github.com/harperreed/clientbook/models"
)

type ClientAdapter = Adapter[models.Client, models.ClientPatch]

// ClientStore holds every client of the current user.
type ClientStore struct {
	*Collection[models.Client, models.ClientPatch]
}

func NewClientStore(a ClientAdapter, opts Options) *ClientStore {
	return &ClientStore{newCollection("clients", a, behavior[models.Client, models.ClientPatch]{
		id:       func(c models.Client) string { return c.ID },
		apply:    func(c *models.Client, p models.ClientPatch) { p.Apply(c) },
		validate: func(p models.ClientPatch) error { return p.Validate() },
		touch: func(prev models.Client, next *models.Client, now int64) {
			next.UpdatedAt = max(now, prev.UpdatedAt)
		},
	}, opts)}
}

// Add creates a client. An empty status defaults to lead.
func (s *ClientStore) Add(ctx context.Context, in models.ClientInput) (string, error) {
	if in.Status == "" {
		in.Status = models.StatusLead
	}
	if err := in.Validate(); err != nil {
		return "", err
	}
	return s.insert(ctx, in.Build(s.opts.NewID(), s.now()))
}

// Search matches q case-insensitively against name, company, email, and phone.
// An empty query returns every client.
func (s *ClientStore) Search(q string) []models.Client {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return s.All()
	}
	return s.filter(func(c models.Client) bool {
		for _, f := range []string{c.FirstName, c.LastName, c.FullName(), c.Company, c.Email, c.Phone} {
			if strings.Contains(strings.ToLower(f), q) {
				return true
			}
		}
		return false
	})
}

// FilterByStatus returns clients with the status; "" or "all" returns every client.
func (s *ClientStore) FilterByStatus(status models.ClientStatus) []models.Client {
	if status == "" || status == "all" {
		return s.All()
	}
	return s.filter(func(c models.Client) bool { return c.Status == status })
}
