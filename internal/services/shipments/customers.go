package shipments

import (
	"context"
	"strings"

	"github.com/fleetline/shiptrack/internal/models"
)

// CustomerListParams are the raw query options for customer listings.
type CustomerListParams struct {
	Name     string
	Search   string
	Ordering string
	Limit    int
	Offset   int
}

func (s *Service) CreateCustomer(ctx context.Context, in models.CustomerCreateInput) (*models.Customer, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, models.NewValidationError("name", "required")
	}
	return s.repo.CreateCustomer(ctx, in)
}

func (s *Service) GetCustomer(ctx context.Context, id uint64) (*models.Customer, error) {
	return s.repo.GetCustomerByID(ctx, id)
}

func (s *Service) GetCustomerByName(ctx context.Context, name string) (*models.Customer, error) {
	return s.repo.GetCustomerByName(ctx, name)
}

func (s *Service) UpdateCustomer(ctx context.Context, id uint64, in models.CustomerUpdateInput) (*models.Customer, error) {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, models.NewValidationError("name", "must not be empty")
		}
		in.Name = &name
	}
	return s.repo.UpdateCustomer(ctx, id, in)
}

// DeleteCustomer removes the customer and, via the store's cascade, all its
// shipments and their events.
func (s *Service) DeleteCustomer(ctx context.Context, id uint64) error {
	return s.repo.DeleteCustomer(ctx, id)
}

func (s *Service) ListCustomers(ctx context.Context, p CustomerListParams) (*models.Page[*models.Customer], error) {
	orderBy, desc, err := parseOrdering(p.Ordering, "name")
	if err != nil {
		return nil, err
	}
	return s.repo.ListCustomers(ctx, models.CustomerFilter{
		Name:    p.Name,
		Search:  p.Search,
		OrderBy: orderBy,
		Desc:    desc,
		Limit:   p.Limit,
		Offset:  p.Offset,
	})
}
