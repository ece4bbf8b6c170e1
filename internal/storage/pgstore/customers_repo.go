package pgstore

import (
	"context"
	"fmt"
	"time"

	"github.com/fleetline/shiptrack/internal/models"
	"github.com/pkg/errors"
)

func (s *Storage) CreateCustomer(ctx context.Context, in models.CustomerCreateInput) (*models.Customer, error) {
	now := time.Now().UTC()

	var c models.Customer
	err := s.db.QueryRow(ctx, `
INSERT INTO customers (name, created_at)
VALUES ($1, $2)
RETURNING id, name, created_at
`, in.Name, now).Scan(&c.ID, &c.Name, &c.CreatedAt)
	if err != nil {
		return nil, mapErr(err, "insert customer")
	}
	return &c, nil
}

func (s *Storage) GetCustomerByID(ctx context.Context, id uint64) (*models.Customer, error) {
	return s.getCustomer(ctx, `WHERE id = $1`, id)
}

func (s *Storage) GetCustomerByName(ctx context.Context, name string) (*models.Customer, error) {
	return s.getCustomer(ctx, `WHERE name = $1`, name)
}

func (s *Storage) getCustomer(ctx context.Context, where string, arg any) (*models.Customer, error) {
	var c models.Customer
	err := s.db.QueryRow(ctx, `SELECT id, name, created_at FROM customers `+where, arg).
		Scan(&c.ID, &c.Name, &c.CreatedAt)
	if err != nil {
		return nil, mapErr(err, "select customer")
	}
	return &c, nil
}

func (s *Storage) UpdateCustomer(ctx context.Context, id uint64, in models.CustomerUpdateInput) (*models.Customer, error) {
	if in.Name == nil {
		return s.GetCustomerByID(ctx, id)
	}

	var c models.Customer
	err := s.db.QueryRow(ctx, `
UPDATE customers SET name = $2 WHERE id = $1
RETURNING id, name, created_at
`, id, *in.Name).Scan(&c.ID, &c.Name, &c.CreatedAt)
	if err != nil {
		return nil, mapErr(err, "update customer")
	}
	return &c, nil
}

func (s *Storage) DeleteCustomer(ctx context.Context, id uint64) error {
	ct, err := s.db.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return mapErr(err, "delete customer")
	}
	if ct.RowsAffected() == 0 {
		return errors.Wrap(models.ErrNotFound, "delete customer")
	}
	return nil
}

func (s *Storage) ListCustomers(ctx context.Context, f models.CustomerFilter) (*models.Page[*models.Customer], error) {
	where, args := buildWhere(condEq("name", strOrNil(f.Name)), condILike("name", f.Search))

	var count int64
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM customers`+where, args...).Scan(&count); err != nil {
		return nil, mapErr(err, "count customers")
	}

	order := orderClause(f.OrderBy, f.Desc, map[string]string{"name": "name"}, "name ASC")
	limit, offset := clampPage(f.Limit, f.Offset)

	q := fmt.Sprintf(`SELECT id, name, created_at FROM customers%s ORDER BY %s LIMIT %d OFFSET %d`,
		where, order, limit, offset)
	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, mapErr(err, "select customers")
	}
	defer rows.Close()

	items := make([]*models.Customer, 0)
	for rows.Next() {
		var c models.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan customer")
		}
		items = append(items, &c)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}

	return &models.Page[*models.Customer]{Count: count, Items: items}, nil
}
