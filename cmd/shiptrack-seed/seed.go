package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/fleetline/shiptrack/internal/models"
)

// seedService is the slice of the shipments service the seeder needs.
type seedService interface {
	GetCustomerByName(ctx context.Context, name string) (*models.Customer, error)
	CreateCustomer(ctx context.Context, in models.CustomerCreateInput) (*models.Customer, error)
	GetShipmentByNumber(ctx context.Context, number string) (*models.Shipment, error)
	CreateShipment(ctx context.Context, in models.ShipmentCreateInput) (*models.Shipment, error)
	AppendEvent(ctx context.Context, shipmentID uint64, in models.EventInput) (*models.TrackingEvent, *models.Shipment, error)
}

var (
	seedCustomers = []string{"Acme", "Baltic", "NorthWind"}
	seedOrigins   = []string{"Gdansk", "Gdynia", "Sopot", "Warszawa", "Poznan"}
	seedDests     = []string{"Berlin", "Prague", "Vilnius", "Krakow", "Lodz"}
)

// seedDemoData creates demo customers and shipments, each with a
// CREATED -> IN_TRANSIT -> (DELIVERED | DELAYED) event chain 12h apart.
// Events go through the ingestion path so status derivation applies.
// Existing customers and shipments are reused, so reruns are safe.
func seedDemoData(ctx context.Context, svc seedService, r *rand.Rand, shipmentCount int) error {
	if shipmentCount <= 0 {
		shipmentCount = 20
	}

	customers := make([]*models.Customer, 0, len(seedCustomers))
	for _, name := range seedCustomers {
		c, err := getOrCreateCustomer(ctx, svc, name)
		if err != nil {
			return err
		}
		customers = append(customers, c)
	}

	now := time.Now().UTC()
	for i := 0; i < shipmentCount; i++ {
		number := fmt.Sprintf("SHP-%d", 1000+i)
		if _, err := svc.GetShipmentByNumber(ctx, number); err == nil {
			continue
		} else if !stderrors.Is(err, models.ErrNotFound) {
			return err
		}

		c := customers[r.Intn(len(customers))]
		eta := now.Add(time.Duration(1+r.Intn(4)) * 24 * time.Hour)
		sh, err := svc.CreateShipment(ctx, models.ShipmentCreateInput{
			Number:      number,
			CustomerID:  c.ID,
			Origin:      seedOrigins[r.Intn(len(seedOrigins))],
			Destination: seedDests[r.Intn(len(seedDests))],
			ETA:         &eta,
		})
		if err != nil {
			return err
		}

		last := models.StatusDelivered
		if r.Intn(2) == 0 {
			last = models.StatusDelayed
		}
		chain := []models.Status{models.StatusCreated, models.StatusInTransit, last}

		ts0 := now.Add(-time.Duration(1+r.Intn(2)) * 24 * time.Hour)
		for j, st := range chain {
			status := st
			_, _, err := svc.AppendEvent(ctx, sh.ID, models.EventInput{
				TS:      ts0.Add(time.Duration(j) * 12 * time.Hour),
				Status:  &status,
				Comment: fmt.Sprintf("Auto %d", j),
			})
			if err != nil {
				return err
			}
		}
		slog.Info("seeded shipment", "number", number, "customer", c.Name, "status", last)
	}

	return nil
}

func getOrCreateCustomer(ctx context.Context, svc seedService, name string) (*models.Customer, error) {
	c, err := svc.GetCustomerByName(ctx, name)
	if err == nil {
		return c, nil
	}
	if !stderrors.Is(err, models.ErrNotFound) {
		return nil, err
	}
	return svc.CreateCustomer(ctx, models.CustomerCreateInput{Name: name})
}
