package shipments

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fleetline/shiptrack/internal/cache"
	"github.com/fleetline/shiptrack/internal/models"
)

// Repository is the entity store contract. The postgres implementation lives
// in internal/storage/pgstore; tests inject fakes.
type Repository interface {
	CreateCustomer(ctx context.Context, in models.CustomerCreateInput) (*models.Customer, error)
	GetCustomerByID(ctx context.Context, id uint64) (*models.Customer, error)
	GetCustomerByName(ctx context.Context, name string) (*models.Customer, error)
	UpdateCustomer(ctx context.Context, id uint64, in models.CustomerUpdateInput) (*models.Customer, error)
	DeleteCustomer(ctx context.Context, id uint64) error
	ListCustomers(ctx context.Context, f models.CustomerFilter) (*models.Page[*models.Customer], error)

	CreateShipment(ctx context.Context, in models.ShipmentCreateInput, initial *models.TrackingEvent) (*models.Shipment, *models.TrackingEvent, error)
	GetShipmentByID(ctx context.Context, id uint64) (*models.Shipment, error)
	GetShipmentByNumber(ctx context.Context, number string) (*models.Shipment, error)
	UpdateShipment(ctx context.Context, id uint64, in models.ShipmentUpdateInput) (*models.Shipment, error)
	DeleteShipment(ctx context.Context, id uint64) error
	ListShipments(ctx context.Context, f models.ShipmentFilter) (*models.Page[*models.Shipment], error)
	AppendShipmentEvent(ctx context.Context, shipmentID uint64, ev *models.TrackingEvent) (*models.TrackingEvent, *models.Shipment, error)

	CreateEvent(ctx context.Context, ev *models.TrackingEvent) (*models.TrackingEvent, error)
	GetEventByID(ctx context.Context, id uint64) (*models.TrackingEvent, error)
	UpdateEvent(ctx context.Context, id uint64, in models.EventUpdateInput) (*models.TrackingEvent, error)
	DeleteEvent(ctx context.Context, id uint64) error
	ListEvents(ctx context.Context, f models.EventFilter) (*models.Page[*models.TrackingEvent], error)
}

type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

type Service struct {
	repo       Repository
	cache      cache.BytesCache
	currentTTL time.Duration

	producer Producer
	topic    string
}

func New(repo Repository, c cache.BytesCache, currentTTL time.Duration) *Service {
	return &Service{repo: repo, cache: c, currentTTL: currentTTL}
}

// WithProducer enables status-change notifications on the given topic.
func (s *Service) WithProducer(p Producer, topic string) *Service {
	s.producer = p
	s.topic = topic
	return s
}

func currentKey(id uint64) string {
	return fmt.Sprintf("shipment:%d:current", id)
}

func (s *Service) cacheEnabled() bool {
	return s.cache != nil && s.currentTTL > 0
}

func (s *Service) cachePut(ctx context.Context, sh *models.Shipment) {
	if !s.cacheEnabled() || sh == nil {
		return
	}
	b, err := json.Marshal(sh)
	if err != nil {
		return
	}
	_ = s.cache.Set(ctx, currentKey(sh.ID), b, s.currentTTL)
}

func (s *Service) cacheDrop(ctx context.Context, id uint64) {
	if !s.cacheEnabled() {
		return
	}
	_ = s.cache.Del(ctx, currentKey(id))
}

// parseOrdering resolves an "ordering" query value ("eta", "-created_at") into
// a sort key the store understands. Empty input keeps the store default.
func parseOrdering(ordering string, allowed ...string) (string, bool, error) {
	if ordering == "" {
		return "", false, nil
	}
	desc := strings.HasPrefix(ordering, "-")
	key := strings.TrimPrefix(ordering, "-")
	for _, a := range allowed {
		if key == a {
			return key, desc, nil
		}
	}
	return "", false, models.NewValidationError("ordering",
		fmt.Sprintf("unknown ordering field %q, expected one of: %s", key, strings.Join(allowed, ", ")))
}

func parseStatus(field, raw string) (*models.Status, error) {
	if raw == "" {
		return nil, nil
	}
	st := models.Status(raw)
	if !st.Valid() {
		return nil, models.NewValidationError(field,
			fmt.Sprintf("invalid status %q, expected one of: CREATED, IN_TRANSIT, DELIVERED, DELAYED", raw))
	}
	return &st, nil
}
