package infrastructure

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"shopcart/internal/service/order/domain"
)

// GormOrderRepository is the MySQL-backed implementation of
// domain.OrderRepository. State transitions are compare-and-swap
// updates guarded on the expected prior state, which is what makes
// them safe against a confirm/cancel race that slipped past the
// per-order lock.
type GormOrderRepository struct {
	db *gorm.DB
}

func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// AutoMigrate creates the order tables. Intended for local runs;
// production schemas are managed by migrations.
func (r *GormOrderRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&OrderModel{}, &LineItemModel{}, &AddressModel{})
}

func (r *GormOrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	var model OrderModel
	err := r.db.WithContext(ctx).
		Preload("Address").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("id = ?", id).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, errors.Wrap(err, "loading order")
	}
	return toDomainOrder(&model), nil
}

func (r *GormOrderRepository) SaveTransportType(ctx context.Context, id, transportType string) error {
	res := r.db.WithContext(ctx).
		Model(&OrderModel{}).
		Where("id = ?", id).
		Update("transport_type", transportType)
	if res.Error != nil {
		return errors.Wrap(res.Error, "saving transport type")
	}
	if res.RowsAffected == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

// Confirm records both references and the CONFIRMED state in one
// guarded update. Zero rows affected means the order left the expected
// prior state concurrently.
func (r *GormOrderRepository) Confirm(ctx context.Context, id string, prior domain.State, reservationRef, shipmentRef string) error {
	res := r.db.WithContext(ctx).
		Model(&OrderModel{}).
		Where("id = ? AND state = ?", id, string(prior)).
		Updates(map[string]any{
			"state":           string(domain.StateConfirmed),
			"reservation_ref": reservationRef,
			"shipment_ref":    shipmentRef,
		})
	if res.Error != nil {
		return errors.Wrap(res.Error, "confirming order")
	}
	if res.RowsAffected == 0 {
		return domain.ErrStaleState
	}
	return nil
}

func (r *GormOrderRepository) Cancel(ctx context.Context, id string, prior domain.State) error {
	res := r.db.WithContext(ctx).
		Model(&OrderModel{}).
		Where("id = ? AND state = ?", id, string(prior)).
		Update("state", string(domain.StateCancelled))
	if res.Error != nil {
		return errors.Wrap(res.Error, "cancelling order")
	}
	if res.RowsAffected == 0 {
		return domain.ErrStaleState
	}
	return nil
}
