package repository

import (
	"context"
	"errors"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"gorm.io/gorm"
)

type OrderStatusGormRepository struct {
	db *gorm.DB
}

// DI
func NewOrderStatusGormRepository(db *gorm.DB) *OrderStatusGormRepository {
	return &OrderStatusGormRepository{db: db}
}

func (r *OrderStatusGormRepository) FindByName(ctx context.Context, name string) (model.OrderStatus, error) {
	var s model.OrderStatus
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.OrderStatus{}, repo.ErrNotFound
	}
	if err != nil {
		return model.OrderStatus{}, err
	}
	return s, nil
}

func (r *OrderStatusGormRepository) FindByID(ctx context.Context, id int64) (model.OrderStatus, error) {
	var s model.OrderStatus
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.OrderStatus{}, repo.ErrNotFound
	}
	if err != nil {
		return model.OrderStatus{}, err
	}
	return s, nil
}

// 足りない名前だけ作る（起動時シード用）
func (r *OrderStatusGormRepository) Seed(ctx context.Context, names []string) error {
	for _, name := range names {
		var s model.OrderStatus
		err := r.db.WithContext(ctx).Where("name = ?", name).First(&s).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		createErr := r.db.WithContext(ctx).Create(&model.OrderStatus{Name: name}).Error
		if createErr != nil && !isUniqueViolation(createErr) {
			return createErr
		}
	}
	return nil
}
