package usecase

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"app/internal/domain/model"
	repo "app/internal/repository"
)

// 作成済み注文の参照（自分の注文の一覧と詳細）。
type OrderUsecase struct {
	tx repo.TransactionManager
}

func NewOrderUsecase(tx repo.TransactionManager) *OrderUsecase {
	return &OrderUsecase{tx: tx}
}

type OrderItemOutput struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int64           `json:"quantity"`
}

type OrderOutput struct {
	ID                int64             `json:"id"`
	Number            string            `json:"number"`
	UserID            int64             `json:"user_id"`
	Status            string            `json:"status"`
	TotalAmount       decimal.Decimal   `json:"total_amount"`
	ShippingStatus    string            `json:"shipping_status"`
	ShippingUpdatedAt time.Time         `json:"shipping_updated_at"`
	CreatedAt         time.Time         `json:"created_at"`
	Items             []OrderItemOutput `json:"items"`
}

func (u *OrderUsecase) ListMyOrders(ctx context.Context, userID int64) ([]OrderOutput, error) {
	if userID <= 0 {
		return []OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	//ページングはまず固定で取る
	var outs []OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, _, err := r.Orders().ListByUserID(ctx, userID, 1, 50)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		statusNames := map[int64]string{}

		outs = make([]OrderOutput, 0, len(orders))
		for _, o := range orders {
			items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}

			name, err := resolveStatusName(ctx, r.OrderStatuses(), statusNames, o.StatusID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}

			outs = append(outs, toOrderOutput(o, name, items))
		}
		return nil
	})

	if err != nil {
		return []OrderOutput{}, err
	}
	return outs, nil
}

func (u *OrderUsecase) GetMyOrderDetail(ctx context.Context, userID int64, orderID int64) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if o.UserID != userID {
			//他人の注文は「存在しない扱い」にする
			return NewHTTPError(http.StatusNotFound, "not found")
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		name, err := resolveStatusName(ctx, r.OrderStatuses(), map[int64]string{}, o.StatusID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		out = toOrderOutput(o, name, items)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

// ステータス名をキャッシュ付きで引く。
func resolveStatusName(ctx context.Context, statuses repo.OrderStatusRepository, cache map[int64]string, statusID int64) (string, error) {
	if name, ok := cache[statusID]; ok {
		return name, nil
	}
	s, err := statuses.FindByID(ctx, statusID)
	if err == repo.ErrNotFound {
		//FKが指す行が消えているのは設定不備だが、一覧は落とさない
		cache[statusID] = ""
		return "", nil
	}
	if err != nil {
		return "", err
	}
	cache[statusID] = s.Name
	return s.Name, nil
}

func toOrderOutput(o model.Order, statusName string, items []model.OrderItem) OrderOutput {
	outItems := make([]OrderItemOutput, 0, len(items))
	for _, it := range items {
		outItems = append(outItems, OrderItemOutput{
			ProductID: it.ProductID,
			Name:      it.ProductNameSnapshot,
			Price:     it.UnitPriceSnapshot,
			Quantity:  it.Quantity,
		})
	}

	return OrderOutput{
		ID:                o.ID,
		Number:            o.Number,
		UserID:            o.UserID,
		Status:            statusName,
		TotalAmount:       o.TotalAmount,
		ShippingStatus:    o.ShippingStatus,
		ShippingUpdatedAt: o.ShippingUpdatedAt,
		CreatedAt:         o.CreatedAt,
		Items:             outItems,
	}
}
