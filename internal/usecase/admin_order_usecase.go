package usecase

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"app/internal/domain/model"
	"app/internal/events"
	"app/internal/logging"
	repo "app/internal/repository"
)

// 管理側の注文操作（一覧・ステータス変更・配送状況変更）。
// 変更は必ず監査ログを同じトランザクションに書く。操作者IDは引数で受け取る。
type AdminOrderUsecase struct {
	tx     repo.TransactionManager
	events OrderEventPublisher
}

func NewAdminOrderUsecase(tx repo.TransactionManager, eventPub OrderEventPublisher) *AdminOrderUsecase {
	return &AdminOrderUsecase{tx: tx, events: eventPub}
}

type AdminUpdateOrderStatusInput struct {
	Status string
}

type AdminUpdateShippingInput struct {
	ShippingStatus string
}

// 注文一覧
func (u *AdminOrderUsecase) List(ctx context.Context, f repo.AdminOrderListFilter) ([]OrderOutput, error) {
	// page/limitの最低限チェック
	if f.Page < 1 {
		return []OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if f.Limit < 1 || f.Limit > 100 {
		return []OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}

	var outs []OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, _, err := r.Orders().ListAdmin(ctx, f)
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

// ステータス更新。新ステータスはレジストリの名前で受け取る。
func (u *AdminOrderUsecase) UpdateStatus(ctx context.Context, actorAdminUserID int64, orderID int64, in AdminUpdateOrderStatusInput) error {
	if actorAdminUserID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	newStatusName := strings.TrimSpace(in.Status)
	if newStatusName == "" {
		return NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	var changed bool

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// 注文取得
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//レジストリに無い名前は業務エラー
		newStatus, err := r.OrderStatuses().FindByName(ctx, newStatusName)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusBadRequest, "invalid status")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		// すでに同じなら何もしない（200）
		if o.StatusID == newStatus.ID {
			return nil
		}

		if err := r.Orders().UpdateStatus(ctx, orderID, newStatus.ID); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		oldName, _ := resolveStatusName(ctx, r.OrderStatuses(), map[int64]string{}, o.StatusID)
		if err := writeOrderAudit(ctx, r.AuditLogs(), actorAdminUserID, model.AuditActionUpdateOrderStatus, orderID,
			map[string]string{"status": oldName},
			map[string]string{"status": newStatus.Name},
		); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		changed = true
		return nil
	})
	if err != nil {
		return err
	}

	if changed && u.events != nil {
		perr := u.events.Publish(ctx, events.TypeOrderStatusChanged, newStatusName, events.OrderStatusChanged{
			OrderID:   orderID,
			Status:    newStatusName,
			ChangedAt: time.Now(),
		})
		if perr != nil {
			logging.Log(logging.Fields{
				Service: "admin_order",
				Step:    "publish_status_changed",
				Status:  "error",
				OrderID: orderID,
				Message: perr.Error(),
			})
		}
	}
	return nil
}

// 配送状況の更新。shipping_updated_atも同時に進める。
func (u *AdminOrderUsecase) UpdateShipping(ctx context.Context, actorAdminUserID int64, orderID int64, in AdminUpdateShippingInput) error {
	if actorAdminUserID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	newShipping := strings.TrimSpace(in.ShippingStatus)
	if newShipping == "" || len(newShipping) > 50 {
		return NewHTTPError(http.StatusBadRequest, "invalid shipping_status")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if err := r.Orders().UpdateShippingStatus(ctx, orderID, newShipping, time.Now()); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if err := writeOrderAudit(ctx, r.AuditLogs(), actorAdminUserID, model.AuditActionUpdateShippingStatus, orderID,
			map[string]string{"shipping_status": o.ShippingStatus},
			map[string]string{"shipping_status": newShipping},
		); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		return nil
	})
}

// 監査ログの一覧（管理画面用）。
func (u *AdminOrderUsecase) ListAuditLogs(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, error) {
	var logs []model.AuditLog
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var err error
		logs, err = r.AuditLogs().List(ctx, f)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		return nil
	})
	if err != nil {
		return []model.AuditLog{}, err
	}
	return logs, nil
}

func writeOrderAudit(ctx context.Context, audits repo.AuditLogRepository, actorUserID int64, action model.AuditAction, orderID int64, before any, after any) error {
	beforeJSON, err := json.Marshal(before)
	if err != nil {
		return err
	}
	afterJSON, err := json.Marshal(after)
	if err != nil {
		return err
	}

	return audits.Create(ctx, model.AuditLog{
		ActorUserID:  actorUserID,
		Action:       action,
		ResourceType: model.AuditResourceOrder,
		ResourceID:   orderID,
		BeforeJSON:   string(beforeJSON),
		AfterJSON:    string(afterJSON),
		CreatedAt:    time.Now(),
	})
}
