package usecase

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"app/internal/domain/model"
	"app/internal/events"
	"app/internal/logging"
	repo "app/internal/repository"
)

// 注文イベントの発行役（Kafka）。nilなら発行しない。
type OrderEventPublisher interface {
	Publish(ctx context.Context, eventType string, key string, payload any) error
}

// 注文確定メールの送信役（SES）。nilなら送らない。
type OrderNotifier interface {
	OrderPlaced(ctx context.Context, toEmail string, orderNumber string, total decimal.Decimal) error
}

// CheckoutUsecase はカート→注文の状態遷移を担う。
//
// 手順：カートを読み、業務ルール（空カート・配送可能国・住所）と
// 参照整合（ユーザー・初期ステータス・商品の存続）をトランザクションの外で
// 全て検査してから、注文作成＋明細作成＋読んだ明細の削除を1トランザクションで
// 行う。途中で失敗したら全ロールバック。中途半端な注文もカートも残らない。
type CheckoutUsecase struct {
	tx           repo.TransactionManager
	cartRepo     repo.CartRepository
	cartItemRepo repo.CartItemRepository
	productRepo  repo.ProductRepository
	userRepo     repo.UserRepository
	statusRepo   repo.OrderStatusRepository

	//配送可能な唯一の国。trim＋大文字小文字無視で比較する
	shippingCountry string

	events OrderEventPublisher
	mailer OrderNotifier
}

func NewCheckoutUsecase(
	tx repo.TransactionManager,
	cartRepo repo.CartRepository,
	cartItemRepo repo.CartItemRepository,
	productRepo repo.ProductRepository,
	userRepo repo.UserRepository,
	statusRepo repo.OrderStatusRepository,
	shippingCountry string,
	eventPub OrderEventPublisher,
	mailer OrderNotifier,
) *CheckoutUsecase {
	return &CheckoutUsecase{
		tx:              tx,
		cartRepo:        cartRepo,
		cartItemRepo:    cartItemRepo,
		productRepo:     productRepo,
		userRepo:        userRepo,
		statusRepo:      statusRepo,
		shippingCountry: shippingCountry,
		events:          eventPub,
		mailer:          mailer,
	}
}

type CheckoutOutput struct {
	OrderID           int64           `json:"order_id"`
	Number            string          `json:"number"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	ShippingStatus    string          `json:"shipping_status"`
	ShippingUpdatedAt time.Time       `json:"shipping_updated_at"`
}

func (u *CheckoutUsecase) Checkout(ctx context.Context, userID int64) (CheckoutOutput, error) {
	if userID <= 0 {
		return CheckoutOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	//ユーザー解決（配送先の取得元）
	user, err := u.userRepo.FindByID(ctx, userID)
	if err == repo.ErrNotFound {
		return CheckoutOutput{}, NewHTTPError(http.StatusNotFound, "user not found")
	}
	if err != nil {
		return CheckoutOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	//カート取得（無ければ作る＝必然的に空）
	cart, err := u.cartRepo.GetOrCreateByUserID(ctx, userID)
	if err != nil {
		return CheckoutOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	//明細・商品を1回のまとまった読みで確定させてから検証する
	cartItems, err := u.cartItemRepo.ListByCartID(ctx, cart.ID)
	if err != nil {
		return CheckoutOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if len(cartItems) == 0 {
		return CheckoutOutput{}, NewHTTPError(http.StatusBadRequest, "cart empty")
	}

	//配送可否：国が一致して、市と住所が埋まっていること
	if !strings.EqualFold(strings.TrimSpace(user.Country), u.shippingCountry) {
		return CheckoutOutput{}, NewHTTPError(http.StatusBadRequest, "shipping country not supported")
	}
	if strings.TrimSpace(user.City) == "" || strings.TrimSpace(user.Address) == "" {
		return CheckoutOutput{}, NewHTTPError(http.StatusBadRequest, "missing shipping address")
	}

	//初期ステータス解決。無いのはサービス設定不備
	status, err := u.statusRepo.FindByName(ctx, model.OrderStatusNew)
	if err == repo.ErrNotFound {
		return CheckoutOutput{}, NewHTTPError(http.StatusNotFound, "order status not configured")
	}
	if err != nil {
		return CheckoutOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	//商品の存続チェック＋金額計算。
	//単価はカート明細のスナップショット（お客様がカートで見た価格）を使う。
	//カタログの現在価格は読み直さない
	orderItems := make([]model.OrderItem, 0, len(cartItems))
	total := decimal.Zero
	now := time.Now()

	for _, ci := range cartItems {
		p, perr := u.productRepo.FindByID(ctx, ci.ProductID)
		if perr == repo.ErrNotFound {
			//カート投入後に商品が消えた。中断してカートは触らない
			return CheckoutOutput{}, NewHTTPError(http.StatusNotFound, "items no longer available")
		}
		if perr != nil {
			return CheckoutOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if !p.IsActive {
			return CheckoutOutput{}, NewHTTPError(http.StatusNotFound, "items no longer available")
		}

		orderItems = append(orderItems, model.OrderItem{
			ProductID:           ci.ProductID,
			ProductNameSnapshot: p.Name,
			UnitPriceSnapshot:   ci.UnitPrice,
			Quantity:            ci.Quantity,
			CreatedAt:           now,
		})

		total = total.Add(ci.UnitPrice.Mul(decimal.NewFromInt(ci.Quantity)))
	}
	total = total.Round(2)

	number := uuid.NewString()

	//ここから先だけが原子性の必要な区間。
	//注文作成・明細作成・読んだ明細の削除・カートのupdated_at更新を1Txで行う。
	//削除はスナップショットのid・数量で照合する。読みとコミットの間に
	//addItemが割り込んでいたら件数不一致でTxごと失敗し、全量やり直しになる
	var orderID int64
	txErr := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		id, err := r.Orders().Create(ctx, model.Order{
			Number:            number,
			UserID:            userID,
			StatusID:          status.ID,
			TotalAmount:       total,
			ShippingStatus:    model.ShippingStatusNotShipped,
			ShippingUpdatedAt: now,
			Country:           strings.TrimSpace(user.Country),
			City:              strings.TrimSpace(user.City),
			Address:           strings.TrimSpace(user.Address),
			CreatedAt:         now,
			UpdatedAt:         now,
		})
		if err != nil {
			return err
		}
		orderID = id

		if err := r.OrderItems().CreateBulk(ctx, orderID, orderItems); err != nil {
			return err
		}

		if err := r.CartItems().DeleteExact(ctx, cart.ID, cartItems); err != nil {
			return err
		}
		return r.Carts().Touch(ctx, cart.ID, now)
	})
	if txErr != nil {
		//全ロールバック済み。呼び出し側は最初からやり直せる
		return CheckoutOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	u.afterCommit(ctx, user, orderID, number, total, now)

	return CheckoutOutput{
		OrderID:           orderID,
		Number:            number,
		TotalAmount:       total,
		ShippingStatus:    model.ShippingStatusNotShipped,
		ShippingUpdatedAt: now,
	}, nil
}

// コミット後のベストエフォート処理（イベント発行・確認メール）。
// 失敗しても注文は成立済みなのでログだけ残す。
func (u *CheckoutUsecase) afterCommit(ctx context.Context, user model.User, orderID int64, number string, total decimal.Decimal, at time.Time) {
	if u.events != nil {
		err := u.events.Publish(ctx, events.TypeOrderCreated, number, events.OrderCreated{
			OrderID:     orderID,
			Number:      number,
			UserID:      user.ID,
			TotalAmount: total.StringFixed(2),
			CreatedAt:   at,
		})
		if err != nil {
			logging.Log(logging.Fields{
				Service: "checkout",
				Step:    "publish_order_created",
				Status:  "error",
				OrderID: orderID,
				Message: err.Error(),
			})
		}
	}

	if u.mailer != nil {
		if err := u.mailer.OrderPlaced(ctx, user.Email, number, total); err != nil {
			logging.Log(logging.Fields{
				Service: "checkout",
				Step:    "order_confirmation_email",
				Status:  "error",
				OrderID: orderID,
				Message: err.Error(),
			})
		}
	}
}
