package main

import (
	"context"
	"time"

	"app/internal/config"
	"app/internal/domain/model"
	"app/internal/events"
	"app/internal/infra/db"
	infraRepo "app/internal/infra/repository"
	"app/internal/logging"
	"app/internal/metrics"
	"app/internal/notifier"
	"app/internal/server"
	"app/internal/usecase"

	"app/internal/handler"

	"github.com/joho/godotenv"
)

func main() {
	//.envは無くてもよい（本番は環境変数で渡す）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	//DB接続
	gormDB, err := db.Connect()
	if err != nil {
		panic(err)
	}

	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.Product{},
		&model.Cart{},
		&model.CartItem{},
		&model.OrderStatus{},
		&model.Order{},
		&model.OrderItem{},
		&model.AuditLog{},
	); err != nil {
		panic(err)
	}

	//Repository（GORM実装）生成

	userRepo := infraRepo.NewUserGormRepository(gormDB)
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	cartRepo := infraRepo.NewCartGormRepository(gormDB)
	statusRepo := infraRepo.NewOrderStatusGormRepository(gormDB)
	txManager := infraRepo.NewTxManagerGorm(gormDB)

	//注文ステータスのレジストリをシード。
	//ここで入れ損ねてもチェックアウト側が「設定不備」として検知する
	if err := statusRepo.Seed(context.Background(), model.DefaultOrderStatuses); err != nil {
		panic(err)
	}

	//任意機能（Kafkaイベント・SESメール）。未設定ならnilのまま
	var eventPub usecase.OrderEventPublisher
	if p := events.NewPublisher(cfg.KafkaBrokers, cfg.OrderEventsTopic); p != nil {
		eventPub = p
		defer p.Close()
	}

	var mailer usecase.OrderNotifier
	if n, err := notifier.NewEmailNotifier(context.Background(), cfg); err != nil {
		logging.Log(logging.Fields{Service: "api", Step: "ses_init", Status: "error", Message: err.Error()})
	} else if n != nil {
		mailer = n
	}

	//Usecase生成
	authUC := usecase.NewAuthUsecase(userRepo, []byte(cfg.JWTSecret), 15*time.Minute)
	productUC := usecase.NewProductUsecase(productRepo)
	cartUC := usecase.NewCartUsecase(cartRepo, cartRepo, productRepo, userRepo)
	checkoutUC := usecase.NewCheckoutUsecase(
		txManager, cartRepo, cartRepo, productRepo, userRepo, statusRepo,
		cfg.ShippingCountry, eventPub, mailer,
	)
	orderUC := usecase.NewOrderUsecase(txManager)
	adminOrderUC := usecase.NewAdminOrderUsecase(txManager, eventPub)

	//Handler生成
	handlers := server.Handlers{
		Auth:       handler.NewAuthHandler(authUC),
		Product:    handler.NewProductHandler(productUC),
		Cart:       handler.NewCartHandler(cartUC),
		Order:      handler.NewOrderHandler(checkoutUC, orderUC),
		AdminOrder: handler.NewAdminOrderHandler(adminOrderUC),
	}

	m := metrics.NewServerMetrics("api")
	e := server.New(cfg, m, handlers)

	addr := ":" + cfg.Port
	if cfg.Port[0] == ':' {
		addr = cfg.Port
	}

	logging.Log(logging.Fields{Service: "api", Step: "start", Status: "ok", Message: addr})
	if err := server.Start(e, addr); err != nil {
		panic(err)
	}
}
