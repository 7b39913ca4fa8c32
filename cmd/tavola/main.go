// Package main запускает локальный API мини-приложения ресторана.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/tavola-miniapp/internal/admin"
	"github.com/mmeshcher/tavola-miniapp/internal/api"
	"github.com/mmeshcher/tavola-miniapp/internal/checkout"
	"github.com/mmeshcher/tavola-miniapp/internal/config"
	"github.com/mmeshcher/tavola-miniapp/internal/handler"
	"github.com/mmeshcher/tavola-miniapp/internal/middleware"
	"github.com/mmeshcher/tavola-miniapp/internal/model"
	"github.com/mmeshcher/tavola-miniapp/internal/notify"
	"github.com/mmeshcher/tavola-miniapp/internal/orders"
	"github.com/mmeshcher/tavola-miniapp/internal/promo"
	"github.com/mmeshcher/tavola-miniapp/internal/service"
	"github.com/mmeshcher/tavola-miniapp/internal/storage"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	kv, err := storage.Open(ctx, cfg.StateURI, cfg.UserID)
	if err != nil {
		sugar.Fatalw("state storage initialization error", "error", err.Error())
	}

	client := api.NewClient(cfg.APIBaseURL, cfg.RequestTimeout)

	var host checkout.Host = notify.NewLogHost(logger)
	if cfg.AMQPURL != "" {
		conn, err := amqp.Dial(cfg.AMQPURL)
		if err != nil {
			sugar.Fatalw("amqp connection error", "error", err.Error())
		}
		defer conn.Close()

		amqpHost, err := notify.NewAMQPHost(conn, cfg.AMQPQueue)
		if err != nil {
			sugar.Fatalw("amqp channel error", "error", err.Error())
		}
		defer amqpHost.Close()
		host = amqpHost
	}

	initiator := checkout.NewInitiator(client, host, checkout.NewOrderIDGenerator(nil), checkout.Options{
		RestaurantAddress:  cfg.RestaurantAddress,
		PaymentDescription: cfg.PaymentDescription,
	}, logger)

	svc, err := service.NewSession(ctx, kv, service.Deps{
		Catalog:  client,
		Promo:    promo.NewValidator(client, logger),
		Checkout: initiator,
		Orders:   orders.NewHistory(client, logger),
		Gate:     admin.NewGate(client, logger),
		Panel:    admin.NewPanel(client, logger),
		Users:    client,
		Host:     host,
		Currency: cfg.Currency,
		Logger:   logger,
	})
	if err != nil {
		sugar.Fatalw("session initialization error", "error", err.Error())
	}
	defer svc.Close()

	identity := middleware.NewIdentity(model.User{ID: cfg.UserID})
	h := handler.NewHandler(svc, logger, identity)

	r := h.SetupRouter()

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: r,
	}

	g, ctx := errgroup.WithContext(ctx)

	// Фоновое обновление конфигурации администратора
	g.Go(func() error {
		svc.StartAdminRefresh(ctx, cfg.AdminRefresh)
		return nil
	})

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting tavola mini-app server",
			"addr", cfg.RunAddress,
			"api", cfg.APIBaseURL,
			"currency", cfg.Currency,
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
