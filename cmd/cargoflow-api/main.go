// README: Entry point; loads config, wires modules, runs HTTP + WS server.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"cargoflow/internal/auth"
	"cargoflow/internal/config"
	"cargoflow/internal/events"
	cargohttp "cargoflow/internal/http"
	"cargoflow/internal/infra"
	"cargoflow/internal/maps"
	"cargoflow/internal/modules/booking"
	"cargoflow/internal/modules/dispatch"
	"cargoflow/internal/modules/fleet"
	"cargoflow/internal/modules/pricing"
	"cargoflow/internal/tracking"
	"cargoflow/internal/ws"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		log.SetLevel(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Maps.APIKey == "" {
		log.Fatal("maps.apikey is required")
	}
	router, err := maps.NewRouteService(cfg.Maps.APIKey, cfg.Maps.Timeout)
	if err != nil {
		log.Fatalf("maps init: %v", err)
	}

	broker := events.NewBroker(log)

	var bookingStore booking.Store = booking.NewMemStore()
	pricingStore := pricing.NewStore(pricing.DefaultTariffs())
	if cfg.Storage.Backend == "postgres" {
		dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
		if err != nil {
			log.Fatalf("db init: %v", err)
		}
		defer dbPool.Close()
		bookingStore = booking.NewPGStore(dbPool)
		if pricingStore, err = pricing.LoadStore(ctx, dbPool); err != nil {
			log.Fatalf("tariff load: %v", err)
		}
	}

	var geo *fleet.GeoIndex
	var routeCache dispatch.RouteCache
	if cfg.Redis.Addr != "" {
		redisClient := infra.NewRedis(cfg.Redis.Addr)
		defer redisClient.Close()
		geo = fleet.NewGeoIndex(redisClient)
		routeCache = dispatch.NewRedisRouteCache(redisClient, cfg.Dispatch.RouteCacheTTL, log)
	}

	if cfg.AMQP.URL != "" {
		conn, ch, err := infra.NewRabbit(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			log.Fatalf("rabbitmq init: %v", err)
		}
		defer conn.Close()
		defer ch.Close()
		go events.NewRabbitMirror(ch, cfg.AMQP.Exchange, log).Run(ctx, broker)
	}

	pricingSvc := pricing.NewService(pricingStore)
	fleetSvc := fleet.NewService(fleet.NewStore(fleet.SeedDrivers()), geo, broker, log)
	ledger := booking.NewService(bookingStore, pricingSvc)
	dispatchSvc := dispatch.NewService(
		ledger, fleetSvc, pricingSvc, router, routeCache, broker,
		cfg.Dispatch.RouteRetries, log)

	tokens := auth.NewManager(cfg.JWT.Secret, cfg.JWT.TTL)
	users := auth.NewService(auth.SeedUsers(), tokens)

	poller := tracking.NewPoller(ledger, fleetSvc, cfg.Tracking.PollInterval, log)
	hub := ws.NewHub(broker, poller, log)

	engine := cargohttp.NewRouter(cargohttp.RouterDeps{
		Auth:     users,
		Tokens:   tokens,
		Dispatch: dispatchSvc,
		Ledger:   ledger,
		Fleet:    fleetSvc,
		Pricing:  pricingSvc,
		WS:       hub.Handler,
		Log:      log,
	})

	server := cargohttp.NewServer(cfg.HTTP.Addr, engine, log)
	if err := server.Run(ctx); err != nil {
		log.Fatal(err)
	}
}
