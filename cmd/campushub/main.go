package main

import (
	authhandler "campushub/internal/auth/handler"
	authmw "campushub/internal/auth/middleware"
	authrepo "campushub/internal/auth/repository"
	authservice "campushub/internal/auth/service"
	occhandler "campushub/internal/occupancy/handler"
	occrepo "campushub/internal/occupancy/repository"
	"campushub/internal/occupancy/scheduler"
	occservice "campushub/internal/occupancy/service"
	occvalidator "campushub/internal/occupancy/validator"
	usershandler "campushub/internal/users/handler"
	usersrepo "campushub/internal/users/repository"
	usersservice "campushub/internal/users/service"
	usersvalidator "campushub/internal/users/validator"
	"campushub/pkg/app"
	"campushub/pkg/config"
	"campushub/pkg/events"
	"campushub/pkg/notify"

	"github.com/joho/godotenv"
)

const ServiceName = "campushub"

func main() {
	_ = godotenv.Load()

	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	publisher := initPublisher(cfg)
	hub := notify.NewHub()

	userValidator := usersvalidator.NewUserValidator(cfg.Log)
	userRepo := usersrepo.NewMongoUserRepository(cfg)
	sessionRepo := authrepo.NewMongoSessionRepository(cfg)

	authService := authservice.NewAuthService(sessionRepo, userRepo, userValidator, cfg)
	userService := usersservice.NewUserService(userRepo, userValidator, authService, cfg)

	occupancyRepo := occrepo.NewMongoOccupancyRepository(cfg)
	occupancyService := occservice.NewOccupancyService(
		occupancyRepo,
		occvalidator.NewOccupancyValidator(cfg.Log),
		publisher,
		hub,
		cfg,
	)

	nightly := scheduler.New(occupancyService, cfg.Log)
	if err := nightly.Start(); err != nil {
		cfg.Log.Fatal("Failed to start nightly reset scheduler", "error", err)
	}

	sessionGuard := authmw.New(authService, cfg.Log)

	application := app.NewApplication(cfg)
	application.OnShutdown(func() {
		nightly.Stop()
		hub.Close()
		if err := publisher.Close(); err != nil {
			cfg.Log.Error("Failed to close event publisher", "error", err)
		}
	})
	application.SetApp(
		occhandler.NewWatchHandler(hub, cfg.Log),
		authhandler.NewAuthHandler(authService, sessionGuard, cfg.Log),
		usershandler.NewUserHandler(userService, sessionGuard, cfg.Log),
		occhandler.NewOccupancyHandler(occupancyService, sessionGuard, cfg.Log),
	)
	application.Run()
}

func initPublisher(cfg *config.Config) events.Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		cfg.Log.Info("Kafka brokers not configured, activity events disabled")
		return events.NewNoopPublisher()
	}

	publisher, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaActivityTopic, ServiceName)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka publisher", "error", err)
	}

	cfg.Log.Info("Kafka activity publisher configured",
		"brokers", cfg.KafkaBrokers,
		"topic", cfg.KafkaActivityTopic,
	)
	return publisher
}
