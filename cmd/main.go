package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/co2quest/carbon-tracker/internal/advisor"
	"github.com/co2quest/carbon-tracker/internal/auth"
	"github.com/co2quest/carbon-tracker/internal/db"
	"github.com/co2quest/carbon-tracker/internal/forecast"
	"github.com/co2quest/carbon-tracker/internal/handlers"
	"github.com/co2quest/carbon-tracker/internal/location"
	"github.com/co2quest/carbon-tracker/internal/middleware"
	"github.com/co2quest/carbon-tracker/internal/trip"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found, using environment variables")
	}

	log.SetFormatter(&log.JSONFormatter{})
	if lvl, err := log.ParseLevel(envOr("LOG_LEVEL", "info")); err == nil {
		log.SetLevel(lvl)
	}

	client, err := db.ConnectMongo()
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		client.Disconnect(ctx)
	}()
	log.Info("Connected to MongoDB")

	database := client.Database(envOr("MONGO_DB", "carbon_tracker"))
	records := &db.MongoRecordStore{Collection: database.Collection("records")}
	vehicles := &db.MongoVehicleStore{Collection: database.Collection("vehicles")}
	users := &db.MongoUserCollection{Collection: database.Collection("users")}

	authService, err := auth.NewService()
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize auth service")
	}

	provider, err := location.ConnectMQTT(envOr("MQTT_BROKER_URL", "tcp://mqtt:1883"), envOr("MQTT_CLIENT_ID", "carbon-tracker-api"))
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to MQTT broker")
	}
	log.Info("Connected to MQTT broker")

	predictor := forecast.NewClient(envOr("FORECAST_API_URL", "http://forecast:5000"), os.Getenv("FORECAST_API_KEY"))
	recommender := advisor.NewClient(envOr("GEMINI_API_URL", "https://generativelanguage.googleapis.com"), os.Getenv("GEMINI_API_KEY"))

	manager := trip.NewManager(provider, vehicles, records)

	authHandler := handlers.NewAuthHandler(authService, users)
	vehicleHandler := handlers.NewVehicleHandler(vehicles)
	tripHandler := handlers.NewTripHandler(manager)
	carbonHandler := handlers.NewCarbonHandler(records, predictor, recommender)
	rewardsHandler := handlers.NewRewardsHandler(records)

	authMiddleware := middleware.NewAuthMiddleware(authService)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/api/auth/register", authHandler.Register)
	mux.HandleFunc("/api/auth/login", authHandler.Login)
	mux.HandleFunc("/api/vehicles", vehicleHandler.Collection)
	mux.HandleFunc("/api/vehicles/", vehicleHandler.Get)
	mux.HandleFunc("/api/trips/start", tripHandler.Start)
	mux.HandleFunc("/api/trips/stop", tripHandler.Stop)
	mux.HandleFunc("/api/trips/fuel", tripHandler.Fuel)
	mux.HandleFunc("/api/trips/cancel", tripHandler.Cancel)
	mux.HandleFunc("/api/trips/status", tripHandler.Status)
	mux.HandleFunc("/api/calculator", carbonHandler.Calculator)
	mux.HandleFunc("/api/dashboard", carbonHandler.Dashboard)
	mux.HandleFunc("/api/chart", carbonHandler.Chart)
	mux.HandleFunc("/api/advisor", carbonHandler.Advisor)
	mux.HandleFunc("/api/rewards", rewardsHandler.Catalogue)
	mux.HandleFunc("/api/points", rewardsHandler.Points)

	port := envOr("PORT", "8080")
	server := &http.Server{
		Addr:    ":" + port,
		Handler: authMiddleware.Authenticate(mux),
	}

	go func() {
		log.WithField("port", port).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("Shutting down")
	manager.Shutdown()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Server shutdown failed")
	}
}
