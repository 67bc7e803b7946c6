package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"

	"github.com/cashlytics/server/internal/auth"
	database "github.com/cashlytics/server/internal/db"
	emailService "github.com/cashlytics/server/internal/email"
	"github.com/cashlytics/server/internal/finance/application"
	"github.com/cashlytics/server/internal/finance/infrastructure"
	"github.com/cashlytics/server/internal/finance/interfaces"
)

type Response struct {
	Message string `json:"message"`
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log.Printf("Started %s %s", r.Method, r.URL.Path)

		next.ServeHTTP(w, r)

		log.Printf("Completed %s in %v", r.URL.Path, time.Since(start))
	})
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]interface{}{
		"status":  "error",
		"message": message,
		"code":    status,
	})
}

type Server struct {
	router             *http.ServeMux
	dbService          *database.DBService
	authHandler        *auth.Handler
	authService        auth.Service
	transactionHandler *interfaces.TransactionHandler
}

func NewServer(dbService *database.DBService, authHandler *auth.Handler, authService auth.Service, transactionHandler *interfaces.TransactionHandler) *Server {
	return &Server{
		dbService:          dbService,
		authHandler:        authHandler,
		authService:        authService,
		transactionHandler: transactionHandler,
		router:             http.NewServeMux(),
	}
}

func notFoundHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	json.NewEncoder(w).Encode(Response{Message: "Path not found"})
}

func checkConfiguration() error {
	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file, continuing with system environment variables")
	}

	if os.Getenv("JWT_SECRET") == "" {
		return errors.New("no JWT_SECRET provided")
	}
	if os.Getenv("DB_CONNECTION_STRING") == "" {
		return errors.New("no DB_CONNECTION_STRING provided")
	}
	return nil
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.dbService.Health())
}

func (s *Server) RegisterRoutes() {
	// Public routes
	publicRoutes := http.NewServeMux()
	publicRoutes.Handle("POST /api/auth/signup", http.HandlerFunc(s.authHandler.HandleSignUp))
	publicRoutes.Handle("POST /api/auth/login", http.HandlerFunc(s.authHandler.HandleLogin))
	publicRoutes.Handle("POST /api/auth/logout", http.HandlerFunc(s.authHandler.HandleLogout))
	publicRoutes.Handle("POST /api/auth/email/verify", http.HandlerFunc(s.authHandler.HandleVerifyEmail))
	publicRoutes.Handle("GET /api/ready", http.HandlerFunc(s.handleReady))
	publicRoutes.Handle("GET /api/health", http.HandlerFunc(s.handleHealth))

	// Transaction routes, all behind the authentication gate
	gate := s.authService.JWTAccessTokenMiddleware()
	transactionRoutes := http.NewServeMux()
	transactionRoutes.Handle("GET /api/transactions", gate(http.HandlerFunc(s.transactionHandler.GetUserTransactions)))
	transactionRoutes.Handle("POST /api/transactions", gate(http.HandlerFunc(s.transactionHandler.CreateTransaction)))
	transactionRoutes.Handle("GET /api/transactions/weekly-report", gate(http.HandlerFunc(s.transactionHandler.GetWeeklyReport)))
	transactionRoutes.Handle("GET /api/transactions/{transactionID}", gate(http.HandlerFunc(s.transactionHandler.GetTransaction)))
	transactionRoutes.Handle("PUT /api/transactions/{transactionID}", gate(http.HandlerFunc(s.transactionHandler.UpdateTransaction)))
	transactionRoutes.Handle("DELETE /api/transactions/{transactionID}", gate(http.HandlerFunc(s.transactionHandler.DeleteTransaction)))

	// Main router
	mainRouter := http.NewServeMux()
	mainRouter.Handle("/api/", publicRoutes)
	mainRouter.Handle("/api/transactions", transactionRoutes)
	mainRouter.Handle("/api/transactions/", transactionRoutes)
	mainRouter.Handle("/", http.HandlerFunc(notFoundHandler))

	s.router = mainRouter
}

func main() {
	if err := checkConfiguration(); err != nil {
		log.Fatalf("Missing configuration, update to start server: %v", err)
	}

	// Amounts serialize as bare JSON numbers, matching the API contract.
	decimal.MarshalJSONWithoutQuotes = true

	dbService, err := database.NewDBService()
	if err != nil {
		log.Fatalf("Could not initialize database: %v", err)
	}
	defer dbService.Close()

	if err := database.RunMigrations(dbService.DB); err != nil {
		log.Fatalf("Could not run database migrations: %v", err)
	}

	confirmationRequired := os.Getenv("EMAIL_CONFIRMATION_REQUIRED") == "true"
	sender := emailService.NewEmailService()
	if confirmationRequired && sender == nil {
		log.Println("EMAIL_CONFIRMATION_REQUIRED is set but SMTP is not configured, confirmation codes will only be logged")
	}

	jwtManager := auth.NewJWTManager()
	revocationList := auth.NewRevocationList()
	authRepo := auth.NewUserRepository(dbService.DB)
	authService := auth.NewAuthService(authRepo, jwtManager, revocationList, sender, confirmationRequired)
	authHandler := auth.NewHandler(authService)

	transactionRepo := infrastructure.NewTransactionRepository(dbService.DB)
	transactionService := application.NewTransactionService(transactionRepo)
	reportService := application.NewReportService(transactionRepo)
	transactionHandler := interfaces.NewTransactionHandler(transactionService, reportService, respondJSON, respondError)

	server := NewServer(dbService, authHandler, authService, transactionHandler)
	server.RegisterRoutes()

	if err := StartPurgeScheduler(authService); err != nil {
		log.Fatalf("Scheduler didn't start, stopping the app ...")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	handler := loggingMiddleware(server.router)
	log.Printf("Server starting on port %s...", port)
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}

func StartPurgeScheduler(authService auth.Service) error {
	c := cron.New()
	_, err := c.AddFunc("@every 1h", func() {
		authService.PurgeExpired(context.Background())
	})
	if err != nil {
		return err
	}
	c.Start()
	return nil
}
