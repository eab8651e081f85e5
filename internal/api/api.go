package api

import (
	"context"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"golang.org/x/oauth2"

	"github.com/okellohq/sociapay/internal/config"
	"github.com/okellohq/sociapay/internal/domain"
	"github.com/okellohq/sociapay/internal/platform"
)

// MessageHandler is the engine's inbound entry point.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg domain.Message) error
}

// TransactionLister answers the ops API's transaction queries.
type TransactionLister interface {
	ListBySender(ctx context.Context, senderID string, limit int) ([]domain.Transaction, error)
}

type API struct {
	router       *mux.Router
	handler      MessageHandler
	transactions TransactionLister
	registry     *platform.Registry
	config       *config.Config
	oauthConfig  *oauth2.Config
	jwtSecret    []byte
}

func New(cfg *config.Config, handler MessageHandler, transactions TransactionLister, registry *platform.Registry) *API {
	api := &API{
		router:       mux.NewRouter(),
		handler:      handler,
		transactions: transactions,
		registry:     registry,
		config:       cfg,
		jwtSecret:    []byte(cfg.JWTSecret),
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.DiscordClientID,
			ClientSecret: cfg.DiscordClientSecret,
			RedirectURL:  cfg.DiscordRedirectURI,
			Scopes:       []string{"identify"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://discord.com/api/oauth2/authorize",
				TokenURL: "https://discord.com/api/oauth2/token",
			},
		},
	}

	api.setupRoutes()
	return api
}

func (a *API) setupRoutes() {
	a.router.HandleFunc("/healthz", a.handleHealth).Methods("GET")
	a.router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Inbound boundary: platform adapters POST normalized message envelopes here
	a.router.HandleFunc("/api/webhooks/{platform}", a.handleWebhook).Methods("POST")

	// Ops auth
	a.router.HandleFunc("/api/auth/login", a.handleLogin).Methods("GET")
	a.router.HandleFunc("/api/auth/callback", a.handleCallback).Methods("GET")
	a.router.HandleFunc("/api/auth/logout", a.handleLogout).Methods("POST")

	// Protected ops endpoints
	protected := a.router.PathPrefix("/api/admin").Subrouter()
	protected.Use(a.authMiddleware)

	protected.HandleFunc("/transactions", a.handleListTransactions).Methods("GET")
	protected.HandleFunc("/platforms", a.handlePlatformStatuses).Methods("GET")
}

func (a *API) Start() error {
	corsOptions := cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
	}

	handler := cors.New(corsOptions).Handler(a.router)

	log.Printf("API server listening on http://%s", a.config.WebBind)
	return http.ListenAndServe(a.config.WebBind, handler)
}
