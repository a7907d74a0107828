package router

import (
	"net/http"

	_ "account-service/docs"
	"account-service/internal/config"
	"account-service/internal/handlers"
	"account-service/internal/middleware"
	"account-service/internal/telemetry"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
)

func Setup(app *config.Application) http.Handler {
	router := mux.NewRouter()

	// Create instances of handlers and middleware
	h := handlers.New(app)
	mw := middleware.New(app)

	// Apply global middleware in order of execution
	router.Use(mw.RequestID) // First: Add request ID
	router.Use(otelmux.Middleware(telemetry.ServiceName))
	router.Use(mw.Recovery)                                       // Second: Catch panics
	router.Use(mw.Logging)                                        // Third: Log requests
	router.Use(middleware.Security)                               // Fourth: Security headers
	router.Use(middleware.Timeout(app.Config.GetRequestTimeout())) // Fifth: Request deadline

	// Monitoring routes (no authentication required)
	router.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.PathPrefix("/swagger/").Handler(httpSwagger.WrapHandler)

	// Account routes are served both at the root and under /api.
	mountRoutes(router.PathPrefix("/api").Subrouter(), h, mw)
	mountRoutes(router, h, mw)

	// CORS wraps the router so preflight requests never reach method matching.
	c := cors.New(cors.Options{
		AllowedOrigins:   app.Config.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	})

	return promhttp.InstrumentHandlerDuration(telemetry.RequestDuration, c.Handler(router))
}

func mountRoutes(r *mux.Router, h *handlers.Handlers, mw *middleware.Middleware) {
	r.HandleFunc("/", h.Root).Methods(http.MethodGet)

	// Public authentication routes
	auth := r.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/register", h.Register).Methods(http.MethodPost)
	auth.HandleFunc("/login", h.Login).Methods(http.MethodPost)
	auth.HandleFunc("/forgot-password", h.ForgotPassword).Methods(http.MethodPost)
	auth.HandleFunc("/reset-password", h.ResetPassword).Methods(http.MethodPost)
	auth.Handle("/{id}", mw.Authenticate(http.HandlerFunc(h.UpdateSelf))).Methods(http.MethodPut)

	// Admin routes
	admin := r.PathPrefix("/admin").Subrouter()
	admin.Use(mw.Authenticate, mw.RequireAdmin)

	admin.HandleFunc("/users", h.CreateUser).Methods(http.MethodPost)
	admin.HandleFunc("/users", h.ListUsers).Methods(http.MethodGet)
	admin.HandleFunc("/users/{id}", h.GetUser).Methods(http.MethodGet)
	admin.HandleFunc("/users/{id}", h.UpdateUser).Methods(http.MethodPut)
	admin.HandleFunc("/users/{id}", h.DeleteUser).Methods(http.MethodDelete)
}
