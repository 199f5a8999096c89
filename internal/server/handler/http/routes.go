package http

import (
	"net/http"

	"github.com/atinyakov/FitKeeper/internal/middleware"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// RouterConfig carries the gate policy and CORS settings of the router.
type RouterConfig struct {
	// Gate is the policy of protected routes; GuestAllowed is ignored and
	// set per route group.
	Gate           middleware.GatePolicy
	AllowedOrigins []string
}

// NewRouter constructs and returns an HTTP handler that serves
// the FitKeeper API.
//
// Routes:
//
//	POST  /api/register      → authHandler.Register
//	POST  /api/login         → authHandler.Login
//	POST  /api/guest         → authHandler.Guest
//	POST  /api/logout        → authHandler.Logout
//	GET   /api/session       → authHandler.Session
//	GET   /api/home          → homeHandler.Home          (guests allowed)
//	GET   /api/home/stream   → homeHandler.Stream        (guests allowed)
//	GET   /api/record        → ledgerHandler.Record
//	POST  /api/exercises     → ledgerHandler.AddExercise
//	POST  /api/meals         → ledgerHandler.AddMeal
//	POST  /api/meals/reset   → ledgerHandler.ResetDailyTotals
//	PUT   /api/calories      → ledgerHandler.SetRequiredCalories
//	PATCH /api/profile       → ledgerHandler.UpdateProfile
//	GET   /api/workouts      → workoutHandler.Recommend
//	GET   /healthz
//
// Middleware chain (applied in order):
//  1. RequestID, Recoverer
//  2. CORS
//  3. AllowContentType("application/json"): rejects non-JSON bodies
//  4. WithRequestLogging(logger)
//  5. Gate, per route group
func NewRouter(
	authHandler *AuthHandler,
	ledgerHandler *LedgerHandler,
	workoutHandler *WorkoutHandler,
	homeHandler *HomeHandler,
	resolver middleware.Resolver,
	cfg RouterConfig,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler)

	// Only allow requests with Content-Type: application/json
	r.Use(chiMiddleware.AllowContentType("application/json"))

	// Log each request and its metadata
	r.Use(middleware.WithRequestLogging(logger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	guestPolicy := cfg.Gate
	guestPolicy.GuestAllowed = true
	memberPolicy := cfg.Gate
	memberPolicy.GuestAllowed = false

	r.Route("/api", func(r chi.Router) {
		// Public endpoints
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/guest", authHandler.Guest)
		r.Post("/logout", authHandler.Logout)
		r.Get("/session", authHandler.Session)

		// Guests may see the home screen
		r.Group(func(r chi.Router) {
			r.Use(middleware.Gate(resolver, guestPolicy, logger))
			r.Get("/home", homeHandler.Home)
			r.Get("/home/stream", homeHandler.Stream)
		})

		// Members only
		r.Group(func(r chi.Router) {
			r.Use(middleware.Gate(resolver, memberPolicy, logger))
			r.Get("/record", ledgerHandler.Record)
			r.Post("/exercises", ledgerHandler.AddExercise)
			r.Post("/meals", ledgerHandler.AddMeal)
			r.Post("/meals/reset", ledgerHandler.ResetDailyTotals)
			r.Put("/calories", ledgerHandler.SetRequiredCalories)
			r.Patch("/profile", ledgerHandler.UpdateProfile)
			r.Get("/workouts", workoutHandler.Recommend)
		})
	})

	return r
}
