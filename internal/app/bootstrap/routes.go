// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"time"

	authapifeature "github.com/dalemusser/stratafiles/internal/app/features/authapi"
	filesapifeature "github.com/dalemusser/stratafiles/internal/app/features/filesapi"
	statusfeature "github.com/dalemusser/stratafiles/internal/app/features/status"
	usersapifeature "github.com/dalemusser/stratafiles/internal/app/features/usersapi"
	filestore "github.com/dalemusser/stratafiles/internal/app/store/files"
	jobstore "github.com/dalemusser/stratafiles/internal/app/store/jobs"
	tokenstore "github.com/dalemusser/stratafiles/internal/app/store/tokens"
	userstore "github.com/dalemusser/stratafiles/internal/app/store/users"
	"github.com/dalemusser/stratafiles/internal/app/system/gate"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. All routes are token-authenticated JSON
// API routes; there is no session or CSRF layer.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Stores shared across features
	users := userstore.New(deps.MongoDatabase)
	files := filestore.New(deps.MongoDatabase)
	jobs := jobstore.New(deps.MongoDatabase)
	tokens := tokenstore.New(deps.MongoDatabase, appCfg.TokenTTL)

	// Access-control gate consulted by every file operation
	g := gate.New(tokens)

	r := chi.NewRouter()

	// ─────────────────────────────────────────────────────────────────────────
	// Global Middleware (applies to ALL routes)
	// ─────────────────────────────────────────────────────────────────────────

	// Request timeout middleware: prevents requests from hanging indefinitely.
	r.Use(chimw.Timeout(30 * time.Second))

	// CORS middleware: must be early in the chain to handle preflight requests.
	r.Use(middleware.CORSFromConfig(coreCfg))

	// Security headers middleware: adds X-Frame-Options, X-Content-Type-Options, etc.
	r.Use(middleware.SecurityHeadersFromConfig(coreCfg))

	// ─────────────────────────────────────────────────────────────────────────
	// Routes
	// ─────────────────────────────────────────────────────────────────────────

	// Service liveness and usage counters
	statusHandler := statusfeature.NewHandler(deps.MongoClient, users, files, deps.FileStorage, logger)
	statusfeature.MountRoutes(r, statusHandler)

	// Session sign-in / sign-out
	authHandler := authapifeature.NewHandler(users, tokens, logger)
	authapifeature.MountRoutes(r, authHandler)

	// Account registration and identity
	usersHandler := usersapifeature.NewHandler(users, g, logger)
	r.Mount("/users", usersapifeature.Routes(usersHandler))

	// File metadata, content, and visibility
	filesHandler := filesapifeature.NewHandler(files, jobs, deps.FileStorage, g, logger)
	r.Mount("/files", filesapifeature.Routes(filesHandler))

	return r, nil
}
