// Package api wires the HTTP surface: middleware stack, route tree and the
// services behind each handler group.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/ativushq/ativus-backend/internal/api/handlers"
	"github.com/ativushq/ativus-backend/internal/api/middleware"
	"github.com/ativushq/ativus-backend/internal/asset"
	"github.com/ativushq/ativus-backend/internal/audit"
	"github.com/ativushq/ativus-backend/internal/auth"
	"github.com/ativushq/ativus-backend/internal/company"
	"github.com/ativushq/ativus-backend/internal/config"
	"github.com/ativushq/ativus-backend/internal/document"
	"github.com/ativushq/ativus-backend/internal/embedding"
	"github.com/ativushq/ativus-backend/internal/fieldupdate"
	"github.com/ativushq/ativus-backend/internal/gotrue"
	"github.com/ativushq/ativus-backend/internal/queue"
	"github.com/ativushq/ativus-backend/internal/site"
	"github.com/ativushq/ativus-backend/internal/storage"
	"github.com/ativushq/ativus-backend/internal/ticket"
	"github.com/ativushq/ativus-backend/internal/user"
	"github.com/ativushq/ativus-backend/internal/vectorstore"
)

type Router struct {
	mux    *chi.Mux
	db     *pgxpool.Pool
	redis  *redis.Client
	cfg    *config.Config
	logger *slog.Logger
	jwt    *auth.Middleware
}

func NewRouter(db *pgxpool.Pool, rdb *redis.Client, cfg *config.Config, logger *slog.Logger) *Router {
	return &Router{
		mux:    chi.NewRouter(),
		db:     db,
		redis:  rdb,
		cfg:    cfg,
		logger: logger,
		jwt:    auth.NewMiddleware(cfg.Supabase.JWTSecret, cfg.Supabase.ServiceKey),
	}
}

func (rt *Router) Setup(auditCfg *audit.Config, embedder embedding.Provider, queueClient *queue.Client) http.Handler {
	r := rt.mux

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(rt.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))

	rl := middleware.NewRateLimiter(100, 200, middleware.ClientIP)
	r.Use(rl.Limit)

	health := handlers.NewHealthHandler(rt.db, rt.redis)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	store := storage.NewSupabaseStorage(rt.cfg.Supabase.URL, rt.cfg.Supabase.ServiceKey)
	bucket := rt.cfg.Supabase.StorageBucket
	legacyBuckets := rt.cfg.LegacyBuckets()

	authClient := gotrue.NewClient(rt.cfg.Supabase.URL, rt.cfg.Supabase.AnonKey, rt.cfg.Supabase.ServiceKey)
	userSvc := user.NewService(rt.db, authClient)
	assetSvc := asset.NewService(rt.db)
	siteSvc := site.NewService(rt.db)
	companySvc := company.NewService(rt.db)
	ticketSvc := ticket.NewService(rt.db)
	fieldSvc := fieldupdate.NewService(rt.db, assetSvc)
	docSvc := document.NewService(rt.db, store, bucket, legacyBuckets)
	vectors := vectorstore.NewStore(rt.db)

	var analyst *audit.Analyst
	if rt.cfg.Audit.AnthropicKey != "" {
		analyst = audit.NewAnalyst(rt.cfg.Audit.AnthropicKey, rt.logger)
	}
	auditSvc := audit.NewService(rt.db, auditCfg, vectors, embedder, analyst, rt.logger)

	authH := handlers.NewAuthHandler(authClient, userSvc)
	assetH := handlers.NewAssetHandler(assetSvc)
	siteH := handlers.NewSiteHandler(siteSvc)
	companyH := handlers.NewCompanyHandler(companySvc)
	ticketH := handlers.NewTicketHandler(ticketSvc)
	fieldH := handlers.NewFieldUpdateHandler(fieldSvc, store, bucket, legacyBuckets)
	docH := handlers.NewDocumentHandler(docSvc, vectors, embedder, queueClient)
	categoryH := handlers.NewCategoryHandler(docSvc)
	userH := handlers.NewUserHandler(userSvc)
	groupH := handlers.NewGroupHandler(userSvc)
	auditH := handlers.NewAuditHandler(auditSvc)

	r.Route("/api", func(r chi.Router) {
		// Public auth endpoints
		r.Post("/auth/login", authH.Login)
		r.Post("/auth/refresh", authH.Refresh)

		// Everything else needs a verified token. A second, per-caller
		// limiter sits behind auth so one noisy user cannot starve the
		// rest of a NAT'd office.
		r.Group(func(r chi.Router) {
			r.Use(rt.jwt.Authenticate)
			r.Use(middleware.NewRateLimiter(25, 50, middleware.AuthenticatedKey).Limit)

			r.Get("/auth/me", authH.Me)
			r.Patch("/auth/password", authH.UpdatePassword)

			r.Route("/assets", func(r chi.Router) {
				r.Get("/", assetH.List)
				r.Post("/", assetH.Create)
				r.Get("/{id}", assetH.Get)
				r.Patch("/{id}", assetH.Update)
				r.Delete("/{id}", assetH.Delete)
			})

			r.Route("/sites", func(r chi.Router) {
				r.Get("/", siteH.List)
				r.Post("/", siteH.Create)
				r.Get("/{id}", siteH.Get)
				r.Patch("/{id}", siteH.Update)
				r.Delete("/{id}", siteH.Delete)
			})

			r.Route("/company-profiles", func(r chi.Router) {
				r.Get("/", companyH.List)
				r.Post("/", companyH.Create)
				r.Get("/{id}", companyH.Get)
				r.Patch("/{id}", companyH.Update)
				r.Delete("/{id}", companyH.Delete)
			})

			r.Route("/tickets", func(r chi.Router) {
				r.Get("/", ticketH.List)
				r.Post("/", ticketH.Create)
				r.Get("/{id}", ticketH.Get)
				r.Patch("/{id}", ticketH.Update)
				r.Delete("/{id}", ticketH.Delete)
				r.Get("/{id}/groups", ticketH.ListAssignments)
				r.Post("/{id}/groups", ticketH.AssignGroups)
			})

			r.Route("/field-updates", func(r chi.Router) {
				r.Get("/", fieldH.List)
				r.Post("/", fieldH.Create)
				r.Post("/upload", fieldH.Upload)
				r.Post("/file-url", fieldH.FileURL)
				r.Get("/file-url", fieldH.FileURL)
				r.Get("/{id}", fieldH.Get)
				r.Patch("/{id}", fieldH.Update)
				r.Delete("/{id}", fieldH.Delete)
			})

			r.Route("/documents", func(r chi.Router) {
				r.Get("/", docH.List)
				r.Post("/", docH.Create)
				r.Post("/search", docH.Search)
				r.Post("/upload", docH.Upload)
				r.Post("/reprocess", docH.Reprocess)
				r.Get("/{id}", docH.Get)
				r.Delete("/{id}", docH.Delete)
				r.Get("/{id}/versions", docH.ListVersions)
				r.Post("/{id}/versions", docH.UploadVersion)
				r.Get("/{id}/links", docH.ListLinks)
				r.Post("/{id}/links", docH.AddLinks)
				r.Delete("/{id}/links", docH.RemoveLinks)
			})

			r.Route("/document-versions", func(r chi.Router) {
				r.Delete("/{versionId}", docH.DeleteVersion)
				r.Get("/{versionId}/url", docH.VersionURL)
			})

			r.Route("/document-categories", func(r chi.Router) {
				r.Get("/", categoryH.List)
				r.Post("/", categoryH.Create)
				r.Patch("/{id}", categoryH.Update)
				r.Delete("/{id}", categoryH.Delete)
			})

			// Older clients fetch profiles under their own prefix
			r.Get("/profiles", userH.List)

			r.Route("/users", func(r chi.Router) {
				r.Get("/", userH.List)
				r.Post("/", userH.Create)
				r.Patch("/{id}", userH.Update)
				r.Delete("/{id}", userH.Delete)
				r.Post("/{id}/block", userH.Block)
				r.Post("/{id}/unblock", userH.Unblock)
			})

			r.Route("/user-groups", func(r chi.Router) {
				r.Get("/", groupH.List)
				r.Post("/", groupH.Create)
				r.Get("/{id}", groupH.Get)
				r.Patch("/{id}", groupH.Update)
				r.Delete("/{id}", groupH.Delete)
				r.Get("/{id}/members", groupH.ListMembers)
				r.Post("/{id}/members", groupH.AddMembers)
				r.Delete("/{id}/members/{userId}", groupH.RemoveMember)
			})

			r.Route("/audit", func(r chi.Router) {
				r.Get("/config", auditH.Config)
				r.Post("/runs", auditH.Run)
				r.Get("/runs", auditH.ListRuns)
				r.Get("/results/latest", auditH.LatestResults)
				r.Get("/evidence", auditH.ListEvidence)
				r.Post("/evidence", auditH.AddEvidence)
				r.Delete("/evidence/{id}", auditH.RemoveEvidence)
				r.Get("/exclusions", auditH.ListExclusions)
				r.Get("/items/{itemId}/suggestions", auditH.Suggestions)
				r.Put("/items/{itemId}/exclusions/{documentId}", auditH.Exclude)
				r.Delete("/items/{itemId}/exclusions/{documentId}", auditH.RemoveExclusion)
			})
		})
	})

	// Built frontend, if deployed alongside the API
	if rt.cfg.Static.PublicDir != "" {
		r.NotFound(middleware.SPAHandler(rt.cfg.Static.PublicDir).ServeHTTP)
	}

	return r
}
