package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/student-records/database"
	"github.com/sahilchouksey/student-records/handlers"
	auth_handlers "github.com/sahilchouksey/student-records/handlers/auth"
	institute_handlers "github.com/sahilchouksey/student-records/handlers/institute"
	"github.com/sahilchouksey/student-records/services"
	"github.com/sahilchouksey/student-records/utils/auth"
	"github.com/sahilchouksey/student-records/utils/middleware"
)

// Dependencies are the collaborators the routes are built from
type Dependencies struct {
	Store                database.Storage
	Port                 int
	JWTManager           *auth.JWTManager
	InstituteRequests    *services.InstituteRequestService
	BruteForceProtection *middleware.BruteForceProtection
}

// SetupRoutes mounts every route at the root and again under /api
func SetupRoutes(app *fiber.App, deps Dependencies) {
	db := deps.Store.GetDB()

	authMiddleware := middleware.NewAuthMiddleware(deps.JWTManager, db)
	authHandler := auth_handlers.NewAuthHandler(db, deps.JWTManager, deps.BruteForceProtection)
	instituteHandler := institute_handlers.NewInstituteRequestHandler(deps.InstituteRequests)
	healthHandler := handlers.HandleCheckHealth(deps.Store, deps.Port)

	for _, prefix := range []string{"", "/api"} {
		group := app.Group(prefix)

		group.Get("/health", healthHandler)

		// Auth routes
		authGroup := group.Group("/auth")
		authGroup.Post("/login", deps.BruteForceProtection.CheckAndRecordAttempt(), authHandler.Login)
		authGroup.Post("/refresh", authHandler.RefreshToken)
		authGroup.Post("/logout", authMiddleware.Required(), authHandler.Logout)

		// Institute registration requests. Submission is public; the service
		// decides 401 vs 403 for the rest from the optional principal.
		requests := group.Group("/institute-requests")
		requests.Post("/submit", instituteHandler.Submit)
		requests.Get("/all", authMiddleware.Optional(), instituteHandler.GetAll)
		requests.Get("/:id", authMiddleware.Optional(), instituteHandler.GetByID)
		requests.Post("/:id/approve", authMiddleware.Optional(), instituteHandler.Approve)
		requests.Post("/:id/reject", authMiddleware.Optional(), instituteHandler.Reject)
	}
}
