package main

import (
	"net/http"

	"github.com/phrazzld/pantognostis-api/internal/api"
	apiMiddleware "github.com/phrazzld/pantognostis-api/internal/api/middleware"
)

// setupRouter creates the handlers over the application's services and
// mounts them on the API router.
func (app *application) setupRouter() http.Handler {
	return api.NewRouter(api.RouterConfig{
		Auth:               api.NewAuthHandler(app.authService, app.logger),
		Courses:            api.NewCourseHandler(app.catalog, app.logger),
		Reviews:            api.NewReviewHandler(app.reviews, app.logger),
		Payments:           api.NewPaymentHandler(app.enrollments, app.logger),
		Stats:              api.NewStatsHandler(app.sales, app.logger),
		Notifications:      api.NewNotificationHandler(app.notifications, app.hub, app.logger),
		Webinars:           api.NewWebinarHandler(app.webinars, app.logger),
		Users:              api.NewUserHandler(app.accounts, app.logger),
		AuthMiddleware:     apiMiddleware.NewAuthMiddleware(app.jwt, app.logger),
		Limiter:            app.limiter,
		RateLimitPerMinute: app.config.Redis.RateLimitPerMinute,
		Logger:             app.logger,
	})
}
