package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	apiMiddleware "github.com/phrazzld/pantognostis-api/internal/api/middleware"
	"github.com/phrazzld/pantognostis-api/internal/domain"
)

// RouterConfig carries the handlers and middleware the router mounts.
type RouterConfig struct {
	Auth          *AuthHandler
	Courses       *CourseHandler
	Reviews       *ReviewHandler
	Payments      *PaymentHandler
	Stats         *StatsHandler
	Notifications *NotificationHandler
	Webinars      *WebinarHandler
	Users         *UserHandler

	AuthMiddleware *apiMiddleware.AuthMiddleware

	// Limiter is nil when rate limiting is disabled.
	Limiter            apiMiddleware.Limiter
	RateLimitPerMinute int

	Logger *slog.Logger
}

// NewRouter creates the application router with all routes and middleware.
func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	authn := cfg.AuthMiddleware
	authLimit := apiMiddleware.RateLimit(cfg.Limiter, "auth", cfg.RateLimitPerMinute, log)
	paymentLimit := apiMiddleware.RateLimit(cfg.Limiter, "payments", cfg.RateLimitPerMinute, log)
	adminOnly := apiMiddleware.RequireRole(domain.RoleAdmin)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(log))

	r.Route("/api", func(r chi.Router) {
		// Account endpoints (public)
		r.Group(func(r chi.Router) {
			r.Use(authLimit)
			r.Post("/auth/signup", cfg.Auth.Signup)
			r.Post("/auth/signup-instructor", cfg.Auth.SignupInstructor)
			r.Post("/auth/verify-email", cfg.Auth.VerifyEmail)
			r.Post("/auth/login", cfg.Auth.Login)
			r.Post("/auth/refresh", cfg.Auth.RefreshToken)
			r.Post("/auth/forgot-password", cfg.Auth.ForgotPassword)
			r.Post("/auth/reset-password", cfg.Auth.ResetPassword)
			r.Post("/support", cfg.Users.ContactSupport)
		})

		// Catalog reads; a token widens what the caller sees
		r.Group(func(r chi.Router) {
			r.Use(authn.Optional)
			r.Get("/courses", cfg.Courses.ListCourses)
			r.Get("/courses/categories", cfg.Courses.Categories)
			r.Get("/courses/{id}", cfg.Courses.GetCourse)
			r.Get("/courses/{id}/sections", cfg.Courses.ListSections)
			r.Get("/courses/{id}/lectures", cfg.Courses.ListCourseLectures)
			r.Get("/sections/{id}", cfg.Courses.GetSection)
			r.Get("/sections/{id}/lectures", cfg.Courses.ListLectures)
			r.Get("/courses/{id}/reviews", cfg.Reviews.ListReviews)
			r.Get("/reviews/{id}", cfg.Reviews.GetReview)
			r.Get("/users/{id}/reviews", cfg.Reviews.ListUserReviews)
			r.Get("/webinars", cfg.Webinars.ListUpcoming)
			r.Get("/webinars/{id}", cfg.Webinars.Get)
		})

		r.With(authn.QueryToken).Get("/ws", cfg.Notifications.Connect)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authn.Authenticate)

			r.Get("/me", cfg.Auth.Me)
			r.Put("/me", cfg.Users.UpdateProfile)
			r.Get("/users/{id}", cfg.Users.GetUser)
			r.With(authLimit).Post("/auth/change-password", cfg.Auth.ChangePassword)
			r.Post("/instructor/apply", cfg.Auth.ApplyInstructor)

			r.Post("/courses", cfg.Courses.CreateCourse)
			r.Put("/courses/{id}", cfg.Courses.UpdateCourse)
			r.Delete("/courses/{id}", cfg.Courses.DeleteCourse)
			r.Patch("/courses/{id}/disabled", cfg.Courses.ToggleCourseDisabled)

			r.Post("/courses/{id}/sections", cfg.Courses.AddSection)
			r.Put("/sections/{id}", cfg.Courses.UpdateSection)
			r.Delete("/sections/{id}", cfg.Courses.DeleteSection)
			r.Patch("/sections/{id}/disabled", cfg.Courses.ToggleSectionDisabled)

			r.Post("/sections/{id}/lectures", cfg.Courses.AddLecture)
			r.Get("/lectures/{id}", cfg.Courses.GetLecture)
			r.Put("/lectures/{id}", cfg.Courses.UpdateLecture)
			r.Delete("/lectures/{id}", cfg.Courses.DeleteLecture)
			r.Patch("/lectures/{id}/disabled", cfg.Courses.ToggleLectureDisabled)

			r.Post("/courses/{id}/reviews", cfg.Reviews.AddReview)
			r.Put("/reviews/{id}", cfg.Reviews.EditReview)
			r.Delete("/reviews/{id}", cfg.Reviews.DeleteReview)

			r.Group(func(r chi.Router) {
				r.Use(paymentLimit)
				r.Post("/payments/intents", cfg.Payments.CreateIntent)
				r.Get("/payments/intents/{id}", cfg.Payments.GetIntent)
				r.Post("/payments/confirm", cfg.Payments.ConfirmPayment)
				r.Post("/payments/cards", cfg.Payments.SaveCard)
				r.Post("/payments/confirm-saved-card", cfg.Payments.ConfirmSavedCard)
			})
			r.Get("/users/{id}/transactions", cfg.Payments.UserTransactions)
			r.Get("/instructors/{id}/transactions", cfg.Payments.InstructorTransactions)

			r.Get("/stats/sales", cfg.Stats.Sales)

			r.Get("/notifications", cfg.Notifications.List)
			r.Patch("/notifications/read", cfg.Notifications.MarkAllRead)
			r.Patch("/notifications/{id}/read", cfg.Notifications.MarkRead)

			r.Post("/webinars", cfg.Webinars.Create)
			r.Put("/webinars/{id}", cfg.Webinars.Update)
			r.Delete("/webinars/{id}", cfg.Webinars.Delete)
			r.Post("/webinars/{id}/register", cfg.Webinars.Register)

			// Admin endpoints
			r.Group(func(r chi.Router) {
				r.Use(adminOnly)
				r.Patch("/courses/{id}/approval", cfg.Courses.ToggleCourseApproval)
				r.With(paymentLimit).Get("/payments/intents", cfg.Payments.ListIntents)
				r.Get("/transactions", cfg.Payments.ListTransactions)
				r.Get("/admin/notifications", cfg.Notifications.ListAll)
				r.Post("/admin/instructors/{id}/approve", cfg.Auth.ApproveInstructor)
				r.Post("/admin/instructors/{id}/cancel", cfg.Auth.CancelInstructor)
				r.Get("/admin/users", cfg.Users.ListUsers)
				r.Get("/admin/instructors", cfg.Users.ListInstructors)
				r.Patch("/admin/users/{id}", cfg.Users.UpdateUser)
			})
		})
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error("failed to write health check response", slog.String("error", err.Error()))
		}
	})

	return r
}
