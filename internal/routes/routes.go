package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tutorhive/backend/internal/config"
	"github.com/tutorhive/backend/internal/gateway"
	"github.com/tutorhive/backend/internal/handlers"
	"github.com/tutorhive/backend/internal/meeting"
	"github.com/tutorhive/backend/internal/middleware"
	"github.com/tutorhive/backend/internal/notifier"
	"github.com/tutorhive/backend/internal/repository"
	"github.com/tutorhive/backend/internal/services"
)

// RegisterRoutes wires repositories, services and handlers and mounts the
// API. The returned reminder service is started by the caller.
func RegisterRoutes(app *fiber.App, cfg *config.Config, db *pgxpool.Pool) (*services.ReminderService, error) {
	userRepo := repository.NewUserRepository(db)
	tutorRepo := repository.NewTutorRepository(db)
	topicRepo := repository.NewTopicRepository(db)
	lessonRepo := repository.NewLessonRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	payoutRepo := repository.NewPayoutRepository(db)
	gatewayOrderRepo := repository.NewGatewayOrderRepository(db)
	reminderRepo := repository.NewReminderRepository(db)

	paymentGateway, err := gateway.NewPaypalGateway(cfg.PaypalClientID, cfg.PaypalSecret, cfg.PaypalSandbox)
	if err != nil {
		return nil, err
	}
	meetings := meeting.NewBigBlueButton(cfg.MeetingBaseURL, cfg.MeetingSecret)
	mailer := notifier.NewHTTPMailer(cfg.MailAPIURL, cfg.MailAPIKey, cfg.MailFromAddress)
	alerter := notifier.NewTelegramAlerter(cfg.TelegramBotToken, cfg.TelegramChatID)

	promotionService := services.NewPromotionService(tutorRepo, lessonRepo)
	payoutService := services.NewPayoutService(
		db, payoutRepo, paymentRepo, gatewayOrderRepo, tutorRepo, userRepo,
		mailer, alerter, cfg.ClientURL,
	)
	reminderService := services.NewReminderService(
		reminderRepo, userRepo, tutorRepo, payoutService, meetings,
		mailer, alerter, cfg.ClientURL, cfg.ReminderPollInterval,
	)
	lessonService := services.NewLessonService(
		db, lessonRepo, userRepo, tutorRepo, topicRepo, reminderService,
		mailer, cfg.ClientURL, cfg.MinLessonCost,
	)
	paymentService := services.NewPaymentService(
		db, paymentRepo, lessonRepo, gatewayOrderRepo, payoutRepo, userRepo, topicRepo,
		paymentGateway, promotionService, lessonService, mailer, alerter, cfg.PaymentFeeFraction,
	)

	authHandler := handlers.NewAuthHandler(db, userRepo, tutorRepo, cfg.JWTSecret)
	lessonHandler := handlers.NewLessonHandler(lessonService)
	orderHandler := handlers.NewOrderHandler(paymentService)
	payoutHandler := handlers.NewPayoutHandler(payoutService)
	promotionHandler := handlers.NewPromotionHandler(promotionService)
	webhookHandler := handlers.NewWebhookHandler(paymentService)

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Get("/me", middleware.AuthRequired(cfg.JWTSecret), authHandler.Me)

	api.Post("/webhooks/paypal", webhookHandler.HandlePaypalEvent)

	authProtected := api.Group("/v1", middleware.AuthRequired(cfg.JWTSecret))

	lessons := authProtected.Group("/lessons")
	lessons.Post("", lessonHandler.CreateLesson)
	lessons.Get("", lessonHandler.ListLessons)
	lessons.Get("/:id", lessonHandler.GetLesson)
	lessons.Put("/:id", lessonHandler.UpdateLesson)
	lessons.Delete("/:id", lessonHandler.DeleteLesson)
	lessons.Post("/:id/status", lessonHandler.CreateStatus)
	lessons.Post("/:id/orders", orderHandler.CreateOrder)
	lessons.Get("/:id/order", orderHandler.GetLessonOrder)
	lessons.Get("/:id/promotions/quote", promotionHandler.Quote)

	orders := authProtected.Group("/orders")
	orders.Get("", orderHandler.ListOrders)
	orders.Post("/:orderId/capture", orderHandler.CaptureOrder)

	payouts := authProtected.Group("/payouts")
	payouts.Get("", payoutHandler.ListPayouts)
	payouts.Get("/summary", payoutHandler.Summary)
	payouts.Post("/request", payoutHandler.RequestPayout)
	payouts.Put("/settings", payoutHandler.UpdateSettings)
	payouts.Post("/complete", payoutHandler.MarkComplete)

	promotions := authProtected.Group("/promotions")
	promotions.Get("", promotionHandler.ListPromotions)
	promotions.Post("", promotionHandler.AddPromotion)
	promotions.Delete("/:code", promotionHandler.RemovePromotion)

	return reminderService, nil
}
