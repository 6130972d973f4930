package router

import (
	"net/http"
	"time"

	"shop-payment-service/internal/handler"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

func SetupRoutes(
	checkoutHandler *handler.CheckoutHandler,
	callbackHandler *handler.CallbackHandler,
	adminHandler *handler.AdminHandler,
	reportHandler *handler.ReportHandler,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggerMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Signature", "X-Timestamp"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/api/v1/payments/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Customer-facing initiation, called by the checkout flow.
		r.Route("/payments", func(r chi.Router) {
			r.Post("/mpesa", checkoutHandler.HandleInitiateMpesa)
			r.Post("/bank", checkoutHandler.HandleInitiateBank)
		})

		// Confirmations arriving from the mobile-money provider.
		r.Route("/callbacks", func(r chi.Router) {
			r.Post("/mpesa/stk", callbackHandler.HandleMpesaSTKCallback)
		})

		// Operator surface: manual channels, refunds, sweep, reports.
		// Authn/z is enforced upstream by the platform gateway.
		r.Route("/admin", func(r chi.Router) {
			r.Route("/payments", func(r chi.Router) {
				r.Post("/paybill", adminHandler.HandleRecordPaybill)
				r.Post("/cod", adminHandler.HandleInitiateCOD)
				r.Post("/cod/confirm", adminHandler.HandleConfirmCOD)
				r.Post("/bank/confirm", adminHandler.HandleConfirmBank)
				r.Get("/orders/{order_id}/attempts", adminHandler.HandleListOrderAttempts)
			})

			r.Route("/refunds", func(r chi.Router) {
				r.Post("/", adminHandler.HandleRequestRefund)
				r.Post("/{refund_id}/approve", adminHandler.HandleApproveRefund)
				r.Post("/{refund_id}/reject", adminHandler.HandleRejectRefund)
				r.Post("/{refund_id}/settle", adminHandler.HandleSettleRefund)
			})

			r.Post("/attempts/sweep", adminHandler.HandleSweepStale)
			r.Get("/reports/payments", reportHandler.HandlePaymentsReport)
		})
	})

	return r
}

// LoggerMiddleware logs HTTP requests
func LoggerMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("remote_addr", r.RemoteAddr),
				zap.String("user_agent", r.UserAgent()))
		})
	}
}
