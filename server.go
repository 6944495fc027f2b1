package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/welddesk/reports_backend/config"
	"github.com/welddesk/reports_backend/middlewares"
	"github.com/welddesk/reports_backend/models"
	"github.com/welddesk/reports_backend/utils"
	"github.com/welddesk/reports_backend/workflow"
)

const defaultPort = "8080"

// RateLimiter throttles privileged journal mutations per client IP.
type RateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

func NewRateLimiter(client *redis.Client, limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

func (rl *RateLimiter) RateLimitMiddleware(c *gin.Context) {
	key := "ratelimit:" + c.ClientIP()

	exists, err := rl.client.Exists(c.Request.Context(), key).Result()
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	if exists == 0 {
		if err := rl.client.Set(c.Request.Context(), key, 1, rl.window).Err(); err != nil {
			c.AbortWithError(http.StatusInternalServerError, err)
			return
		}
		c.Next()
		return
	}

	count, err := rl.client.Incr(c.Request.Context(), key).Result()
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	if count > rl.limit {
		c.AbortWithStatus(http.StatusTooManyRequests)
		return
	}
	c.Next()
}

// customErrorLogger is a custom Gin middleware that logs only errors
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only log when there are errors
		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func registerValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("journalcolumn", func(fl validator.FieldLevel) bool {
			name := fl.Field().String()
			for _, col := range models.JournalColumns {
				if col.Name == name {
					return true
				}
			}
			return false
		})
	}
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		// Cloud Run standard env var.
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	// Shutdown coordination.
	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	registerValidators()

	// Start the HTTP server ASAP so Cloud Run considers the revision healthy.
	// Until Firestore is ready, we return 503 for app endpoints.
	r := gin.New()
	// Correlation IDs: generate once per request and attach to context.
	r.Use(func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	})
	r.Use(func(c *gin.Context) {
		// Always allow Cloud Run startup probe.
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		// Gate app endpoints on store readiness.
		if config.GetFirestore() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	// Production-safe CORS:
	// - In production, require explicit allowlist via CORS_ALLOWED_ORIGINS (comma-separated).
	// - In non-production, allow all (developer convenience).
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			// Safer default: deny all if not configured in production.
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PATCH", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("token", "Origin", "Content-Type", "Authorization")
	corsConfig.AddExposeHeaders("Content-Length", "X-Export-Url")
	corsConfig.AllowCredentials = true

	r.Use(cors.New(corsConfig))
	r.Use(middlewares.AuthMiddleware())
	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	store := models.NewFirestoreReportStore()
	policy := models.PolicyFromEnv()
	customerFilter := strings.TrimSpace(os.Getenv("JOURNAL_CUSTOMER_FILTER"))
	hub := workflow.NewJournalHub(store, policy, customerFilter)

	// Rate limiting for the mutating surface (recommended for production).
	// Env:
	// - RATE_LIMIT_ENABLED=true
	// - RATE_LIMIT_WINDOW_SECONDS=60
	// - RATE_LIMIT_MAX_REQUESTS=600
	var limited gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if strings.EqualFold(strings.TrimSpace(os.Getenv("RATE_LIMIT_ENABLED")), "true") {
		limit := int64(600)
		if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_MAX_REQUESTS")); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				limit = n
			}
		}
		windowSec := int64(60)
		if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_WINDOW_SECONDS")); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				windowSec = n
			}
		}
		address := os.Getenv("REDIS_ADDRESS")
		if address == "" {
			address = "127.0.0.1:6379"
		}
		client := redis.NewClient(&redis.Options{Addr: address})
		limited = NewRateLimiter(client, limit, time.Duration(windowSec)*time.Second).RateLimitMiddleware
	}

	// Journal view surface.
	r.GET("/journal", getJournalHandler(hub))
	r.POST("/journal/filters", setFilterHandler(hub))
	r.DELETE("/journal/filters/:column", clearFilterHandler(hub))
	r.GET("/journal/filters/:column/values", filterValuesHandler(hub))
	r.POST("/journal/search", setSearchHandler(hub))
	r.POST("/journal/page", setPageHandler(hub))
	r.POST("/journal/select/:id", toggleSelectHandler(hub))
	r.POST("/journal/open", openSelectedHandler(hub))
	r.GET("/journal/export", exportJournalHandler(hub))
	r.DELETE("/journal/selected", limited, deleteSelectedHandler(hub))

	// Single-report edit session.
	r.GET("/journal/edit", editStateHandler(hub))
	r.POST("/journal/edit/:id", limited, beginEditHandler(hub))
	r.POST("/journal/edit-field", fieldChangedHandler(hub))
	r.POST("/journal/edit-save", limited, saveEditHandler(hub))
	r.POST("/journal/edit-cancel", cancelEditHandler(hub))

	// Report detail + privileged boundary operations.
	r.GET("/reports/:id", getReportHandler(hub))
	r.PATCH("/reports/:id", limited, editReportHandler(hub))
	r.DELETE("/reports/:id", limited, deleteReportHandler(hub))

	// Renumber reconciliation: manual trigger + Pub/Sub push subscription.
	r.POST("/renumber", limited, renumberHandler(hub))
	r.POST("/pubsub/renumber", renumberPubSubHandler(hub))

	// Start listening immediately (Cloud Run startup probe is TCP based).
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		// ListenAndServe returns http.ErrServerClosed on graceful shutdown.
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open.
	config.ConnectFirestoreWithRetry(sigCtx)
	if os.Getenv("REDIS_ADDRESS") != "" {
		config.ConnectRedisWithRetry(sigCtx)
	}

	// Live journal subscription + hub event loop.
	watcherCtx, cancelWatcher := context.WithCancel(context.Background())
	defer cancelWatcher()
	watcher := workflow.NewSnapshotWatcher(customerFilter)
	watcher.Start(watcherCtx)
	go hub.Consume(watcherCtx, watcher)

	logger.WithFields(logrus.Fields{
		"info": "Connection Established",
	}).Info("journal backend listening on :", port)

	// Block until shutdown or server error.
	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	// Stop the subscription first so it doesn't deliver into a draining hub.
	cancelWatcher()
	watcher.Stop()

	// Drain HTTP requests.
	shutdownTimeout := 30 * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	// Close clients (best-effort).
	if fs := config.GetFirestore(); fs != nil {
		_ = fs.Close()
	}
	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}
