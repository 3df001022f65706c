package main

import (
	"context"
	"errors"
	"fmt"
	"log"
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
	"github.com/gregweisz-cmd/oxford-mileage-tracker-sub008/config"
	"github.com/gregweisz-cmd/oxford-mileage-tracker-sub008/models"
	"github.com/gregweisz-cmd/oxford-mileage-tracker-sub008/utils"
	"github.com/gregweisz-cmd/oxford-mileage-tracker-sub008/workflow"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
)

const defaultPort = "8080"

var tracer = otel.Tracer("expense-reconciler")

// RateLimiter throttles by client IP against Redis.
type RateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

func getRedisClient(redisAddress string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: redisAddress,
	})
}

func newEngine(logger *logrus.Logger) *workflow.Engine {
	// GormStore resolves config.GetDB() lazily, so the engine can be wired
	// before the database connection is established; the readiness gate keeps
	// traffic out until then.
	store := models.NewGormStore()
	inTx := func(ctx context.Context, fn func(tx workflow.Store) error) error {
		return store.RunInTransaction(ctx, func(tx *models.GormStore) error {
			return fn(tx)
		})
	}
	detector := workflow.NewDefaultDetector(store)
	notifier := workflow.NewAnomalyNotifier(detector, logger)
	return workflow.NewEngine(store, inTx, models.NewGormRuleSource(), notifier, logger)
}

func evaluateExpenseHandler(engine *workflow.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.NewExpenseEntry
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx := c.Request.Context()
		if req.ImageRef != "" && strings.EqualFold(strings.TrimSpace(os.Getenv("RECEIPT_VERIFY_ENABLED")), "true") {
			if err := verifyReceiptRef(ctx, req.ImageRef); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}

		decision, err := engine.EvaluateExpense(ctx, &req)
		if err != nil {
			respondEngineError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": decision})
	}
}

type decisionTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

func confirmExpenseHandler(engine *workflow.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req decisionTokenRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "token is required"})
			return
		}
		result, err := engine.ConfirmExpense(c.Request.Context(), req.Token)
		if err != nil {
			if errors.Is(err, workflow.ErrDecisionNotFound) {
				c.JSON(http.StatusGone, gin.H{"error": "decision expired or unknown"})
				return
			}
			respondEngineError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": result})
	}
}

func cancelExpenseHandler(engine *workflow.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req decisionTokenRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "token is required"})
			return
		}
		if err := engine.CancelExpense(req.Token); err != nil {
			c.JSON(http.StatusGone, gin.H{"error": "decision expired or unknown"})
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func listExpensesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		employeeId, ok := queryInt(c, "employee_id")
		if !ok {
			return
		}
		ctx := c.Request.Context()

		if monthStr := c.Query("month"); monthStr != "" {
			month, err := time.Parse("2006-01", monthStr)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "month must be YYYY-MM"})
				return
			}
			entries, err := models.EntriesForMonth(ctx, employeeId, month)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list entries"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"data": entries})
			return
		}

		date, ok := queryDate(c, "date")
		if !ok {
			return
		}
		entries, err := models.EntriesForDate(ctx, employeeId, date, nil)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list entries"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": entries})
	}
}

func deleteExpenseHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid entry id"})
			return
		}
		if err := models.DeleteExpenseEntry(c.Request.Context(), id); err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "entry not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete entry"})
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func saveDayHandler(engine *workflow.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req workflow.DayInput
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		rec, err := engine.SaveDay(c.Request.Context(), req)
		if err != nil {
			respondEngineError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": rec})
	}
}

func getDayHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		employeeId, ok := queryInt(c, "employee_id")
		if !ok {
			return
		}
		ctx := c.Request.Context()

		if monthStr := c.Query("month"); monthStr != "" {
			month, err := time.Parse("2006-01", monthStr)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "month must be YYYY-MM"})
				return
			}
			records, err := models.DayRecordsForMonth(ctx, employeeId, month)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list day records"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"data": records})
			return
		}

		date, ok := queryDate(c, "date")
		if !ok {
			return
		}
		rec, err := models.GetDayRecord(ctx, employeeId, date)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load day record"})
			return
		}
		if rec == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "no record for that day"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": rec})
	}
}

func clearDayHandler(engine *workflow.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		employeeId, ok := queryInt(c, "employee_id")
		if !ok {
			return
		}
		date, ok := queryDate(c, "date")
		if !ok {
			return
		}
		if err := engine.ClearDay(c.Request.Context(), employeeId, date); err != nil {
			respondEngineError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func updateDayHoursHandler(engine *workflow.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req workflow.DayHoursUpdate
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		rec, err := engine.UpdateDayHours(c.Request.Context(), req.EmployeeId, req.Date, req.HoursByCostCenter, req.HoursByFixedCategory)
		if err != nil {
			respondEngineError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": rec})
	}
}

func updateDayDescriptionHandler(engine *workflow.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req workflow.DayDescriptionUpdate
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		rec, err := engine.UpdateDayDescription(c.Request.Context(), req.EmployeeId, req.Date, req.Description)
		if err != nil {
			respondEngineError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": rec})
	}
}

func monthlyReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		employeeId, ok := queryInt(c, "employee_id")
		if !ok {
			return
		}
		month, err := time.Parse("2006-01", c.Query("month"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "month must be YYYY-MM"})
			return
		}

		data, err := workflow.MonthlyReport(c.Request.Context(), employeeId, month)
		if err != nil {
			respondEngineError(c, err)
			return
		}

		filename := fmt.Sprintf("expense-report-%d-%s.xlsx", employeeId, month.Format("2006-01"))
		c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
		c.Data(http.StatusOK,
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
	}
}

func createEmployeeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var emp models.Employee
		if err := c.ShouldBindJSON(&emp); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := models.CreateEmployee(c.Request.Context(), &emp); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create employee"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"data": emp})
	}
}

func listEmployeesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		employees, err := models.ListEmployees(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list employees"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": employees})
	}
}

func getEmployeeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid employee id"})
			return
		}
		emp, err := models.GetEmployee(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "employee not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load employee"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": emp})
	}
}

func upsertPerDiemRuleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var rule models.PerDiemRule
		if err := c.ShouldBindJSON(&rule); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := models.UpsertPerDiemRule(c.Request.Context(), &rule); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save per diem rule"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": rule})
	}
}

func upsertEesRuleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var rule models.EesRule
		if err := c.ShouldBindJSON(&rule); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := models.UpsertEesRule(c.Request.Context(), &rule); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save EES rule"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": rule})
	}
}

// respondEngineError maps engine errors to HTTP statuses: validation problems
// are the client's to fix, persistence failures are ours.
func respondEngineError(c *gin.Context, err error) {
	var verr *workflow.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  verr.Message,
			"reason": verr.Reason,
			"field":  verr.Field,
		})
		return
	}
	var perr *workflow.PersistenceError
	if errors.As(err, &perr) {
		logger := config.GetLogger()
		cid, _ := utils.GetCorrelationIdFromContext(c.Request.Context())
		config.LogError(logger, "server.go", "respondEngineError", perr.Op, cid, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "a storage error occurred; nothing was saved"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func queryInt(c *gin.Context, name string) (int, bool) {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil || v <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " is required"})
		return 0, false
	}
	return v, true
}

func queryDate(c *gin.Context, name string) (time.Time, bool) {
	v, err := time.Parse("2006-01-02", c.Query(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " must be YYYY-MM-DD"})
		return time.Time{}, false
	}
	return v, true
}

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}

func registerCustomValidations() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("costcenter", func(fl validator.FieldLevel) bool {
			s := strings.TrimSpace(fl.Field().String())
			return s != "" && len(s) <= 64
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
	registerCustomValidations()

	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	engine := newEngine(logger)

	// Start the HTTP server ASAP so the platform considers the revision
	// healthy. Until the DB is ready, app endpoints return 503.
	r := gin.New()

	// Correlation IDs: generate once per request and attach to context.
	r.Use(func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Writer.Header().Set("x-correlation-id", cid)
		c.Next()
	})
	r.Use(func(c *gin.Context) {
		// Always allow startup probe.
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		// Gate app endpoints on database readiness. Redis is best-effort and
		// never gates.
		if config.GetDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	// In production, require an explicit allowlist via CORS_ALLOWED_ORIGINS
	// (comma-separated). In non-production, allow all.
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = utils.SplitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("token", "Origin", "Content-Type", "Authorization")
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition")
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	// Optional rate limiting.
	// Env: RATE_LIMIT_ENABLED, RATE_LIMIT_WINDOW_SECONDS, RATE_LIMIT_MAX_REQUESTS.
	if strings.EqualFold(strings.TrimSpace(os.Getenv("RATE_LIMIT_ENABLED")), "true") {
		client := getRedisClient(os.Getenv("REDIS_ADDRESS"))
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
		rateLimiter := NewRateLimiter(client, limit, time.Duration(windowSec)*time.Second)
		r.Use(rateLimiter.RateLimitMiddleware)
	}

	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	r.POST("/expenses/evaluate", evaluateExpenseHandler(engine))
	r.POST("/expenses/confirm", confirmExpenseHandler(engine))
	r.POST("/expenses/cancel", cancelExpenseHandler(engine))
	r.GET("/expenses", listExpensesHandler())
	r.DELETE("/expenses/:id", deleteExpenseHandler())

	r.PUT("/days", saveDayHandler(engine))
	r.GET("/days", getDayHandler())
	r.DELETE("/days", clearDayHandler(engine))
	r.PATCH("/days/hours", updateDayHoursHandler(engine))
	r.PATCH("/days/description", updateDayDescriptionHandler(engine))

	r.POST("/uploads/receipt", uploadReceiptHandler())
	r.DELETE("/uploads/receipt", deleteReceiptHandler())

	r.GET("/reports/monthly", monthlyReportHandler())

	r.POST("/employees", createEmployeeHandler())
	r.GET("/employees", listEmployeesHandler())
	r.GET("/employees/:id", getEmployeeHandler())

	// Ops tooling: rule tables are maintained by finance, not employees.
	r.PUT("/internal/rules/per-diem", upsertPerDiemRuleHandler())
	r.PUT("/internal/rules/ees", upsertEesRuleHandler())

	r.NoRoute(customNotFoundHandler)

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
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	// AutoMigrate can run DDL that blocks tables; allow running migrations as
	// a separate job instead.
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	logger.WithFields(logrus.Fields{
		"info": "Connection Established",
	}).Info("listening on http://localhost:", port)
	log.Println("Server started successfully")

	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}

// customErrorLogger logs only requests that accumulated errors.
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

func NewRateLimiter(client *redis.Client, limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

// RateLimitMiddleware counts requests per client IP in a fixed window.
func (rl *RateLimiter) RateLimitMiddleware(c *gin.Context) {
	key := "ratelimit:" + c.ClientIP()

	exists, err := rl.client.Exists(c.Request.Context(), key).Result()
	if err != nil {
		// Redis down must not take the API with it.
		c.Next()
		return
	}

	if exists == 0 {
		if err := rl.client.Set(c.Request.Context(), key, 1, rl.window).Err(); err != nil {
			c.Next()
			return
		}
		c.Next()
		return
	}

	count, err := rl.client.Incr(c.Request.Context(), key).Result()
	if err != nil {
		c.Next()
		return
	}

	if count > rl.limit {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error": fmt.Sprintf("Rate limit exceeded. Try again in %d seconds", int(rl.window.Seconds())),
		})
		return
	}

	c.Next()
}
