package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"bitbucket.org/mmdatafocus/capex_backend/config"
	"bitbucket.org/mmdatafocus/capex_backend/models"
	"bitbucket.org/mmdatafocus/capex_backend/sheet"
	"bitbucket.org/mmdatafocus/capex_backend/utils"
	"bitbucket.org/mmdatafocus/capex_backend/validation"
	"bitbucket.org/mmdatafocus/capex_backend/workflow"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

const defaultPort = "8080"

// operationTimeout bounds one user-driven pipeline action. Bulk loads can
// legitimately take minutes.
const operationTimeout = 5 * time.Minute

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "X-Site", "X-User-Id", "X-User-Name"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}))
	router.Use(requestContext())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	{
		api.POST("/validate", handleValidate)
		api.POST("/submit", handleSubmit)
		api.POST("/staging/check", handleStagingCheck)
		api.POST("/promote/inflight", handlePromoteInflight)
		api.POST("/promote/archive", handlePromoteArchive)
		api.POST("/reconcile", handleReconcile)
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()
	log.Printf("listening on :%s", port)

	// Connect after the server is listening; Cloud Run wants the port open
	// quickly.
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
}

// requestContext copies the caller's identity headers into the request
// context; every core call reads the site and actor from there, never from
// package state.
func requestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		if site := c.GetHeader("X-Site"); site != "" {
			ctx = utils.SetSiteInContext(ctx, site)
		}
		if v := c.GetHeader("X-User-Id"); v != "" {
			if userId, err := strconv.Atoi(v); err == nil {
				ctx = utils.SetUserIdInContext(ctx, userId)
			}
		}
		if name := c.GetHeader("X-User-Name"); name != "" {
			ctx = utils.SetUserNameInContext(ctx, name)
		}
		ctx = utils.SetCorrelationIdInContext(ctx, uuid.NewString())

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func operationContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), operationTimeout)
}

// extractUpload opens the uploaded workbook and extracts the typed batch.
// The caller owns the returned workbook and must Close it.
func extractUpload(c *gin.Context) ([]*sheet.ProjectRecord, *excelize.File, string, bool) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "an .xlsx upload named 'file' is required"})
		return nil, nil, "", false
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "the uploaded file could not be read"})
		return nil, nil, "", false
	}
	defer f.Close()

	grid, wb, err := sheet.LoadGrid(f, sheet.DefaultSheetName)
	if err != nil {
		config.LogError(config.GetLogger(), "server.go", "extractUpload", "Opening workbook", fileHeader.Filename, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "the workbook could not be opened; make sure it is a valid .xlsx file"})
		return nil, nil, "", false
	}

	return sheet.ExtractProjects(grid), wb, fileHeader.Filename, true
}

// handleValidate runs validation and returns the findings as JSON. With
// annotate=true and a dirty batch, the workbook comes back instead, with a
// report sheet added and each offending row highlighted.
func handleValidate(c *gin.Context) {
	records, wb, _, ok := extractUpload(c)
	if !ok {
		return
	}
	defer wb.Close()

	report := validation.ValidateBatch(records)

	if c.PostForm("annotate") == "true" && !report.Clean() {
		rows := make([]sheet.ReportRow, 0, len(report.Errors))
		for _, e := range report.Errors {
			rows = append(rows, sheet.ReportRow{
				RowNumber: e.RowNumber,
				Category:  string(e.Type),
				Message:   e.Message,
			})
		}
		if err := sheet.NewReportWriter(wb, sheet.DefaultSheetName).Write(rows); err != nil {
			config.LogError(config.GetLogger(), "server.go", "handleValidate", "Annotating workbook", len(rows), err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "the validation report could not be written back"})
			return
		}
		c.Header("Content-Disposition", `attachment; filename="validation_report.xlsx"`)
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		if err := wb.Write(c.Writer); err != nil {
			config.LogError(config.GetLogger(), "server.go", "handleValidate", "Writing workbook", nil, err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"clean":   report.Clean(),
		"records": len(records),
		"errors":  report.Errors,
		"report":  report.Render(),
	})
}

func handleSubmit(c *gin.Context) {
	ctx, cancel := operationContext(c)
	defer cancel()

	records, wb, artifact, ok := extractUpload(c)
	if !ok {
		return
	}
	defer wb.Close()

	summary, report, err := workflow.SubmitBatch(ctx, records, artifact)
	if errors.Is(err, workflow.ErrValidationBlocked) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":  err.Error(),
			"errors": report.Errors,
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, summary)
}

func handleStagingCheck(c *gin.Context) {
	ctx, cancel := operationContext(c)
	defer cancel()

	site, _ := utils.GetSiteFromContext(ctx)
	result, err := models.ValidateStagingData(ctx, site)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "the staged data could not be checked"})
		return
	}
	c.JSON(http.StatusOK, result)
}

func handlePromoteInflight(c *gin.Context) {
	ctx, cancel := operationContext(c)
	defer cancel()

	result, err := workflow.CommitToInflight(ctx, c.PostForm("artifact"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func handlePromoteArchive(c *gin.Context) {
	ctx, cancel := operationContext(c)
	defer cancel()

	result, err := workflow.ArchiveApprovedRecords(ctx, c.PostForm("artifact"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// handleReconcile runs archive reconciliation over an uploaded workbook.
// Without confirm=true it only reports the match count; with it, matched
// rows are removed and the cleaned workbook is returned.
func handleReconcile(c *gin.Context) {
	ctx, cancel := operationContext(c)
	defer cancel()

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "an .xlsx upload named 'file' is required"})
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "the uploaded file could not be read"})
		return
	}
	defer f.Close()

	_, wb, err := sheet.LoadGrid(f, sheet.DefaultSheetName)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "the workbook could not be opened; make sure it is a valid .xlsx file"})
		return
	}
	defer wb.Close()

	confirmed := c.PostForm("confirm") == "true"
	surface := sheet.NewWorkbookSurface(wb, sheet.DefaultSheetName)

	result, err := workflow.ReconcileArchived(ctx, surface, func(matches int) bool {
		return confirmed
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if result.Outcome != workflow.OutcomeCompleted {
		c.JSON(http.StatusOK, result)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="reconciled.xlsx"`)
	c.Header("X-Reconcile-Deleted", strconv.Itoa(result.Deleted))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := wb.Write(c.Writer); err != nil {
		config.LogError(config.GetLogger(), "server.go", "handleReconcile", "Writing workbook", fileHeader.Filename, err)
	}
}
