// Package api exposes the query engine over HTTP.
package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"ucode/ucode_go_query_engine_service/engine"
	"ucode/ucode_go_query_engine_service/export"
	"ucode/ucode_go_query_engine_service/models"
	"ucode/ucode_go_query_engine_service/pkg/logger"
)

type Handler struct {
	log      logger.LoggerI
	service  *engine.QueryService
	analyzer *engine.QueryAnalyzer
	exporter *export.Exporter
}

// SetUpRouter builds the HTTP router over the query service.
func SetUpRouter(log logger.LoggerI, service *engine.QueryService, analyzer *engine.QueryAnalyzer, exporter *export.Exporter) *gin.Engine {
	h := &Handler{
		log:      log,
		service:  service,
		analyzer: analyzer,
		exporter: exporter,
	}

	router := gin.New()
	router.Use(gin.Recovery())

	v1 := router.Group("/v1")
	{
		objects := v1.Group("/objects/:object")
		{
			objects.POST("/query", h.Query)
			objects.POST("/explain", h.Explain)
			objects.POST("/profile", h.Profile)
			objects.POST("/export", h.Export)
		}
		v1.GET("/stats", h.Stats)
	}

	return router
}

func (h *Handler) Query(c *gin.Context) {
	var query models.UnifiedQuery
	if err := c.ShouldBindJSON(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	opts := models.ExecuteOptions{WithCount: c.Query("with_count") == "true"}
	result, err := h.service.Run(c.Request.Context(), c.Param("object"), query, opts)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) Explain(c *gin.Context) {
	var query models.UnifiedQuery
	if err := c.ShouldBindJSON(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	plan, err := h.analyzer.Explain(c.Param("object"), query)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

func (h *Handler) Profile(c *gin.Context) {
	var query models.UnifiedQuery
	if err := c.ShouldBindJSON(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	profile, err := h.service.Profile(c.Request.Context(), c.Param("object"), query, models.ExecuteOptions{})
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *Handler) Export(c *gin.Context) {
	var query models.UnifiedQuery
	if err := c.ShouldBindJSON(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	format := c.DefaultQuery("format", export.FormatCSV)
	link, err := h.exporter.Export(c.Request.Context(), c.Param("object"), format, query)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"link": link})
}

func (h *Handler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Stats())
}

func (h *Handler) abortWithError(c *gin.Context, err error) {
	h.log.Error("---HTTP--->>>", logger.String("path", c.FullPath()), logger.Error(err))
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	var (
		unsupportedOp *engine.UnsupportedOperatorError
		invalidFilter *engine.InvalidFilterError
		schemaMissing *engine.SchemaNotFoundError
		driverMissing *engine.DriverUnsupportedOperationError
	)
	switch {
	case errors.As(err, &unsupportedOp), errors.As(err, &invalidFilter):
		return http.StatusBadRequest
	case errors.As(err, &schemaMissing):
		return http.StatusNotFound
	case errors.As(err, &driverMissing):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}
