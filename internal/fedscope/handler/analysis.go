// Package handler provides the HTTP handlers for the analysis service.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fedscope/fedscope/internal/fedscope/biz"
	"github.com/fedscope/fedscope/internal/fedscope/metrics"
)

// queryTimeout bounds one retrieval-plus-generation round trip.
const queryTimeout = 120 * time.Second

// AnalysisHandler handles analysis HTTP requests.
type AnalysisHandler struct {
	analyst *biz.Analyst
}

// NewAnalysisHandler creates a new AnalysisHandler.
func NewAnalysisHandler(analyst *biz.Analyst) *AnalysisHandler {
	return &AnalysisHandler{analyst: analyst}
}

// SuccessResponse is a standard success response.
type SuccessResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// QueryRequest represents an analysis query request.
type QueryRequest struct {
	Question string `json:"question" binding:"required"`
}

// QueryResponse carries the analysis result. On pipeline failure the three
// analysis fields hold the error message and Error is set, so a client
// rendering the fields always has something to show.
type QueryResponse struct {
	Sentiment    string `json:"sentiment"`
	Answer       string `json:"answer"`
	Evidence     string `json:"evidence"`
	ParseOutcome string `json:"parse_outcome,omitempty"`
	Retrieved    int    `json:"retrieved,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Query runs the analysis pipeline for a question. Pipeline errors are
// reported in the response body, never as a transport failure.
func (h *AnalysisHandler) Query(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), queryTimeout)
	defer cancel()

	result, err := h.analyst.Analyze(ctx, req.Question)
	if err != nil {
		msg := "An error occurred during analysis: " + err.Error()
		c.JSON(http.StatusOK, QueryResponse{
			Sentiment: msg,
			Answer:    msg,
			Evidence:  msg,
			Error:     err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, QueryResponse{
		Sentiment:    result.Analysis.Sentiment,
		Answer:       result.Analysis.Answer,
		Evidence:     result.Analysis.Evidence,
		ParseOutcome: result.ParseOutcome.String(),
		Retrieved:    result.Retrieved,
	})
}

// Collections lists the ingested collections with their sizes.
func (h *AnalysisHandler) Collections(c *gin.Context) {
	infos, err := h.analyst.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 500, Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "success", Data: infos})
}

// Stats returns pipeline counters.
func (h *AnalysisHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "success", Data: metrics.Get().Stats()})
}

// Healthz is the liveness probe.
func (h *AnalysisHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
