package server

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/spigell/talent-scout/internal/ai"
	"github.com/spigell/talent-scout/internal/ai/admission"
	"github.com/spigell/talent-scout/internal/scout"
)

type scanRequest struct {
	// Target is a path or URL loaded by the server.
	Target string `json:"target"`
	// HTML is markup captured by the caller. It wins over Target.
	HTML           string `json:"html"`
	URL            string `json:"url"`
	DebugIndicator bool   `json:"debugIndicator"`
}

type anchorsRequest struct {
	Anchors []int `json:"anchors" binding:"required"`
}

type profileRequest struct {
	// Map defaults to the latest scan.
	Map string `json:"map"`
	URL string `json:"url"`
}

type candidateRequest struct {
	Candidate *ai.Candidate `json:"candidate" binding:"required"`
	Job       string        `json:"job"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"ai":     s.session.AIConfigured(),
	})
}

func (s *Server) scan(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	var (
		res *scout.ScanResult
		err error
	)
	switch {
	case strings.TrimSpace(req.HTML) != "":
		res, err = s.session.ScanHTML(req.HTML, req.URL, req.DebugIndicator)
	case strings.TrimSpace(req.Target) != "":
		res, err = s.session.ScanTarget(c.Request.Context(), req.Target, req.DebugIndicator)
	default:
		err = errors.New("either html or target is required")
	}
	if err != nil {
		badRequest(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (s *Server) anchors(c *gin.Context) {
	var req anchorsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"elements": s.session.Inspect(req.Anchors)})
}

func (s *Server) zones(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"zones": s.session.Zones(c.Query("url"))})
}

func (s *Server) profile(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	candidate, err := s.session.ExtractProfile(c.Request.Context(), req.Map, req.URL)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, candidate)
}

func (s *Server) fit(c *gin.Context) {
	var req candidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := s.session.ScoreFit(c.Request.Context(), req.Candidate, req.Job)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) outreach(c *gin.Context) {
	var req candidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	message, err := s.session.WriteOutreach(c.Request.Context(), req.Candidate, req.Job)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": message})
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: err.Error(), Kind: "bad_request"})
}

// fail writes a model-call error with its user message.
func (s *Server) fail(c *gin.Context, err error) {
	status, kind := classify(err)

	var rejected *admission.RejectedError
	if errors.As(err, &rejected) && rejected.Wait > 0 {
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(rejected.Wait.Seconds()))))
	}

	c.AbortWithStatusJSON(status, errorResponse{Error: ai.UserMessage(err), Kind: kind})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, admission.ErrTooManyRequests):
		return http.StatusTooManyRequests, "too_many_requests"
	case errors.Is(err, ai.ErrQuotaExhausted):
		return http.StatusTooManyRequests, ai.KindQuotaExhausted.String()
	case errors.Is(err, ai.ErrMalformedResponse):
		return http.StatusBadGateway, ai.KindMalformed.String()
	case errors.Is(err, ai.ErrOutreachTooShort):
		return http.StatusBadGateway, "outreach_too_short"
	case errors.Is(err, ai.ErrRetriesExhausted):
		return http.StatusServiceUnavailable, "retries_exhausted"
	case errors.Is(err, ai.ErrNotConfigured):
		return http.StatusServiceUnavailable, "not_configured"
	case errors.Is(err, ai.ErrNoContent), errors.Is(err, ai.ErrMissingJob):
		return http.StatusUnprocessableEntity, "invalid_input"
	default:
		return http.StatusInternalServerError, ai.KindOther.String()
	}
}
