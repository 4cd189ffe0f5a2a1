package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/piwi3910/cutplan/internal/api"
	"github.com/piwi3910/cutplan/internal/cache"
	"github.com/piwi3910/cutplan/internal/engine"
	"github.com/piwi3910/cutplan/internal/errors"
	"github.com/piwi3910/cutplan/internal/export"
	"github.com/piwi3910/cutplan/internal/importer"
	"github.com/piwi3910/cutplan/internal/logging"
	"github.com/piwi3910/cutplan/internal/model"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": s.version})
}

// handleCut implements POST /furniture/cut.
func (s *Server) handleCut(c *gin.Context) {
	job, ok := s.bindJob(c)
	if !ok {
		return
	}
	plan, err := s.plan(c, job)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, job.Response(plan))
}

// handleExport packs like handleCut and returns the plan as a file.
func (s *Server) handleExport(c *gin.Context) {
	format, err := export.Lookup(c.Param("format"))
	if err != nil {
		s.fail(c, err)
		return
	}
	job, ok := s.bindJob(c)
	if !ok {
		return
	}
	plan, err := s.plan(c, job)
	if err != nil {
		s.fail(c, err)
		return
	}

	var buf bytes.Buffer
	if err := format.Write(&buf, plan); err != nil {
		s.fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", format.Filename(plan)))
	c.Data(http.StatusOK, format.ContentType, buf.Bytes())
}

// handleCompare runs the default strategy set against the request.
func (s *Server) handleCompare(c *gin.Context) {
	job, ok := s.bindJob(c)
	if !ok {
		return
	}
	results, err := engine.CompareStrategies(c.Request.Context(), job.Sheet, job.Parts,
		engine.BuildDefaultScenarios(job.Options))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, api.FromComparison(results))
}

// handleImport turns an uploaded CSV, XLSX or DXF part list into request
// elements.
func (s *Server) handleImport(c *gin.Context) {
	s.limitBody(c)
	fh, err := c.FormFile("file")
	if err != nil {
		s.fail(c, errors.Wrap(errors.ErrCodeInvalidInput, err, "Invalid upload: a multipart field named file is required"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		s.fail(c, errors.Wrap(errors.ErrCodeInvalidInput, err, "Invalid upload"))
		return
	}
	defer f.Close()

	res := importer.ImportReader(fh.Filename, f)
	resp := api.ImportResponse{
		Elements: api.ElementsFromParts(res.Parts),
		Warnings: res.Warnings,
		Errors:   res.Errors,
	}
	status := http.StatusOK
	if len(res.Parts) == 0 && len(res.Errors) > 0 {
		status = http.StatusBadRequest
	}
	c.JSON(status, resp)
}

// bindJob decodes and validates the request body, writing the error response
// itself when it fails.
func (s *Server) bindJob(c *gin.Context) (api.Job, bool) {
	s.limitBody(c)

	var req api.CutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, api.ErrorResponse{
				Message: fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit),
				Code:    string(errors.ErrCodeInvalidInput),
			})
			return api.Job{}, false
		}
		s.fail(c, errors.New(errors.ErrCodeInvalidDimensions, "Invalid request body: %v", err))
		return api.Job{}, false
	}

	job, err := req.ToDomain(s.cfg.Packing)
	if err != nil {
		s.fail(c, err)
		return api.Job{}, false
	}
	return job, true
}

func (s *Server) limitBody(c *gin.Context) {
	if s.cfg.Server.MaxBodyBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.Server.MaxBodyBytes)
	}
}

// plan returns the cached plan for job or packs it. Cache failures are
// logged and otherwise ignored.
func (s *Server) plan(c *gin.Context, job api.Job) (model.CutPlan, error) {
	ctx := c.Request.Context()
	logger := logging.FromContext(ctx)
	key := cache.PlanKey(job.Sheet, job.Parts, job.Options)

	if plan, ok := s.cached(ctx, key, job); ok {
		c.Header(headerCache, "hit")
		return plan, nil
	}
	c.Header(headerCache, "miss")

	plan, err := engine.Pack(ctx, job.Sheet, job.Parts, job.Options)
	if err != nil {
		return model.CutPlan{}, err
	}

	data, err := json.Marshal(plan)
	if err != nil {
		logger.Warn("Cannot encode plan for cache", "err", err)
		return plan, nil
	}
	if err := s.cache.Set(ctx, key, data, s.cfg.Cache.TTL); err != nil {
		logger.Warn("Cache write failed", "err", err)
	}
	return plan, nil
}

func (s *Server) cached(ctx context.Context, key string, job api.Job) (model.CutPlan, bool) {
	logger := logging.FromContext(ctx)

	data, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		logger.Warn("Cache read failed", "err", err)
		return model.CutPlan{}, false
	}
	if !ok {
		return model.CutPlan{}, false
	}

	var plan model.CutPlan
	if err := json.Unmarshal(data, &plan); err != nil {
		logger.Warn("Discarding undecodable cached plan", "err", err)
		_ = s.cache.Delete(ctx, key)
		return model.CutPlan{}, false
	}
	if s.cfg.Server.Verify {
		if err := engine.Verify(plan, job.Parts, job.Options.AllowRotation); err != nil {
			logger.Warn("Discarding invalid cached plan", "err", err)
			_ = s.cache.Delete(ctx, key)
			return model.CutPlan{}, false
		}
	}
	logger.Debug("Cache hit", "plan", plan.ID)
	return plan, true
}

// fail writes the error response for err.
func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logging.FromContext(c.Request.Context()).Error("Request failed", "err", err)
	}
	c.AbortWithStatusJSON(status, api.ErrorFrom(err))
}

// statusFor maps an error code to its HTTP status.
func statusFor(err error) int {
	switch errors.GetCode(err) {
	case errors.ErrCodeInvalidDimensions, errors.ErrCodeInvalidInput, errors.ErrCodeUnsupported:
		return http.StatusBadRequest
	case errors.ErrCodeCanceled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
