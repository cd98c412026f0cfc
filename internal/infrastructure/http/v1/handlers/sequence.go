// Package handlers provides HTTP request handlers.
package handlers

import (
	"io"

	"github.com/gin-gonic/gin"

	"srplerp/internal/core/apperror"
	"srplerp/internal/core/sequence"
	"srplerp/internal/infrastructure/http/v1/dto"
)

// SequenceHandler exposes identifier issuance over HTTP.
type SequenceHandler struct {
	*BaseHandler
	generator sequence.Generator
}

// NewSequenceHandler creates a new sequence handler.
func NewSequenceHandler(generator sequence.Generator) *SequenceHandler {
	return &SequenceHandler{
		BaseHandler: NewBaseHandler(),
		generator:   generator,
	}
}

// parseModule validates the :module path parameter against the closed set.
func (h *SequenceHandler) parseModule(c *gin.Context) (sequence.ModuleCode, bool) {
	module, err := sequence.ParseModuleCode(c.Param("module"))
	if err != nil {
		h.Error(c, apperror.NewConfiguration("unknown module code").
			WithDetail("module", c.Param("module")))
		return "", false
	}
	return module, true
}

func hintsFromRequest(req dto.GenerateRequest) *sequence.Hints {
	if req.Year == nil && req.FinancialYear == nil {
		return nil
	}
	return &sequence.Hints{Year: req.Year, FinancialYear: req.FinancialYear}
}

// Generate issues the next identifier for a module.
// POST /api/v1/sequences/:module/generate
func (h *SequenceHandler) Generate(c *gin.Context) {
	module, ok := h.parseModule(c)
	if !ok {
		return
	}

	var req dto.GenerateRequest
	if c.Request.Body != nil && c.Request.ContentLength != 0 {
		if !h.BindJSON(c, &req) {
			return
		}
	}

	id, err := h.generator.GenerateID(c.Request.Context(), module, hintsFromRequest(req))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.GenerateResponse{ID: id, Module: module.String()})
}

// Preview returns the advisory next identifier without consuming a number.
// GET /api/v1/sequences/:module/next
func (h *SequenceHandler) Preview(c *gin.Context) {
	module, ok := h.parseModule(c)
	if !ok {
		return
	}

	next, err := h.generator.PreviewNextID(c.Request.Context(), module, nil)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.PreviewResponse{NextID: next, Module: module.String()})
}

// Initialize seeds default configs and base counters.
// POST /api/v1/sequences/initialize
func (h *SequenceHandler) Initialize(c *gin.Context) {
	var req dto.InitializeRequest
	if c.Request.Body != nil && c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
			h.Error(c, apperror.NewValidation("invalid request body").WithDetail("error", err.Error()))
			return
		}
	}

	modules := sequence.AllModules()
	if len(req.Modules) > 0 {
		modules = modules[:0]
		for _, raw := range req.Modules {
			module, err := sequence.ParseModuleCode(raw)
			if err != nil {
				h.Error(c, apperror.NewConfiguration("unknown module code").WithDetail("module", raw))
				return
			}
			modules = append(modules, module)
		}
	}

	if err := h.generator.InitializeCounters(c.Request.Context(), modules); err != nil {
		h.Error(c, err)
		return
	}

	initialized := make([]string, len(modules))
	for i, module := range modules {
		initialized[i] = module.String()
	}
	h.OK(c, dto.InitializeResponse{Initialized: initialized})
}
