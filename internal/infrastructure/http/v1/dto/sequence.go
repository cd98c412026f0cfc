// Package dto provides Data Transfer Objects for API requests/responses.
package dto

// GenerateRequest carries optional epoch hints for issuance.
// Both fields may be omitted; the module's configuration and the current date
// then decide the epoch.
type GenerateRequest struct {
	Year          *int    `json:"year" binding:"omitempty,min=1900,max=9999"`
	FinancialYear *string `json:"financialYear" binding:"omitempty,len=4"`
}

// GenerateResponse returns the issued identifier.
type GenerateResponse struct {
	ID     string `json:"id"`
	Module string `json:"module"`
}

// PreviewResponse returns the advisory next identifier.
// NextID is not reserved: a concurrent issuance can claim it first.
type PreviewResponse struct {
	NextID string `json:"nextId"`
	Module string `json:"module"`
}

// InitializeRequest lists module codes to initialize.
// An empty list means every known module.
type InitializeRequest struct {
	Modules []string `json:"modules"`
}

// InitializeResponse reports the initialized modules.
type InitializeResponse struct {
	Initialized []string `json:"initialized"`
}

// SuccessResponse is a generic success envelope.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
