package sequence

import (
	"context"
	"fmt"
	"sync/atomic"
)

// MockGenerator is a test implementation of Generator.
// Use in unit tests to avoid database dependencies.
type MockGenerator struct {
	GenerateIDFunc         func(ctx context.Context, module ModuleCode, hints *Hints) (string, error)
	PreviewNextIDFunc      func(ctx context.Context, module ModuleCode, hints *Hints) (string, error)
	InitializeCountersFunc func(ctx context.Context, modules []ModuleCode) error

	counter atomic.Int64
}

// GenerateID implements Generator.
func (m *MockGenerator) GenerateID(ctx context.Context, module ModuleCode, hints *Hints) (string, error) {
	if m.GenerateIDFunc != nil {
		return m.GenerateIDFunc(ctx, module, hints)
	}
	// Default: predictable incrementing IDs, shared across modules.
	return fmt.Sprintf("SRPL-%s-%06d", module, m.counter.Add(1)), nil
}

// PreviewNextID implements Generator.
func (m *MockGenerator) PreviewNextID(ctx context.Context, module ModuleCode, hints *Hints) (string, error) {
	if m.PreviewNextIDFunc != nil {
		return m.PreviewNextIDFunc(ctx, module, hints)
	}
	return fmt.Sprintf("SRPL-%s-%06d", module, m.counter.Load()+1), nil
}

// InitializeCounters implements Generator.
func (m *MockGenerator) InitializeCounters(ctx context.Context, modules []ModuleCode) error {
	if m.InitializeCountersFunc != nil {
		return m.InitializeCountersFunc(ctx, modules)
	}
	return nil
}

// Ensure compile-time interface compliance.
var _ Generator = (*MockGenerator)(nil)
