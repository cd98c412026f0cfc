// Package sequence provides domain contracts for SRPL identifier generation.
// Implementations live in the infrastructure layer.
package sequence

import "fmt"

// ModuleCode identifies a business-entity family.
// The set is closed and versioned with the codebase - it is never user input.
type ModuleCode string

const (
	ModuleCustomer        ModuleCode = "CUST"
	ModuleLead            ModuleCode = "LEAD"
	ModuleProduct         ModuleCode = "PROD"
	ModuleVendor          ModuleCode = "VEND"
	ModuleDeal            ModuleCode = "DEAL"
	ModuleQuote           ModuleCode = "QUOT"
	ModuleProformaInvoice ModuleCode = "PI"
	ModuleSalesOrder      ModuleCode = "SO"
	ModuleInvoice         ModuleCode = "INV"
	ModuleCreditNote      ModuleCode = "CN"
	ModuleDebitNote       ModuleCode = "DN"
	ModuleDeliveryChallan ModuleCode = "DC"
	ModuleReceipt         ModuleCode = "RCPT"
	ModuleTask            ModuleCode = "TASK"
	ModuleActivity        ModuleCode = "ACT"
	ModulePayment         ModuleCode = "PAY"
	ModuleProforma        ModuleCode = "PROF"
)

// allModules is the canonical ordering used for bulk initialization.
var allModules = []ModuleCode{
	ModuleCustomer, ModuleLead, ModuleProduct, ModuleVendor,
	ModuleDeal, ModuleQuote, ModuleProformaInvoice, ModuleSalesOrder,
	ModuleInvoice, ModuleCreditNote, ModuleDebitNote, ModuleDeliveryChallan,
	ModuleReceipt, ModuleTask, ModuleActivity, ModulePayment, ModuleProforma,
}

// AllModules returns every known module code.
func AllModules() []ModuleCode {
	out := make([]ModuleCode, len(allModules))
	copy(out, allModules)
	return out
}

// IsValid reports whether the code belongs to the known set.
func (m ModuleCode) IsValid() bool {
	for _, known := range allModules {
		if m == known {
			return true
		}
	}
	return false
}

// String implements fmt.Stringer.
func (m ModuleCode) String() string {
	return string(m)
}

// ParseModuleCode validates a raw string against the known set.
func ParseModuleCode(raw string) (ModuleCode, error) {
	m := ModuleCode(raw)
	if !m.IsValid() {
		return "", fmt.Errorf("unknown module code %q", raw)
	}
	return m, nil
}
