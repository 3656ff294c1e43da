package ledger

import "github.com/amadolemli/factureman-sub000/internal/domain/shared"

var (
	ErrPostingNotFound      = shared.NewDomainError("NOT_FOUND", "Posting not found")
	ErrLedgerNotFound       = shared.NewDomainError("NOT_FOUND", "Customer ledger not found")
	ErrPostingNotCancelable = shared.NewDomainError("INVALID_STATE", "Reversal and audit postings cannot be cancelled")
	ErrCustomerNameTaken    = shared.NewDomainError("ALREADY_EXISTS", "Another ledger already uses this customer name")
	ErrEmptyCustomerName    = shared.NewDomainError("INVALID_INPUT", "Customer name cannot be empty")
	ErrInconsistentLedger   = shared.NewDomainError("LEDGER_INCONSISTENT", "Ledger totals do not match its history")
)
