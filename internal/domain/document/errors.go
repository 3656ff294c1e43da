package document

import "github.com/amadolemli/factureman-sub000/internal/domain/shared"

var (
	ErrMissingCustomerName = shared.NewDomainError("MISSING_CUSTOMER_NAME",
		"A customer name is required to record an unpaid balance")
	ErrDocumentNotFound    = shared.NewDomainError("NOT_FOUND", "Document not found")
	ErrAlreadyFinalized    = shared.NewDomainError("DOCUMENT_ALREADY_FINALIZED", "Document is already finalized")
	ErrNotEditable         = shared.NewDomainError("INVALID_STATE", "Only active drafts can be edited")
	ErrDocumentDeleted     = shared.NewDomainError("INVALID_STATE", "Document is deleted")
	ErrEmptyDocument       = shared.NewDomainError("INVALID_INPUT", "Document has no line items")
	ErrInvalidDocumentType = shared.NewDomainError("INVALID_INPUT", "Invalid document type")
	ErrInvalidLineItem     = shared.NewDomainError("INVALID_INPUT", "Line items need a description, a positive quantity and a non-negative price")
	ErrInvalidAmountPaid   = shared.NewDomainError("INVALID_AMOUNT", "Amount paid cannot be negative")
	ErrReceiptWithoutMoney = shared.NewDomainError("INVALID_AMOUNT", "A receipt must carry a positive amount paid")
	ErrCompanionReceipt    = shared.NewDomainError("INVALID_STATE",
		"Companion receipts follow their invoice; delete or restore the invoice instead")
)
