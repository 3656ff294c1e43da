package document

// DocumentType identifies the business document kind
type DocumentType string

const (
	DocumentTypeInvoice       DocumentType = "INVOICE"
	DocumentTypeReceipt       DocumentType = "RECEIPT"
	DocumentTypeDeliveryNote  DocumentType = "DELIVERY_NOTE"
	DocumentTypePurchaseOrder DocumentType = "PURCHASE_ORDER"
	DocumentTypeQuote         DocumentType = "QUOTE"
	DocumentTypeProforma      DocumentType = "PROFORMA"
)

// AllDocumentTypes lists every document type
var AllDocumentTypes = []DocumentType{
	DocumentTypeInvoice,
	DocumentTypeReceipt,
	DocumentTypeDeliveryNote,
	DocumentTypePurchaseOrder,
	DocumentTypeQuote,
	DocumentTypeProforma,
}

// String returns the string representation of DocumentType
func (t DocumentType) String() string {
	return string(t)
}

// IsValid returns true if the document type is valid
func (t DocumentType) IsValid() bool {
	switch t {
	case DocumentTypeInvoice, DocumentTypeReceipt, DocumentTypeDeliveryNote,
		DocumentTypePurchaseOrder, DocumentTypeQuote, DocumentTypeProforma:
		return true
	}
	return false
}

// NumberPrefix returns the prefix used when numbering documents of this type
func (t DocumentType) NumberPrefix() string {
	switch t {
	case DocumentTypeInvoice:
		return "FAC"
	case DocumentTypeReceipt:
		return "REC"
	case DocumentTypeDeliveryNote:
		return "BL"
	case DocumentTypePurchaseOrder:
		return "BC"
	case DocumentTypeQuote:
		return "DEV"
	case DocumentTypeProforma:
		return "PRO"
	}
	return "DOC"
}

// AffectsStock reports whether finalizing this type moves product stock
func (t DocumentType) AffectsStock() bool {
	switch t {
	case DocumentTypeReceipt, DocumentTypeProforma, DocumentTypeQuote:
		return false
	}
	return true
}

// PostsToLedger reports whether finalizing this type posts to the customer ledger
func (t DocumentType) PostsToLedger() bool {
	return t == DocumentTypeInvoice || t == DocumentTypeReceipt
}

// Lifecycle is the finalization state of a document
type Lifecycle string

const (
	LifecycleDraft     Lifecycle = "DRAFT"
	LifecycleFinalized Lifecycle = "FINALIZED"
)

// String returns the string representation of Lifecycle
func (l Lifecycle) String() string {
	return string(l)
}

// DeletionState is the soft-delete state of a document
type DeletionState string

const (
	DeletionStateActive  DeletionState = "ACTIVE"
	DeletionStateDeleted DeletionState = "DELETED"
)

// String returns the string representation of DeletionState
func (s DeletionState) String() string {
	return string(s)
}
