package document

import "context"

// ItemExtractor turns a photographed document into line items.
// Implementations wrap an external OCR or vision service.
type ItemExtractor interface {
	Extract(ctx context.Context, image []byte) ([]LineItem, error)
}
