package mongodb

import (
	"fmt"
	"time"

	"github.com/amadolemli/factureman-sub000/internal/domain/catalog"
	"github.com/amadolemli/factureman-sub000/internal/domain/document"
	"github.com/amadolemli/factureman-sub000/internal/domain/ledger"
	"github.com/amadolemli/factureman-sub000/internal/domain/profile"
	"github.com/amadolemli/factureman-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Identifiers are stored as strings and amounts as decimal strings so that
// documents stay readable from the mongo shell.

// AggregateFields is inlined into every stored aggregate. It is exported so
// the bson codec inlines it.
type AggregateFields struct {
	ID        string    `bson:"_id"`
	OwnerID   string    `bson:"ownerId"`
	Version   int       `bson:"version"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

func fromAggregate(a shared.OwnedAggregateRoot) AggregateFields {
	return AggregateFields{
		ID:        a.ID.String(),
		OwnerID:   a.OwnerID.String(),
		Version:   a.Version,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func (f AggregateFields) toAggregate() (shared.OwnedAggregateRoot, error) {
	id, err := uuid.Parse(f.ID)
	if err != nil {
		return shared.OwnedAggregateRoot{}, fmt.Errorf("parse id: %w", err)
	}
	ownerID, err := uuid.Parse(f.OwnerID)
	if err != nil {
		return shared.OwnedAggregateRoot{}, fmt.Errorf("parse owner id: %w", err)
	}
	return shared.RestoreOwnedAggregateRoot(id, ownerID, f.CreatedAt, f.UpdatedAt, f.Version), nil
}

type productDoc struct {
	AggregateFields `bson:",inline"`
	Name            string `bson:"name"`
	NameKey         string `bson:"nameKey"`
	UnitPrice       string `bson:"unitPrice"`
	Stock           int    `bson:"stock"`
}

func newProductDoc(p *catalog.Product) productDoc {
	return productDoc{
		AggregateFields: fromAggregate(p.OwnedAggregateRoot),
		Name:            p.Name,
		NameKey:         p.NameKey,
		UnitPrice:       p.UnitPrice.String(),
		Stock:           p.Stock,
	}
}

func (d productDoc) toDomain() (*catalog.Product, error) {
	root, err := d.toAggregate()
	if err != nil {
		return nil, err
	}
	price, err := decimal.NewFromString(d.UnitPrice)
	if err != nil {
		return nil, fmt.Errorf("product %s unit price: %w", d.ID, err)
	}
	return &catalog.Product{
		OwnedAggregateRoot: root,
		Name:               d.Name,
		NameKey:            d.NameKey,
		UnitPrice:          price,
		Stock:              d.Stock,
	}, nil
}

type lineItemDoc struct {
	Description string `bson:"description"`
	Quantity    int    `bson:"quantity"`
	UnitPrice   string `bson:"unitPrice"`
}

type documentDoc struct {
	AggregateFields       `bson:",inline"`
	Type                  string        `bson:"type"`
	Number                string        `bson:"number"`
	Date                  time.Time     `bson:"date"`
	CustomerName          string        `bson:"customerName"`
	CustomerID            *string       `bson:"customerId,omitempty"`
	Items                 []lineItemDoc `bson:"items"`
	AmountPaid            string        `bson:"amountPaid"`
	Notes                 string        `bson:"notes,omitempty"`
	Lifecycle             string        `bson:"lifecycle"`
	FinalizedAt           *time.Time    `bson:"finalizedAt,omitempty"`
	ClientBalanceSnapshot *string       `bson:"clientBalanceSnapshot,omitempty"`
	Deletion              string        `bson:"deletion"`
	DeletedAt             *time.Time    `bson:"deletedAt,omitempty"`
	ParentID              *string       `bson:"parentId,omitempty"`
	CompanionID           *string       `bson:"companionId,omitempty"`
}

func newDocumentDoc(d *document.Document) documentDoc {
	doc := documentDoc{
		AggregateFields: fromAggregate(d.OwnedAggregateRoot),
		Type:            d.Type.String(),
		Number:          d.Number,
		Date:            d.Date,
		CustomerName:    d.CustomerName,
		CustomerID:      idString(d.CustomerID),
		Items:           make([]lineItemDoc, 0, len(d.Items)),
		AmountPaid:      d.AmountPaid.String(),
		Notes:           d.Notes,
		Lifecycle:       d.Lifecycle.String(),
		FinalizedAt:     d.FinalizedAt,
		Deletion:        d.Deletion.String(),
		DeletedAt:       d.DeletedAt,
		ParentID:        idString(d.ParentID),
		CompanionID:     idString(d.CompanionID),
	}
	for _, item := range d.Items {
		doc.Items = append(doc.Items, lineItemDoc{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice.String(),
		})
	}
	if d.ClientBalanceSnapshot != nil {
		s := d.ClientBalanceSnapshot.String()
		doc.ClientBalanceSnapshot = &s
	}
	return doc
}

func (d documentDoc) toDomain() (*document.Document, error) {
	root, err := d.toAggregate()
	if err != nil {
		return nil, err
	}
	out := &document.Document{
		OwnedAggregateRoot: root,
		Type:               document.DocumentType(d.Type),
		Number:             d.Number,
		Date:               d.Date,
		CustomerName:       d.CustomerName,
		Items:              make([]document.LineItem, 0, len(d.Items)),
		Notes:              d.Notes,
		Lifecycle:          document.Lifecycle(d.Lifecycle),
		FinalizedAt:        d.FinalizedAt,
		Deletion:           document.DeletionState(d.Deletion),
		DeletedAt:          d.DeletedAt,
	}
	if out.AmountPaid, err = decimal.NewFromString(d.AmountPaid); err != nil {
		return nil, fmt.Errorf("document %s amount paid: %w", d.ID, err)
	}
	for _, item := range d.Items {
		price, err := decimal.NewFromString(item.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("document %s line price: %w", d.ID, err)
		}
		out.Items = append(out.Items, document.LineItem{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   price,
		})
	}
	if d.ClientBalanceSnapshot != nil {
		snapshot, err := decimal.NewFromString(*d.ClientBalanceSnapshot)
		if err != nil {
			return nil, fmt.Errorf("document %s balance snapshot: %w", d.ID, err)
		}
		out.ClientBalanceSnapshot = &snapshot
	}
	if out.CustomerID, err = parseID(d.CustomerID); err != nil {
		return nil, err
	}
	if out.ParentID, err = parseID(d.ParentID); err != nil {
		return nil, err
	}
	if out.CompanionID, err = parseID(d.CompanionID); err != nil {
		return nil, err
	}
	return out, nil
}

type postingDoc struct {
	ID          string    `bson:"id"`
	Type        string    `bson:"type"`
	Kind        string    `bson:"kind"`
	Amount      string    `bson:"amount"`
	Description string    `bson:"description"`
	Date        time.Time `bson:"date"`
	CreatedAt   time.Time `bson:"createdAt"`
	Status      string    `bson:"status"`
	DocumentID  *string   `bson:"documentId,omitempty"`
	ReversalOf  *string   `bson:"reversalOf,omitempty"`
}

type appointmentDoc struct {
	ID        string    `bson:"id"`
	Date      time.Time `bson:"date"`
	Note      string    `bson:"note"`
	PostingID *string   `bson:"postingId,omitempty"`
	Status    string    `bson:"status"`
}

// ledgerDoc embeds the whole history; a ledger is always read and written as one unit
type ledgerDoc struct {
	AggregateFields  `bson:",inline"`
	CustomerKey      string           `bson:"customerKey"`
	CustomerName     string           `bson:"customerName"`
	CustomerPhone    string           `bson:"customerPhone,omitempty"`
	TotalDebt        string           `bson:"totalDebt"`
	RemainingBalance string           `bson:"remainingBalance"`
	History          []postingDoc     `bson:"history"`
	Appointments     []appointmentDoc `bson:"appointments"`
}

func newLedgerDoc(l *ledger.LedgerRecord) ledgerDoc {
	doc := ledgerDoc{
		AggregateFields:  fromAggregate(l.OwnedAggregateRoot),
		CustomerKey:      l.CustomerKey,
		CustomerName:     l.CustomerName,
		CustomerPhone:    l.CustomerPhone,
		TotalDebt:        l.TotalDebt.String(),
		RemainingBalance: l.RemainingBalance.String(),
		History:          make([]postingDoc, 0, len(l.History)),
		Appointments:     make([]appointmentDoc, 0, len(l.Appointments)),
	}
	for _, p := range l.History {
		doc.History = append(doc.History, postingDoc{
			ID:          p.ID.String(),
			Type:        p.Type.String(),
			Kind:        p.Kind.String(),
			Amount:      p.Amount.String(),
			Description: p.Description,
			Date:        p.Date,
			CreatedAt:   p.CreatedAt,
			Status:      p.Status.String(),
			DocumentID:  idString(p.DocumentID),
			ReversalOf:  idString(p.ReversalOf),
		})
	}
	for _, a := range l.Appointments {
		doc.Appointments = append(doc.Appointments, appointmentDoc{
			ID:        a.ID.String(),
			Date:      a.Date,
			Note:      a.Note,
			PostingID: idString(a.PostingID),
			Status:    string(a.Status),
		})
	}
	return doc
}

func (d ledgerDoc) toDomain() (*ledger.LedgerRecord, error) {
	root, err := d.toAggregate()
	if err != nil {
		return nil, err
	}
	out := &ledger.LedgerRecord{
		OwnedAggregateRoot: root,
		CustomerKey:        d.CustomerKey,
		CustomerName:       d.CustomerName,
		CustomerPhone:      d.CustomerPhone,
		History:            make([]ledger.LedgerPosting, 0, len(d.History)),
		Appointments:       make([]ledger.Appointment, 0, len(d.Appointments)),
	}
	if out.TotalDebt, err = decimal.NewFromString(d.TotalDebt); err != nil {
		return nil, fmt.Errorf("ledger %s total debt: %w", d.ID, err)
	}
	if out.RemainingBalance, err = decimal.NewFromString(d.RemainingBalance); err != nil {
		return nil, fmt.Errorf("ledger %s balance: %w", d.ID, err)
	}
	for _, p := range d.History {
		posting := ledger.LedgerPosting{
			Type:        ledger.PostingType(p.Type),
			Kind:        ledger.PostingKind(p.Kind),
			Description: p.Description,
			Date:        p.Date,
			CreatedAt:   p.CreatedAt,
			Status:      ledger.PostingStatus(p.Status),
		}
		if posting.ID, err = uuid.Parse(p.ID); err != nil {
			return nil, fmt.Errorf("ledger %s posting id: %w", d.ID, err)
		}
		if posting.Amount, err = decimal.NewFromString(p.Amount); err != nil {
			return nil, fmt.Errorf("ledger %s posting amount: %w", d.ID, err)
		}
		if posting.DocumentID, err = parseID(p.DocumentID); err != nil {
			return nil, err
		}
		if posting.ReversalOf, err = parseID(p.ReversalOf); err != nil {
			return nil, err
		}
		out.History = append(out.History, posting)
	}
	for _, a := range d.Appointments {
		appt := ledger.Appointment{
			Date:   a.Date,
			Note:   a.Note,
			Status: ledger.AppointmentStatus(a.Status),
		}
		if appt.ID, err = uuid.Parse(a.ID); err != nil {
			return nil, fmt.Errorf("ledger %s appointment id: %w", d.ID, err)
		}
		if appt.PostingID, err = parseID(a.PostingID); err != nil {
			return nil, err
		}
		out.Appointments = append(out.Appointments, appt)
	}
	return out, nil
}

type profileDoc struct {
	AggregateFields `bson:",inline"`
	BusinessName    string `bson:"businessName"`
	Phone           string `bson:"phone,omitempty"`
	Address         string `bson:"address,omitempty"`
	TaxID           string `bson:"taxId,omitempty"`
	Currency        string `bson:"currency"`
	Footer          string `bson:"footer,omitempty"`
}

func newProfileDoc(p *profile.BusinessProfile) profileDoc {
	return profileDoc{
		AggregateFields: fromAggregate(p.OwnedAggregateRoot),
		BusinessName:    p.BusinessName,
		Phone:           p.Phone,
		Address:         p.Address,
		TaxID:           p.TaxID,
		Currency:        p.Currency,
		Footer:          p.Footer,
	}
}

func (d profileDoc) toDomain() (*profile.BusinessProfile, error) {
	root, err := d.toAggregate()
	if err != nil {
		return nil, err
	}
	return &profile.BusinessProfile{
		OwnedAggregateRoot: root,
		BusinessName:       d.BusinessName,
		Phone:              d.Phone,
		Address:            d.Address,
		TaxID:              d.TaxID,
		Currency:           d.Currency,
		Footer:             d.Footer,
	}, nil
}

func idString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func parseID(s *string) (*uuid.UUID, error) {
	if s == nil {
		return nil, nil
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return nil, fmt.Errorf("parse id %q: %w", *s, err)
	}
	return &id, nil
}
