package mongodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/amadolemli/factureman-sub000/internal/application/reconciliation"
	"github.com/amadolemli/factureman-sub000/internal/domain/catalog"
	"github.com/amadolemli/factureman-sub000/internal/domain/document"
	"github.com/amadolemli/factureman-sub000/internal/domain/ledger"
	"github.com/amadolemli/factureman-sub000/internal/domain/profile"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	productsCollection  = "products"
	documentsCollection = "documents"
	ledgersCollection   = "ledgers"
	profilesCollection  = "business_profiles"
)

// ErrOwnerMismatch is returned when an entity belongs to another owner
var ErrOwnerMismatch = errors.New("entity belongs to a different owner")

// RemoteStore is the MongoDB store of record. Every collection is keyed by
// entity id and partitioned by ownerId.
type RemoteStore struct {
	products  *mongo.Collection
	documents *mongo.Collection
	ledgers   *mongo.Collection
	profiles  *mongo.Collection
}

// NewRemoteStore creates a RemoteStore on db
func NewRemoteStore(db *mongo.Database) *RemoteStore {
	return &RemoteStore{
		products:  db.Collection(productsCollection),
		documents: db.Collection(documentsCollection),
		ledgers:   db.Collection(ledgersCollection),
		profiles:  db.Collection(profilesCollection),
	}
}

// EnsureIndexes creates the owner indexes
func (s *RemoteStore) EnsureIndexes(ctx context.Context) error {
	ownerIndex := []mongo.IndexModel{{Keys: bson.D{{Key: "ownerId", Value: 1}}}}
	for _, coll := range []*mongo.Collection{s.products, s.documents, s.ledgers, s.profiles} {
		if _, err := coll.Indexes().CreateMany(ctx, ownerIndex); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll.Name(), err)
		}
	}
	return nil
}

// FetchAll loads every collection of an owner
func (s *RemoteStore) FetchAll(ctx context.Context, ownerID uuid.UUID) (*reconciliation.Snapshot, error) {
	filter := bson.M{"ownerId": ownerID.String()}
	snapshot := &reconciliation.Snapshot{}

	var products []productDoc
	if err := findAll(ctx, s.products, filter, &products); err != nil {
		return nil, err
	}
	for _, d := range products {
		p, err := d.toDomain()
		if err != nil {
			return nil, err
		}
		snapshot.Products = append(snapshot.Products, p)
	}

	var docs []documentDoc
	if err := findAll(ctx, s.documents, filter, &docs); err != nil {
		return nil, err
	}
	for _, d := range docs {
		doc, err := d.toDomain()
		if err != nil {
			return nil, err
		}
		snapshot.Documents = append(snapshot.Documents, doc)
	}

	var ledgers []ledgerDoc
	if err := findAll(ctx, s.ledgers, filter, &ledgers); err != nil {
		return nil, err
	}
	for _, d := range ledgers {
		l, err := d.toDomain()
		if err != nil {
			return nil, err
		}
		snapshot.Ledgers = append(snapshot.Ledgers, l)
	}

	var prof profileDoc
	err := s.profiles.FindOne(ctx, filter).Decode(&prof)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
	case err != nil:
		return nil, fmt.Errorf("fetch profile: %w", err)
	default:
		if snapshot.Profile, err = prof.toDomain(); err != nil {
			return nil, err
		}
	}

	return snapshot, nil
}

// UpsertProducts replaces products by id
func (s *RemoteStore) UpsertProducts(ctx context.Context, ownerID uuid.UUID, products []*catalog.Product) error {
	docs := make([]any, 0, len(products))
	for _, p := range products {
		if p.OwnerID != ownerID {
			return ErrOwnerMismatch
		}
		docs = append(docs, newProductDoc(p))
	}
	return replaceAll(ctx, s.products, ids(products, func(p *catalog.Product) uuid.UUID { return p.ID }), docs)
}

// UpsertDocuments replaces documents by id
func (s *RemoteStore) UpsertDocuments(ctx context.Context, ownerID uuid.UUID, docs []*document.Document) error {
	rows := make([]any, 0, len(docs))
	for _, d := range docs {
		if d.OwnerID != ownerID {
			return ErrOwnerMismatch
		}
		rows = append(rows, newDocumentDoc(d))
	}
	return replaceAll(ctx, s.documents, ids(docs, func(d *document.Document) uuid.UUID { return d.ID }), rows)
}

// UpsertLedgers replaces ledgers by id, history included
func (s *RemoteStore) UpsertLedgers(ctx context.Context, ownerID uuid.UUID, ledgers []*ledger.LedgerRecord) error {
	rows := make([]any, 0, len(ledgers))
	for _, l := range ledgers {
		if l.OwnerID != ownerID {
			return ErrOwnerMismatch
		}
		rows = append(rows, newLedgerDoc(l))
	}
	return replaceAll(ctx, s.ledgers, ids(ledgers, func(l *ledger.LedgerRecord) uuid.UUID { return l.ID }), rows)
}

// UpsertProfile replaces the business profile
func (s *RemoteStore) UpsertProfile(ctx context.Context, ownerID uuid.UUID, p *profile.BusinessProfile) error {
	if p == nil {
		return nil
	}
	if p.OwnerID != ownerID {
		return ErrOwnerMismatch
	}
	return replaceAll(ctx, s.profiles, []uuid.UUID{p.ID}, []any{newProfileDoc(p)})
}

func findAll(ctx context.Context, coll *mongo.Collection, filter any, out any) error {
	cursor, err := coll.Find(ctx, filter)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", coll.Name(), err)
	}
	defer cursor.Close(ctx)
	if err := cursor.All(ctx, out); err != nil {
		return fmt.Errorf("decode %s: %w", coll.Name(), err)
	}
	return nil
}

func replaceAll(ctx context.Context, coll *mongo.Collection, keys []uuid.UUID, docs []any) error {
	if len(docs) == 0 {
		return nil
	}
	writes := make([]mongo.WriteModel, 0, len(docs))
	for i, doc := range docs {
		writes = append(writes, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": keys[i].String()}).
			SetReplacement(doc).
			SetUpsert(true))
	}
	if _, err := coll.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false)); err != nil {
		return fmt.Errorf("upsert %s: %w", coll.Name(), err)
	}
	return nil
}

func ids[T any](items []T, id func(T) uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, len(items))
	for i, item := range items {
		out[i] = id(item)
	}
	return out
}

var _ reconciliation.Store = (*RemoteStore)(nil)
