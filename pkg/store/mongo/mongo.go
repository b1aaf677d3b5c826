// Package mongo provides a shared edge store on MongoDB.
//
// Items are stored in the "items" collection keyed by ID. Edges are stored
// in the "edges" collection keyed by "<from>\x00<to>\x00<kind>", with
// secondary indexes on from and to.
//
// Cycle checks and writes are serialized per process. Processes sharing a
// database should route edge writes through one engine instance.
package mongo

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/workgraph/pkg/dag"
	"github.com/matzehuels/workgraph/pkg/errors"
	"github.com/matzehuels/workgraph/pkg/store"
)

// DefaultDatabase is used when Config.Database is empty.
const DefaultDatabase = "workgraph"

// Config configures the MongoDB store.
type Config struct {
	// URI is the connection string, e.g. mongodb://localhost:27017.
	URI string
	// Database name. Defaults to [DefaultDatabase].
	Database string
	// Timeout bounds connect and ping. Defaults to 10s.
	Timeout time.Duration
}

// Store is a MongoDB-backed edge store. It is safe for concurrent use.
type Store struct {
	mu     sync.Mutex
	client *mongo.Client
	items  *mongo.Collection
	edges  *mongo.Collection
}

var _ store.Store = (*Store)(nil)

type edgeDoc struct {
	ID       string `bson:"_id"`
	dag.Edge `bson:",inline"`
}

// Open connects to MongoDB and ensures indexes exist.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.URI == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "mongo: uri is required")
	}
	if cfg.Database == "" {
		cfg.Database = DefaultDatabase
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	cctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	client, err := mongo.Connect(cctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "connect to mongodb")
	}
	if err := store.Connect(cctx, func(ctx context.Context) error {
		return client.Ping(ctx, nil)
	}); err != nil {
		client.Disconnect(context.Background())
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "ping mongodb")
	}

	db := client.Database(cfg.Database)
	s := &Store{client: client, items: db.Collection("items"), edges: db.Collection("edges")}
	if _, err := s.edges.Indexes().CreateMany(cctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "from", Value: 1}, {Key: "to", Value: 1}}},
		{Keys: bson.D{{Key: "to", Value: 1}}},
	}); err != nil {
		client.Disconnect(context.Background())
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "create edge indexes")
	}
	return s, nil
}

func edgeID(e dag.Edge) string {
	return e.From + "\x00" + e.To + "\x00" + string(e.Kind)
}

func (s *Store) GetItem(ctx context.Context, id string) (*dag.Item, error) {
	var it dag.Item
	err := s.items.FindOne(ctx, bson.M{"_id": id}).Decode(&it)
	if err == mongo.ErrNoDocuments {
		return nil, errors.NotFound(id)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "get item %s", id)
	}
	return &it, nil
}

func (s *Store) ListItems(ctx context.Context, f store.ItemFilter) ([]*dag.Item, error) {
	query := bson.M{}
	if len(f.IDs) > 0 {
		query["_id"] = bson.M{"$in": f.IDs}
	}
	cur, err := s.items.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "list items")
	}
	var all []*dag.Item
	if err := cur.All(ctx, &all); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "decode items")
	}
	out := all[:0]
	for _, it := range all {
		if f.Match(it) {
			out = append(out, it)
		}
	}
	dag.SortItems(out)
	return out, nil
}

func (s *Store) PutItem(ctx context.Context, it *dag.Item) error {
	if err := store.ValidateItem(it); err != nil {
		return err
	}
	_, err := s.items.ReplaceOne(ctx, bson.M{"_id": it.ID}, it, options.Replace().SetUpsert(true))
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "put item %s", it.ID)
	}
	return nil
}

func (s *Store) ListEdges(ctx context.Context) ([]dag.Edge, error) {
	return s.findEdges(ctx, bson.M{})
}

func (s *Store) ListBlockingEdges(ctx context.Context) ([]dag.Edge, error) {
	edges, err := s.ListEdges(ctx)
	if err != nil {
		return nil, err
	}
	return dag.BlockingOnly(edges), nil
}

func (s *Store) ListEdgesFor(ctx context.Context, id string) ([]dag.EdgeRef, error) {
	edges, err := s.findEdges(ctx, bson.M{"$or": bson.A{bson.M{"from": id}, bson.M{"to": id}}})
	if err != nil {
		return nil, err
	}
	return store.RefsFor(id, edges), nil
}

func (s *Store) InsertEdge(ctx context.Context, e dag.Edge) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.ListEdges(ctx)
	if err != nil {
		return err
	}
	known, err := s.presentIDs(ctx, e.From, e.To)
	if err != nil {
		return err
	}
	ok, err := store.CheckInsert(e, existing, func(id string) bool { return known[id] })
	if err != nil || !ok {
		return err
	}

	_, err = s.edges.InsertOne(ctx, edgeDoc{ID: edgeID(e), Edge: e})
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "insert edge %s -> %s", e.From, e.To)
	}
	return nil
}

func (s *Store) presentIDs(ctx context.Context, ids ...string) (map[string]bool, error) {
	cur, err := s.items.Find(ctx, bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "check endpoints")
	}
	var docs []struct {
		ID string `bson:"_id"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "check endpoints")
	}
	out := make(map[string]bool, len(docs))
	for _, d := range docs {
		out[d.ID] = true
	}
	return out, nil
}

func (s *Store) DeleteEdge(ctx context.Context, from, to string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.edges.DeleteMany(ctx, bson.M{"from": from, "to": to}); err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "delete edge %s -> %s", from, to)
	}
	return nil
}

// Close disconnects the client.
func (s *Store) Close() error {
	return s.client.Disconnect(context.Background())
}

func (s *Store) findEdges(ctx context.Context, query bson.M) ([]dag.Edge, error) {
	cur, err := s.edges.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "list edges")
	}
	var docs []edgeDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "decode edges")
	}
	out := make([]dag.Edge, len(docs))
	for i, d := range docs {
		out[i] = d.Edge
	}
	return out, nil
}
