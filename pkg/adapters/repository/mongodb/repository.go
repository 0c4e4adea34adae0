package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/wadjakorntonsri/shortlink/pkg/core/domain"
	"github.com/wadjakorntonsri/shortlink/pkg/ports"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collectionName = "links"

type linkDoc struct {
	ShortCode   string     `bson:"short_code"`
	OriginalURL string     `bson:"original_url"`
	Owner       string     `bson:"owner"`
	Clicks      int64      `bson:"clicks"`
	Expiry      *time.Time `bson:"expiry,omitempty"`
	CreatedAt   time.Time  `bson:"created_at"`
}

func (d linkDoc) link() domain.Link {
	l := domain.Link{
		ShortCode:   d.ShortCode,
		OriginalURL: d.OriginalURL,
		Owner:       domain.Owner(d.Owner),
		Clicks:      d.Clicks,
		CreatedAt:   d.CreatedAt,
	}
	if d.Expiry != nil {
		e := *d.Expiry
		l.Expiry = &e
	}
	return l
}

type MongoRepository struct {
	client *mongo.Client
	links  *mongo.Collection
}

// NewMongoRepository connects, pings and ensures the links indexes exist.
func NewMongoRepository(ctx context.Context, uri, dbName string) (*MongoRepository, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, domain.NewStorageError("connect", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, domain.NewStorageError("ping", err)
	}

	links := client.Database(dbName).Collection(collectionName)
	_, err = links.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "short_code", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "owner", Value: 1}, {Key: "created_at", Value: -1}},
		},
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, domain.NewStorageError("indexes", err)
	}

	return &MongoRepository{client: client, links: links}, nil
}

func (r *MongoRepository) Insert(ctx context.Context, link *domain.Link) error {
	doc := linkDoc{
		ShortCode:   link.ShortCode,
		OriginalURL: link.OriginalURL,
		Owner:       string(link.Owner),
		Clicks:      link.Clicks,
		Expiry:      link.Expiry,
		CreatedAt:   link.CreatedAt,
	}

	_, err := r.links.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrCodeAlreadyExists
	}
	return domain.NewStorageError("insert", err)
}

func (r *MongoRepository) GetByShortCode(ctx context.Context, code string) (*domain.Link, error) {
	var doc linkDoc
	err := r.links.FindOne(ctx, bson.M{"short_code": code}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, domain.NewStorageError("get", err)
	}

	l := doc.link()
	return &l, nil
}

func (r *MongoRepository) List(ctx context.Context, owner domain.Owner) ([]domain.Link, error) {
	filter := bson.M{}
	if owner != "" {
		filter["owner"] = string(owner)
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})

	links, err := r.find(ctx, filter, opts)
	return links, domain.NewStorageError("list", err)
}

func (r *MongoRepository) DeleteOwned(ctx context.Context, code string, owner domain.Owner) error {
	filter := bson.M{"short_code": code}
	if owner != "" {
		filter["owner"] = string(owner)
	}

	res, err := r.links.DeleteOne(ctx, filter)
	if err != nil {
		return domain.NewStorageError("delete", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *MongoRepository) IncrementClicks(ctx context.Context, code string) (*domain.Link, error) {
	var doc linkDoc
	err := r.links.FindOneAndUpdate(ctx,
		bson.M{"short_code": code},
		bson.M{"$inc": bson.M{"clicks": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, domain.NewStorageError("increment", err)
	}

	l := doc.link()
	return &l, nil
}

func (r *MongoRepository) Dump(ctx context.Context) ([]domain.Link, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	links, err := r.find(ctx, bson.M{}, opts)
	return links, domain.NewStorageError("dump", err)
}

func (r *MongoRepository) Close() error {
	return r.client.Disconnect(context.Background())
}

func (r *MongoRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]domain.Link, error) {
	cur, err := r.links.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	var docs []linkDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	links := make([]domain.Link, 0, len(docs))
	for _, d := range docs {
		links = append(links, d.link())
	}
	return links, nil
}

// Ensure interface compliance
var _ ports.LinkRepository = (*MongoRepository)(nil)
