package components

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gopkg.in/yaml.v3"

	"MarketPrompt/internal/model"
	"MarketPrompt/internal/prompt"
)

const (
	mongoError             = `{"error": "Error querying data from mongo db"}`
	defaultMongoDatabase   = "defaultDb"
	defaultMongoCollection = "defaultCollection"
	mongoDisconnectTimeout = 5 * time.Second
)

// MongoConfig configures a MongoDB find component. Query and Projection are
// passed to find as documents; an empty Query matches every document.
type MongoConfig struct {
	Description string         `yaml:"description"`
	URI         string         `yaml:"uri"`
	Database    string         `yaml:"db_name"`
	Collection  string         `yaml:"collection_name"`
	Query       map[string]any `yaml:"query"`
	Projection  map[string]any `yaml:"projection"`
	Limit       int64          `yaml:"limit"`
}

// Mongo renders the documents matched by a find as a JSON array. Fields keep
// their stored order, object ids render as hex strings and dates as ISO
// timestamps.
type Mongo struct {
	prompt.Base
	cfg MongoConfig
}

// NewMongo creates a MongoDB find component.
func NewMongo(cfg MongoConfig) *Mongo {
	if cfg.Database == "" {
		cfg.Database = defaultMongoDatabase
	}
	if cfg.Collection == "" {
		cfg.Collection = defaultMongoCollection
	}
	return &Mongo{
		Base: prompt.Base{Template: cfg.Description, Vars: map[string]any{
			"db_name":         cfg.Database,
			"collection_name": cfg.Collection,
		}},
		cfg: cfg,
	}
}

func (m *Mongo) Name() string { return "mongo" }

func (m *Mongo) Content(ctx context.Context) (string, error) {
	out, err := m.find(ctx)
	if err != nil {
		return "", prompt.Fail(mongoError, fmt.Errorf("db=%s collection=%s query=%v: %w",
			m.cfg.Database, m.cfg.Collection, m.cfg.Query, err))
	}
	return out, nil
}

func (m *Mongo) find(ctx context.Context) (string, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(m.cfg.URI))
	if err != nil {
		return "", fmt.Errorf("connect: %w", err)
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), mongoDisconnectTimeout)
		defer cancel()
		_ = client.Disconnect(dctx)
	}()

	filter := bson.M{}
	for k, v := range m.cfg.Query {
		filter[k] = v
	}
	opts := options.Find()
	if len(m.cfg.Projection) > 0 {
		opts.SetProjection(m.cfg.Projection)
	}
	if m.cfg.Limit > 0 {
		opts.SetLimit(m.cfg.Limit)
	}

	cursor, err := client.Database(m.cfg.Database).Collection(m.cfg.Collection).Find(ctx, filter, opts)
	if err != nil {
		return "", fmt.Errorf("find: %w", err)
	}
	var docs []bson.D
	if err := cursor.All(ctx, &docs); err != nil {
		return "", fmt.Errorf("read cursor: %w", err)
	}

	var b strings.Builder
	b.WriteByte('[')
	for i, doc := range docs {
		if i > 0 {
			b.WriteByte(',')
		}
		if err := writeBSON(&b, doc); err != nil {
			return "", err
		}
	}
	b.WriteByte(']')
	return b.String(), nil
}

// writeBSON encodes a decoded BSON value as JSON.
func writeBSON(b *strings.Builder, v any) error {
	switch x := v.(type) {
	case bson.D:
		b.WriteByte('{')
		for i, e := range x {
			if i > 0 {
				b.WriteByte(',')
			}
			k, _ := json.Marshal(e.Key)
			b.Write(k)
			b.WriteByte(':')
			if err := writeBSON(b, e.Value); err != nil {
				return err
			}
		}
		b.WriteByte('}')
		return nil
	case bson.A:
		b.WriteByte('[')
		for i, e := range x {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := writeBSON(b, e); err != nil {
				return err
			}
		}
		b.WriteByte(']')
		return nil
	case primitive.ObjectID:
		v = x.Hex()
	case primitive.DateTime:
		v = model.FormatTime(x.Time())
	case primitive.Decimal128:
		v = x.String()
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %T: %w", v, err)
	}
	b.Write(data)
	return nil
}

func buildMongo(opts *yaml.Node, _ Deps) (prompt.Component, error) {
	var cfg MongoConfig
	if err := decode(opts, &cfg); err != nil {
		return nil, err
	}
	if cfg.URI == "" {
		return nil, fmt.Errorf("uri is required")
	}
	return NewMongo(cfg), nil
}
