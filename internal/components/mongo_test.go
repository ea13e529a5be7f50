package components

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"MarketPrompt/internal/prompt"
)

func TestWriteBSON(t *testing.T) {
	oid, err := primitive.ObjectIDFromHex("65e9a1f0c2a4b3d2e1f00001")
	if err != nil {
		t.Fatal(err)
	}
	at := primitive.NewDateTimeFromTime(time.Date(2025, 3, 7, 12, 0, 0, 0, time.UTC))

	tests := []struct {
		name string
		in   any
		want string
	}{
		{
			name: "field order kept",
			in: bson.D{
				{Key: "pair", Value: "BTC/USDT"},
				{Key: "_id", Value: oid},
				{Key: "px", Value: 1.5},
			},
			want: `{"pair":"BTC/USDT","_id":"65e9a1f0c2a4b3d2e1f00001","px":1.5}`,
		},
		{
			name: "nested values",
			in: bson.D{
				{Key: "at", Value: at},
				{Key: "tags", Value: bson.A{"a", int32(2)}},
				{Key: "meta", Value: bson.D{{Key: "ok", Value: true}, {Key: "n", Value: nil}}},
			},
			want: `{"at":"2025-03-07T12:00:00.000Z","tags":["a",2],"meta":{"ok":true,"n":null}}`,
		},
		{name: "empty document", in: bson.D{}, want: `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b strings.Builder
			if err := writeBSON(&b, tt.in); err != nil {
				t.Fatalf("writeBSON: %v", err)
			}
			if b.String() != tt.want {
				t.Errorf("got %s, want %s", b.String(), tt.want)
			}
		})
	}
}

func TestMongo_BuildDefaults(t *testing.T) {
	c, err := Build("mongo", yamlNode(t, `
description: "Documents from {{db_name}}.{{collection_name}}"
uri: "mongodb://127.0.0.1:27017"
`), mockDeps(nil))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got, want := c.Description(), "Documents from defaultDb.defaultCollection"; got != want {
		t.Errorf("Description() = %q, want %q", got, want)
	}
	if prompt.NameOf(c) != "mongo" {
		t.Errorf("Name() = %q", prompt.NameOf(c))
	}

	if _, err := Build("mongo", yamlNode(t, `db_name: trades`), mockDeps(nil)); err == nil {
		t.Error("missing uri should fail")
	}
}

func TestMongo_Failures(t *testing.T) {
	uris := []string{
		// nothing listens on port 1
		"mongodb://127.0.0.1:1/?serverSelectionTimeoutMS=200&connectTimeoutMS=200",
		"http://127.0.0.1:27017",
	}
	for _, uri := range uris {
		m := NewMongo(MongoConfig{
			URI:        uri,
			Database:   "trades",
			Collection: "fills",
			Query:      map[string]any{"pair": "BTC/USDT"},
			Projection: map[string]any{"_id": 0},
		})
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		_, err := m.Content(ctx)
		cancel()
		var fe *prompt.FailureError
		if !errors.As(err, &fe) || fe.Payload != mongoError {
			t.Errorf("uri %s: err = %v, want failure payload", uri, err)
		}
	}
}
