// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup. Each collection's index set is reconciled
idempotently; problems are aggregated so startup can fail fast with all of
them visible.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string
	for coll, models := range desired() {
		if err := ensureIndexSet(ctx, db.Collection(coll), models); err != nil {
			problems = append(problems, coll+": "+err.Error())
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func desired() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		"users": {
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetName("uniq_users_email").SetUnique(true),
			},
		},
		"invitations": {
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetName("uniq_invitations_email").SetUnique(true),
			},
			{
				Keys:    bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}},
				Options: options.Index().SetName("idx_invitations_status_created"),
			},
		},
		"sessions": {
			{
				Keys:    bson.D{{Key: "token", Value: 1}},
				Options: options.Index().SetName("uniq_sessions_token").SetUnique(true),
			},
			{
				Keys:    bson.D{{Key: "user_id", Value: 1}},
				Options: options.Index().SetName("idx_sessions_user"),
			},
			{
				// expireAfterSeconds 0: documents go when expires_at passes
				Keys:    bson.D{{Key: "expires_at", Value: 1}},
				Options: options.Index().SetName("ttl_sessions_expires_at").SetExpireAfterSeconds(0),
			},
		},
		"audit_events": {
			{
				Keys:    bson.D{{Key: "timestamp", Value: -1}},
				Options: options.Index().SetName("idx_audit_timestamp"),
			},
			{
				Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "timestamp", Value: -1}},
				Options: options.Index().SetName("idx_audit_user_timestamp"),
			},
			{
				Keys:    bson.D{{Key: "category", Value: 1}, {Key: "event_type", Value: 1}, {Key: "timestamp", Value: -1}},
				Options: options.Index().SetName("idx_audit_category_type_timestamp"),
			},
		},
	}
}

/* -------------------------------------------------------------------------- */
/* Reconcile a set of desired indexes for one collection                      */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name               string `bson:"name"`
	Key                bson.D `bson:"key"`
	Unique             *bool  `bson:"unique,omitempty"`
	ExpireAfterSeconds *int32 `bson:"expireAfterSeconds,omitempty"`
}

// spec is the comparable shape of an index.
type spec struct {
	name   string
	keys   string
	unique bool
	ttl    int32 // -1 when not a TTL index
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func specOf(m mongo.IndexModel) spec {
	s := spec{keys: keySig(m.Keys.(bson.D)), ttl: -1}
	if o := m.Options; o != nil {
		if o.Name != nil {
			s.name = *o.Name
		}
		if o.Unique != nil {
			s.unique = *o.Unique
		}
		if o.ExpireAfterSeconds != nil {
			s.ttl = *o.ExpireAfterSeconds
		}
	}
	return s
}

func (e existingIndex) spec() spec {
	s := spec{name: e.Name, keys: keySig(e.Key), ttl: -1}
	if e.Unique != nil {
		s.unique = *e.Unique
	}
	if e.ExpireAfterSeconds != nil {
		s.ttl = *e.ExpireAfterSeconds
	}
	return s
}

func listExisting(ctx context.Context, coll *mongo.Collection) (map[string]spec, error) {
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := map[string]spec{}
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			zap.L().Warn("failed to decode existing index",
				zap.String("collection", coll.Name()),
				zap.Error(err))
			continue
		}
		out[keySig(idx.Key)] = idx.spec()
	}
	return out, cur.Err()
}

// ensureIndexSet creates each wanted index. An index with the same keys but
// different options or name is dropped and recreated.
func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	existing, err := listExisting(ctx, coll)
	if err != nil {
		// a collection that does not exist yet has no indexes
		existing = map[string]spec{}
	}

	var errs []string
	for _, m := range models {
		want := specOf(m)
		start := time.Now()
		log := zap.L().With(
			zap.String("collection", coll.Name()),
			zap.String("name", want.name),
			zap.String("keys", want.keys))

		if have, ok := existing[want.keys]; ok {
			if have == want || (want.name == "" && have.unique == want.unique && have.ttl == want.ttl) {
				log.Debug("reusing existing index")
				continue
			}
			log.Info("index differs, recreating", zap.String("existing", have.name))
			if _, err := coll.Indexes().DropOne(ctx, have.name); err != nil {
				errs = append(errs, fmt.Sprintf("%s: drop %s failed: %v", want.name, have.name, err))
				continue
			}
		}

		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			if want.unique && isDuplicateKeyErr(err) {
				errs = append(errs, fmt.Sprintf("%s: cannot create unique index on %s (duplicates present)", want.name, want.keys))
			} else {
				errs = append(errs, fmt.Sprintf("%s: %v", want.name, err))
			}
			continue
		}
		log.Info("index ensured", zap.Duration("took", time.Since(start)))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func isDuplicateKeyErr(err error) bool {
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	return strings.Contains(err.Error(), "E11000")
}
