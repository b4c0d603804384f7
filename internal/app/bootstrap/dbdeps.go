// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	sessionstore "github.com/ezhangle/elle/internal/app/store/sessions"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// Redis is set only when session_backend is redis.
	Redis *sessionstore.RedisStore
}
