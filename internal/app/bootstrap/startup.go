// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"fmt"
	"sync"

	"github.com/dalemusser/waffle/config"
	sessionstore "github.com/ezhangle/elle/internal/app/store/sessions"
	"github.com/ezhangle/elle/internal/app/system/identity"
	"github.com/ezhangle/elle/internal/app/system/timeouts"
	"github.com/ezhangle/elle/internal/app/system/workers"
	"go.uber.org/zap"
)

// started holds what Startup builds for BuildHandler and Shutdown.
var started struct {
	mu      sync.Mutex
	issuer  *identity.Issuer
	sweeper *workers.SessionSweeper
}

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
//
// It applies TIMEOUT_* overrides, unseals the identity authority so that a
// wrong passphrase fails startup, and starts the expired-session sweeper
// when sessions live in MongoDB.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if n := timeouts.ConfigureFromEnv(); n > 0 {
		logger.Info("timeouts overridden from environment", zap.Int("count", n), zap.Any("timeouts", timeouts.Current()))
	}

	authority, err := identity.LoadAuthority(appCfg.AuthorityPath, appCfg.AuthorityPassword)
	if err != nil {
		logger.Error("load identity authority failed", zap.String("path", appCfg.AuthorityPath), zap.Error(err))
		return fmt.Errorf("load identity authority: %w", err)
	}
	issuer := identity.NewIssuer(appCfg.IdentityWorkFactor)
	issuer.Preload(appCfg.AuthorityPath, appCfg.AuthorityPassword, authority)

	started.mu.Lock()
	defer started.mu.Unlock()
	started.issuer = issuer

	if appCfg.SessionBackend == SessionBackendMongo && appCfg.SessionSweepInterval > 0 {
		started.sweeper = workers.NewSessionSweeper(sessionstore.New(deps.MongoDatabase), logger, appCfg.SessionSweepInterval)
		started.sweeper.Start()
	}
	return nil
}
