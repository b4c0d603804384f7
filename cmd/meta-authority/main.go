// Command meta-authority creates the sealed identity authority that meta
// signs user identities with.
//
//	META_AUTHORITY_PASSWORD=... meta-authority -out /etc/meta/authority.age
package main

import (
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/ezhangle/elle/internal/app/system/identity"
	"go.uber.org/zap"
)

func main() {
	out := flag.String("out", "authority.age", "path of the sealed authority file to create")
	workFactor := flag.Int("work-factor", 0, "scrypt work factor (log2 N) for sealing; 0 keeps the age default")
	force := flag.Bool("force", false, "overwrite an existing file")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(*out, os.Getenv("META_AUTHORITY_PASSWORD"), *workFactor, *force, logger); err != nil {
		logger.Fatal("create authority failed", zap.Error(err))
	}
}

func run(path, password string, workFactor int, force bool, logger *zap.Logger) error {
	if password == "" {
		return errors.New("META_AUTHORITY_PASSWORD must be set")
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if force {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}

	authority, sealed, err := identity.GenerateAuthority(password, workFactor)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, flags, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.Write(sealed); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	logger.Info("authority created",
		zap.String("path", path),
		zap.String("public_key", base64.StdEncoding.EncodeToString(authority.PublicKey())))
	return nil
}
