package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"net/http"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/sqlbridge/sqlbridge/authn"
	"github.com/sqlbridge/sqlbridge/dbhost"
	"github.com/sqlbridge/sqlbridge/server"
	"github.com/sqlbridge/sqlbridge/server/wasihost"
)

func main() {
	basePath := flag.String("basePath", "", "Directory that relative database paths resolve against (default: working directory)")
	port := flag.Int("port", 8080, "Port for the HTTP request boundary")
	authKeyPath := flag.String("authKeyPath", "", "Path to the HMAC secret for bearer-token auth (empty disables auth)")
	guestPath := flag.String("guest", "", "Optional path to a WASM guest module to host")
	allowAbsolute := flag.Bool("allowAbsolutePaths", false, "Permit absolute local database paths that bypass base-path containment")
	flag.Parse()

	encryption, err := encryptionFromEnv()
	if err != nil {
		log.Fatalf("Invalid SQLBRIDGE_ENCRYPTION_KEY: %v", err)
	}
	if encryption != nil {
		log.Info("Database encryption: enabled")
	}

	cfg, err := dbhost.NewConfig(*basePath, encryption)
	if err != nil {
		log.Fatalf("Failed to build configuration: %v", err)
	}
	cfg.AllowAbsolutePaths = *allowAbsolute

	pool := dbhost.NewPool()
	defer pool.CloseAll()

	host := server.NewHost(cfg, pool)

	var secret []byte
	if *authKeyPath != "" {
		secret, err = authn.LoadSecretKey(*authKeyPath)
		if err != nil {
			log.Fatalf("Failed to load auth secret: %v", err)
		}
	}

	if *guestPath != "" {
		if err := hostGuest(context.Background(), host, *guestPath); err != nil {
			log.Fatalf("Failed to host guest module: %v", err)
		}
	}

	mux := http.NewServeMux()
	host.Routes(mux, secret)

	listenAddr := fmt.Sprintf(":%d", *port)
	log.WithField("addr", listenAddr).Info("Starting sqlbridge host")
	log.Fatal(http.ListenAndServe(listenAddr, mux))
}

// encryptionFromEnv reads the default encryption key from
// SQLBRIDGE_ENCRYPTION_KEY as hex. The decoded key must be exactly the size
// the cipher requires; it is never padded or truncated.
func encryptionFromEnv() (*dbhost.EncryptionConfig, error) {
	raw := os.Getenv("SQLBRIDGE_ENCRYPTION_KEY")
	if raw == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("expected hex encoding: %w", err)
	}
	return &dbhost.EncryptionConfig{Cipher: dbhost.CipherAES256CBC, Key: key}, nil
}

// hostGuest starts a wazero runtime with the sqlbridge host module registered
// and instantiates the guest, which drives the database entirely through
// env.sqlbridge_request.
func hostGuest(ctx context.Context, host *server.Host, path string) error {
	guestWasm, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read guest module: %w", err)
	}

	r := wazero.NewRuntime(ctx)
	wasi_snapshot_preview1.MustInstantiate(ctx, r)

	if err := wasihost.Register(ctx, r, host); err != nil {
		return fmt.Errorf("failed to register host module: %w", err)
	}

	_, err = r.InstantiateWithConfig(ctx, guestWasm,
		wazero.NewModuleConfig().WithStartFunctions("_initialize"))
	if err != nil {
		return fmt.Errorf("failed to instantiate guest: %w", err)
	}
	return nil
}
