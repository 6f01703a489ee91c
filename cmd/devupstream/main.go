// devupstream serves an in-memory copy of the beneficiary management API for local development.
// Point the BFF at it with UPSTREAM_BASE_URL=http://localhost:4000/api/v1.
package main

import (
	"context"
	"crypto"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"mis-dashboard/backend/internal/config"
	"mis-dashboard/backend/internal/devupstream"
	"mis-dashboard/backend/internal/logger"
	"mis-dashboard/backend/internal/security"
	"mis-dashboard/backend/internal/server/middleware"
)

const (
	tokenIssuer = "mis-devupstream"
	tokenTTL    = 24 * time.Hour
)

func main() {
	fixturePath := flag.String("fixture", "", "YAML fixture to seed from (default: embedded fixture)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	zl, err := logger.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	creds, err := security.NewCredentials(cfg.DevUpstreamEmail, cfg.DevUpstreamPassword, cfg.BcryptCost)
	if err != nil {
		zl.Fatal("credentials", zap.Error(err))
	}

	var signer crypto.Signer
	if cfg.DevUpstreamSigningKey != "" {
		signer, err = security.ParsePrivateKey(cfg.DevUpstreamSigningKey)
	} else {
		signer, err = security.GenerateSigningKey()
		zl.Info("generated an ephemeral signing key; tokens do not survive a restart")
	}
	if err != nil {
		zl.Fatal("signing key", zap.Error(err))
	}

	var fixture []byte
	if *fixturePath != "" {
		if fixture, err = os.ReadFile(*fixturePath); err != nil {
			zl.Fatal("fixture", zap.String("path", *fixturePath), zap.Error(err))
		}
	}

	srv, err := devupstream.New(devupstream.Options{
		Credentials: creds,
		Issuer:      security.NewTokenIssuer(signer, tokenIssuer, tokenTTL),
		Fixture:     fixture,
		Logger:      zl,
	})
	if err != nil {
		zl.Fatal("devupstream", zap.Error(err))
	}

	httpSrv := &http.Server{
		Addr:              cfg.DevUpstreamAddr,
		Handler:           middleware.Chain(srv.Handler(), middleware.RequestID, middleware.AccessLog(zl), middleware.Recover(zl)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		zl.Info("dev upstream listening",
			zap.String("addr", cfg.DevUpstreamAddr),
			zap.String("base_path", devupstream.BasePath),
			zap.String("email", creds.Email()),
			zap.String("alg", security.KeyAlg(signer.Public())),
		)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("serve", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		zl.Warn("shutdown", zap.Error(err))
	}
}
