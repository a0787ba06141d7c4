// Package server composes and runs the fbgate HTTP process boundary.
//
// It wires the storage, session, and Facebook bridge layers into a single
// HTTP server with a demo whoami endpoint and Prometheus metrics.
package server

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fbgate/fbgate/internal/auth"
	"github.com/fbgate/fbgate/internal/auth/session"
	"github.com/fbgate/fbgate/internal/auth/storage/memory"
	"github.com/fbgate/fbgate/internal/auth/storage/sqlite"
	"github.com/fbgate/fbgate/internal/facebook"
	"github.com/fbgate/fbgate/internal/platform/config"
	"github.com/fbgate/fbgate/internal/web/fbmiddleware"
	"github.com/fbgate/fbgate/internal/web/httpx"
	"github.com/fbgate/fbgate/internal/web/identity"
	"github.com/fbgate/fbgate/internal/web/requestmeta"
)

// Config holds server command configuration.
type Config struct {
	Addr       string        `env:"FBGATE_HTTP_ADDR" envDefault:"localhost:8080"`
	DBPath     string        `env:"FBGATE_DB_PATH"`
	AppID      string        `env:"FBGATE_FACEBOOK_APP_ID"`
	AppSecret  string        `env:"FBGATE_FACEBOOK_APP_SECRET"`
	SessionKey string        `env:"FBGATE_SESSION_KEY"`
	SessionTTL time.Duration `env:"FBGATE_SESSION_TTL"`
	TrustProxy bool          `env:"FBGATE_TRUST_PROXY"`

	// Debug overrides for local development; never set these in production.
	DebugSignedRequest string `env:"FBGATE_DEBUG_SIGNED_REQUEST"`
	DebugCookie        string `env:"FBGATE_DEBUG_COOKIE"`
	DebugTokenUID      string `env:"FBGATE_DEBUG_TOKEN_UID"`
	DebugToken         string `env:"FBGATE_DEBUG_TOKEN"`
}

// ParseConfig loads configuration from the environment and parses flag
// overrides into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.Addr, "http-addr", cfg.Addr, "The HTTP server address")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "SQLite database path; empty keeps state in memory")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration needed to serve.
func (c Config) Validate() error {
	if strings.TrimSpace(c.AppID) == "" {
		return errors.New("FBGATE_FACEBOOK_APP_ID is required")
	}
	if strings.TrimSpace(c.AppSecret) == "" {
		return errors.New("FBGATE_FACEBOOK_APP_SECRET is required")
	}
	if len(c.SessionKey) < 32 {
		return errors.New("FBGATE_SESSION_KEY must be at least 32 bytes")
	}
	return nil
}

// store combines the persistence interfaces the server wires together.
type store interface {
	auth.UserStore
	auth.IdentityStore
	session.Store
}

// Run starts the fbgate server and serves until the context ends.
func Run(ctx context.Context, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	var st store
	if strings.TrimSpace(cfg.DBPath) != "" {
		dbStore, err := sqlite.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer func() {
			if err := dbStore.Close(); err != nil {
				log.Printf("close store: %v", err)
			}
		}()
		st = dbStore
	} else {
		st = memory.NewStore()
	}

	app := facebook.App{ID: cfg.AppID, Secret: cfg.AppSecret}
	var managerOpts []session.ManagerOption
	if cfg.SessionTTL > 0 {
		managerOpts = append(managerOpts, session.WithTTL(cfg.SessionTTL))
	}
	manager := session.NewManager(st, st, []byte(cfg.SessionKey), managerOpts...)
	backend := auth.NewFacebookBackend(app, st, st)
	bridge := fbmiddleware.New(backend, manager, st,
		fbmiddleware.WithSchemePolicy(requestmeta.SchemePolicy{TrustForwardedProto: cfg.TrustProxy}))

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           Handler(cfg, app, manager, bridge),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	log.Printf("listening on %s", cfg.Addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Handler builds the full middleware chain and routes.
func Handler(cfg Config, app facebook.App, manager *session.Manager, bridge *fbmiddleware.Bridge) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/whoami", whoami)

	chain := []httpx.Middleware{
		httpx.RequestID(),
		httpx.RecoverPanic(),
		identity.Middleware(manager),
	}
	if cfg.DebugSignedRequest != "" {
		chain = append(chain, fbmiddleware.DebugSignedRequest(cfg.DebugSignedRequest))
	}
	if cfg.DebugCookie != "" {
		chain = append(chain, fbmiddleware.DebugCookie(app, cfg.DebugCookie))
	}
	if cfg.DebugToken != "" {
		chain = append(chain, fbmiddleware.DebugToken(cfg.DebugTokenUID, cfg.DebugToken))
		chain = append(chain, bridge.LoginHandler(), bridge.LogoutHandler())
	} else {
		chain = append(chain, bridge.Handler())
	}
	return httpx.Chain(mux, chain...)
}

type whoamiResponse struct {
	Authenticated bool         `json:"authenticated"`
	Username      string       `json:"username,omitempty"`
	Backend       string       `json:"backend,omitempty"`
	Facebook      *whoamiGraph `json:"facebook,omitempty"`
}

type whoamiGraph struct {
	UID      string `json:"uid"`
	HasToken bool   `json:"has_token"`
}

func whoami(w http.ResponseWriter, r *http.Request) {
	id, ok := identity.FromRequest(r)
	if !ok {
		httpx.WriteError(w, identity.ErrMiddlewareMissing)
		return
	}

	resp := whoamiResponse{Authenticated: id.Authenticated()}
	if id.Authenticated() {
		resp.Username = id.User.Username
		resp.Backend = string(id.Session.Backend)
	}
	if accessor, ok := fbmiddleware.FacebookFromRequest(r); ok {
		resp.Facebook = &whoamiGraph{
			UID:      accessor.UID,
			HasToken: accessor.Graph.AccessToken() != "",
		}
	}
	if err := httpx.WriteJSON(w, http.StatusOK, resp); err != nil {
		log.Printf("write whoami response: %v", err)
	}
}
