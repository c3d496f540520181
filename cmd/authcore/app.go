package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/saaskit/authcore/internal/cqrs"
	"github.com/saaskit/authcore/internal/eventbus"
	"github.com/saaskit/authcore/internal/handlers"
	"github.com/saaskit/authcore/internal/logger"
	"github.com/saaskit/authcore/internal/repository"
	"github.com/saaskit/authcore/internal/repository/cache"
	"github.com/saaskit/authcore/internal/repository/memory"
	"github.com/saaskit/authcore/internal/repository/postgres"
	"github.com/saaskit/authcore/internal/service/actionrequest"
	"github.com/saaskit/authcore/internal/service/saga"
	"github.com/saaskit/authcore/internal/service/token"
	"github.com/saaskit/authcore/internal/service/user"
)

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	// Initialize logger
	log, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	// The memory backend keeps everything in-process, no external fan-out
	var client *redis.Client
	var outbound eventbus.OutboundPublisher
	if c.Storage != "memory" {
		client, err = cache.Connect(ctx, c.RedisAddr)
		if err != nil {
			return nil, fmt.Errorf("error while connecting to redis. Err: %w", err)
		}
		outbound = eventbus.NewRedisPublisher(client)
	}

	// Event bus next: repositories publish through it on every Save
	events := eventbus.New(c.SystemName, log, outbound)

	// Initialize repositories
	storage, err := newStorage(ctx, c, client, events)
	if err != nil {
		return nil, err
	}

	// Initialize services
	jwts, err := token.NewJWTManager(token.JWTConfig{
		SecretKey: c.SecretKey,
		AccessTTL: c.AccessTokenTTL,
		ActionTTL: c.EmailVerificationTokenTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("error while creating jwt manager. Err: %w", err)
	}

	issuer, err := token.NewIssuer(token.IssuerConfig{
		SecretKey: c.SecretKey,
		Logger:    log,
	}, storage.Token, storage.TokenHash, storage.User)
	if err != nil {
		return nil, fmt.Errorf("error while creating token issuer. Err: %w", err)
	}

	verifier := token.NewVerifier(storage.Token)
	tokenReader := token.NewReadModel(storage.Token, storage.TokenHash, jwts)

	userService := user.NewService(user.DefaultHasher, storage.User)

	requestService := actionrequest.NewService(storage.ActionRequest, jwts, verifier, userService)
	requestReader := actionrequest.NewReadModel(storage.ActionRequest)

	// Command bus with every write-side handler registered
	commands := cqrs.New()
	if err := commands.Register(token.CommandCreateEmailVerificationToken, issuer.HandleCreateEmailVerificationToken); err != nil {
		return nil, err
	}
	if err := commands.Register(actionrequest.CommandUpdateActionRequestStatus, requestService.HandleUpdateStatus); err != nil {
		return nil, err
	}

	// Publish boundary hook: verification links are minted into the
	// created-token event, never stored
	token.RegisterVerificationLinkEnricher(events, jwts)

	// Sagas close the loops between the aggregates
	saga.NewTokenSaga(commands, log).Register(events)
	saga.NewActionRequestSaga(commands, log).Register(events)

	mux := handlers.NewRouter(handlers.Services{
		TokenIssuer:        issuer,
		TokenReader:        tokenReader,
		ActionRequests:     requestService,
		ActionRequestsView: requestReader,
		Users:              userService,
	}, log)

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    mux,
	}, nil
}

// newStorage wires the configured backend mix.
// Postgres keeps the durable aggregates (tokens, users), redis keeps the
// transient ones (hash correlations, action requests). The memory
// backend runs the whole thing in-process for local development.
func newStorage(ctx context.Context, c *Config, client *redis.Client, events *eventbus.Bus) (repository.Storage, error) {
	if c.Storage == "memory" {
		return memory.NewStorage(events), nil
	}

	pool, err := postgres.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return repository.Storage{}, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	return repository.Storage{
		Token:         &postgres.TokenRepo{DB: pool, Events: events},
		User:          &postgres.UserRepo{DB: pool, Events: events},
		TokenHash:     cache.NewTokenHashRepo(client),
		ActionRequest: cache.NewActionRequestRepo(client, events),
	}, nil
}

// Run starts http server and closes gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.ListenAddr,
		Handler: s.Handler,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); err == context.DeadlineExceeded {
			slog.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		slog.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	slog.Info("Starting server", "address", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed

	return err
}
