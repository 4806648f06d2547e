// @title           Community API
// @version         1.0
// @description     Identity, authorization and content endpoints for the community platform.
// @BasePath        /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/diggingyuhak/community-api/internal/api"
	"github.com/diggingyuhak/community-api/internal/api/handler"
	"github.com/diggingyuhak/community-api/internal/api/metrics"
	"github.com/diggingyuhak/community-api/internal/core/domain"
	"github.com/diggingyuhak/community-api/internal/core/policy"
	"github.com/diggingyuhak/community-api/internal/core/service"
	"github.com/diggingyuhak/community-api/internal/infrastructure/config"
	mongodb "github.com/diggingyuhak/community-api/internal/infrastructure/db/mongo"
	redisdb "github.com/diggingyuhak/community-api/internal/infrastructure/db/redis"
	"github.com/diggingyuhak/community-api/internal/infrastructure/queue"
	"github.com/diggingyuhak/community-api/internal/infrastructure/security"
	"github.com/diggingyuhak/community-api/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "community-api: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	envErr := godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty || cfg.Env == "development",
		Service: "community-api",
		Env:     cfg.Env,
	})
	if envErr != nil {
		log.Warn().Err(envErr).Msg("no .env file loaded")
	}

	// --- Storage ---
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := mongoClient.Disconnect(dctx); err != nil {
			log.Warn().Err(err).Msg("mongo disconnect")
		}
	}()

	rdb, err := redisdb.Connect(ctx, redisdb.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err != nil {
		return err
	}
	defer rdb.Close()

	users := mongodb.NewUserRepository(db)
	posts := mongodb.NewPostRepository(db)
	articles := mongodb.NewArticleRepository(db)
	if err := mongodb.EnsureIndexes(ctx, users, posts, articles); err != nil {
		return err
	}

	// --- Policy ---
	policyStore := redisdb.NewPolicyStore(rdb, logger.For("policy_store"))
	pol, err := loadPolicy(ctx, cfg, policyStore, log)
	if err != nil {
		return err
	}

	// --- Services ---
	hasher := security.NewBcryptHasher(cfg.Auth.BcryptCost, cfg.Auth.HashConcurrency)
	tokens := security.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.TokenTTL)

	viewService := service.NewViewService(redisdb.NewViewDedup(rdb), posts, articles, logger.For("views"))
	dispatcher := queue.NewDispatcher(cfg.Views.Workers, viewService, logger.For("dispatcher"))

	authService := service.NewAuthService(users, hasher, tokens, logger.For("auth"))
	userService := service.NewUserService(users, hasher, pol, policyStore, logger.For("users"))
	postService := service.NewPostService(posts, pol, dispatcher, logger.For("posts"))
	articleService := service.NewArticleService(articles, pol, dispatcher, logger.For("articles"))

	e := api.NewRouter(api.Deps{
		BasePath:   cfg.BasePath,
		Production: cfg.IsProduction(),
		Logger:     log,
		Policy:     pol,
		Auth:       authService,
		Users:      userService,
		Posts:      postService,
		Articles:   articleService,
		Checks: map[string]handler.Check{
			"mongodb": users.Ping,
			"redis":   func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		},
	})

	// --- Lifecycle ---
	g, gctx := errgroup.WithContext(ctx)

	dispatcher.Start(gctx)

	g.Go(func() error {
		err := policyStore.Subscribe(gctx, func(m domain.Matrix) {
			if err := pol.Replace(m); err != nil {
				log.Warn().Err(err).Msg("rejecting invalid policy broadcast")
				return
			}
			metrics.PolicyUpdatesTotal.WithLabelValues("broadcast").Inc()
			log.Info().Msg("permission matrix updated from broadcast")
		})
		if err != nil {
			// Losing the subscription only delays propagation; keep serving.
			log.Error().Err(err).Msg("policy subscription ended")
		}
		return nil
	})

	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return e.Shutdown(sctx)
	})

	err = g.Wait()
	dispatcher.Wait()
	return err
}

// loadPolicy builds the permission matrix: built-in defaults, then the YAML
// seed file, then whatever snapshot other instances persisted in Redis.
func loadPolicy(ctx context.Context, cfg *config.Config, store *redisdb.PolicyStore, log zerolog.Logger) (*policy.Policy, error) {
	var seed domain.Matrix
	if cfg.Policy.File != "" {
		m, err := config.LoadPolicyFile(cfg.Policy.File)
		if err != nil {
			return nil, err
		}
		seed = m
		log.Info().Str("file", cfg.Policy.File).Int("permissions", len(m)).Msg("policy seed loaded")
	}

	pol, err := policy.New(seed)
	if err != nil {
		return nil, fmt.Errorf("policy seed: %w", err)
	}

	stored, err := store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if stored != nil {
		if err := pol.Replace(pol.Matrix().Merge(stored)); err != nil {
			log.Warn().Err(err).Msg("ignoring invalid persisted policy")
		} else {
			metrics.PolicyUpdatesTotal.WithLabelValues("startup").Inc()
			log.Info().Msg("persisted permission matrix applied")
		}
	}
	return pol, nil
}
