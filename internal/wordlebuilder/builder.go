package wordlebuilder

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/park285/Wordle-KakaoTalk-bot/internal/config"
	"github.com/park285/Wordle-KakaoTalk-bot/internal/identity"
	"github.com/park285/Wordle-KakaoTalk-bot/internal/metrics"
	"github.com/park285/Wordle-KakaoTalk-bot/internal/service/wordle"
	"github.com/park285/Wordle-KakaoTalk-bot/internal/store"
	"github.com/park285/Wordle-KakaoTalk-bot/internal/writelock"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Deps struct {
	Service *wordle.Service
	Repo    store.Repository
	Names   identity.DirectoryWriter
	Locker  writelock.Locker
	Redis   *redis.Client
}

// New builds the scoring stack from cfg. With REDIS_URL set, the writer lock
// and display-name directory live in Redis; otherwise both are in-process.
func New(ctx context.Context, cfg *config.AppConfig, rec *metrics.Recorder, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	repo, err := store.Open(ctx, store.Options{
		Backend:     cfg.StoreBackend,
		DatabaseURL: cfg.DatabaseURL,
		DBFile:      cfg.DBFile,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	deps := &Deps{Repo: repo}

	if strings.TrimSpace(cfg.RedisURL) != "" {
		opts, err := parseRedisURL(cfg.RedisURL)
		if err != nil {
			deps.Close()
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		rdb := redis.NewClient(opts)
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = rdb.Ping(pctx).Err()
		cancel()
		if err != nil {
			_ = rdb.Close()
			deps.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		deps.Redis = rdb
		deps.Locker = writelock.NewRedisLocker(rdb, time.Duration(cfg.WriteLockTTLSec)*time.Second)
		deps.Names = identity.NewRedisDirectory(rdb)
	} else {
		deps.Locker = writelock.NewLocalLocker()
		deps.Names = identity.NewMemoryDirectory()
	}

	table := identity.NewNameTable(nil)
	if path := strings.TrimSpace(cfg.NameTableFile); path != "" {
		table, err = identity.LoadNameTable(path)
		if err != nil {
			deps.Close()
			return nil, err
		}
	}
	logger.Info("name_table_loaded", zap.Int("entries", table.Len()), zap.String("version", table.Version()))

	svc, err := wordle.NewService(repo, identity.NewResolver(table, logger), deps.Locker, wordle.Config{
		Channel:       cfg.WordleRoom,
		Header:        cfg.WordleHeader,
		CommitRetries: cfg.CommitRetries,
	}, rec, logger)
	if err != nil {
		deps.Close()
		return nil, err
	}
	deps.Service = svc
	return deps, nil
}

func (d *Deps) Close() {
	if d == nil {
		return
	}
	if d.Repo != nil {
		_ = d.Repo.Close()
	}
	if d.Redis != nil {
		_ = d.Redis.Close()
	}
}

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	port := u.Port()
	if port == "" {
		port = "6379"
	}
	opts := &redis.Options{Addr: u.Hostname() + ":" + port, Username: u.User.Username()}
	opts.Password, _ = u.User.Password()
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redis db %q", p)
		}
		opts.DB = n
	}
	if u.Scheme == "rediss" {
		opts.TLSConfig = &tls.Config{ServerName: u.Hostname(), MinVersion: tls.VersionTLS12}
	}
	return opts, nil
}
