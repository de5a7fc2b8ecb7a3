package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/google/uuid"

	"github.com/tbxark/tallyentry/assist"
	"github.com/tbxark/tallyentry/command"
	"github.com/tbxark/tallyentry/session"
	"github.com/tbxark/tallyentry/store"
	rediscache "github.com/tbxark/tallyentry/store/redis"
	sqlitecache "github.com/tbxark/tallyentry/store/sqlite"
	"github.com/tbxark/tallyentry/tally"
)

// backend holds what every subcommand needs: the record spec and the store.
type backend struct {
	conf  *Config
	spec  *tally.Spec
	store *store.Local
	close func() error
}

func openBackend(conf *Config) (*backend, error) {
	if conf.Owner == "" {
		conf.Owner = uuid.NewString()
		slog.Warn("No owner configured, entries claimed in this run cannot be resumed by another run", "owner", conf.Owner)
	}
	spec, err := tally.NewSpec(conf.Election)
	if err != nil {
		return nil, err
	}

	var cache store.Cache[store.Entry]
	closer := func() error { return nil }
	switch conf.Store.Kind {
	case storeMemory:
		cache = store.NewMemoryCache[store.Entry]()
	case storeSQLite:
		c, err := sqlitecache.New[store.Entry](conf.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		cache, closer = c, c.Close
	case storeRedis:
		c, err := rediscache.New[store.Entry](conf.Store.RedisAddr,
			rediscache.WithPassword(conf.Store.RedisPassword),
			rediscache.WithDB(conf.Store.RedisDB),
		)
		if err != nil {
			return nil, err
		}
		cache, closer = c, c.Close
	default:
		return nil, fmt.Errorf("unknown store kind %q", conf.Store.Kind)
	}

	initial, err := sonic.Marshal(spec.NewRecord())
	if err != nil {
		_ = closer()
		return nil, fmt.Errorf("marshal initial record: %w", err)
	}
	local, err := store.NewLocal(cache, conf.Owner,
		store.WithValidator(tally.Validator),
		store.WithInitialData(initial),
		store.WithNamespace(conf.Store.Namespace),
	)
	if err != nil {
		_ = closer()
		return nil, err
	}
	slog.Debug("Store opened", "kind", conf.Store.Kind, "owner", conf.Owner)
	return &backend{conf: conf, spec: spec, store: local, close: closer}, nil
}

func (b *backend) Close() error {
	return b.close()
}

func (b *backend) session(recordID string, logger *slog.Logger) (*session.Session[tally.PollingStationResults], error) {
	return session.New[tally.PollingStationResults](recordID, b.conf.Owner, b.spec, b.store,
		session.WithLogger[tally.PollingStationResults](logger))
}

// claimed opens a session on recordID and claims it.
func (b *backend) claimed(ctx context.Context, recordID string, logger *slog.Logger) (*session.Session[tally.PollingStationResults], error) {
	s, err := b.session(recordID, logger)
	if err != nil {
		return nil, err
	}
	if err := s.Claim(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// helpers builds the command parser and, when a model is configured, the
// entry assistant. Without a model only keywords are understood.
func (b *backend) helpers(ctx context.Context) (command.Parser, *assist.Assistant, error) {
	local := command.NewLocalParser()
	if !b.conf.LLM.Enabled() {
		return local, nil, nil
	}
	cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:  b.conf.LLM.APIKey,
		Model:   b.conf.LLM.Model,
		BaseURL: b.conf.LLM.BaseURL,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create chat model: %w", err)
	}
	toolParser, err := command.NewToolParser(cm)
	if err != nil {
		return nil, nil, err
	}
	assistant, err := assist.New(cm)
	if err != nil {
		return nil, nil, err
	}
	return command.NewFallbackParser(local, toolParser), assistant, nil
}
