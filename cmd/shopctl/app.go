package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"time"

	"storefront-client/internal/application/storefront"
	"storefront-client/internal/domain/session"
	"storefront-client/internal/infra/memory"
	"storefront-client/internal/infrastructure/config"
	"storefront-client/internal/infrastructure/db"
	"storefront-client/internal/infrastructure/external/shopapi"
	"storefront-client/internal/infrastructure/notify"
	"storefront-client/internal/infrastructure/persistence/postgres"
	"storefront-client/internal/infrastructure/storage/yamlfile"
)

// notifyFlushTimeout 是結束前等待錯誤通知送出的上限。
const notifyFlushTimeout = 5 * time.Second

// app 組合 session、client 與各資源 API。
type app struct {
	cfg    config.Config
	out    io.Writer
	client *shopapi.Client
	shop   *storefront.Storefront
	db     *sql.DB
	unsub  func()
}

func newApp(ctx context.Context, cfg config.Config, out io.Writer, opts ...shopapi.Option) (*app, error) {
	a := &app{cfg: cfg, out: out}

	store, err := a.openStorage(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	sess, err := session.Open(ctx, store)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open session: %w", err)
	}
	a.unsub = sess.Subscribe(func(ev session.Event) {
		if ev.Type == session.EventInvalidated {
			fmt.Fprintln(a.out, "Session expired, please login again.")
		}
	})

	opts = append([]shopapi.Option{shopapi.WithNotifier(buildNotifier(cfg.Notifier))}, opts...)
	client, err := shopapi.New(shopapi.Config{
		BaseURL:         cfg.API.BaseURL,
		Timeout:         cfg.API.Timeout,
		AccessTokenTTL:  cfg.API.AccessTokenTTL,
		RefreshTokenTTL: cfg.API.RefreshTokenTTL,
		Endpoints: shopapi.Endpoints{
			Login:        cfg.API.Endpoints.Login,
			Register:     cfg.API.Endpoints.Register,
			Logout:       cfg.API.Endpoints.Logout,
			RefreshToken: cfg.API.Endpoints.RefreshToken,
		},
	}, sess, opts...)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.client = client
	a.shop = storefront.New(client)
	return a, nil
}

func (a *app) openStorage(ctx context.Context) (session.Storage, error) {
	switch a.cfg.Storage.Driver {
	case config.StorageMemory:
		return memory.NewStorage(), nil
	case config.StorageFile:
		return yamlfile.New(a.cfg.Storage.FilePath, a.cfg.Storage.Namespace)
	case config.StoragePostgres:
		pool, err := db.Connect(ctx, a.cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		if pool == nil {
			return nil, fmt.Errorf("storage driver postgres requires DB_DSN")
		}
		a.db = pool
		if err := db.RequireTable(ctx, pool, "client_storage"); err != nil {
			return nil, err
		}
		return postgres.NewSessionStorage(pool, a.cfg.Storage.Namespace), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", a.cfg.Storage.Driver)
	}
}

func buildNotifier(cfg config.NotifierConfig) notify.Notifier {
	notifiers := notify.Multi{notify.LogNotifier{Prefix: "shopctl"}}
	if cfg.Telegram.Enabled {
		notifiers = append(notifiers, notify.NewTelegramClient(cfg.Telegram.Token, cfg.Telegram.ChatID, "shopctl"))
	}
	return notifiers
}

func (a *app) Close() {
	if a.client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), notifyFlushTimeout)
		if err := a.client.Wait(ctx); err != nil {
			log.Printf("wait for notifications: %v", err)
		}
		cancel()
	}
	if a.unsub != nil {
		a.unsub()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			log.Printf("close database: %v", err)
		}
	}
}
