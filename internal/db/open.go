package db

import (
	"context"
	"log"

	"github.com/rajivgeraev/realty-api/internal/config"
	"github.com/rajivgeraev/realty-api/internal/db/gormstore"
	"github.com/rajivgeraev/realty-api/internal/store"
)

// OpenStore выбирает реализацию хранилища по DB_DRIVER и возвращает функцию закрытия
func OpenStore(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	switch cfg.DBDriver {
	case config.DriverGorm:
		s, err := gormstore.OpenPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return s, closer(s.Close), nil

	case config.DriverSQLite:
		s, err := gormstore.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, closer(s.Close), nil
	}

	pool, err := InitDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return NewStore(pool), pool.Close, nil
}

func closer(fn func() error) func() {
	return func() {
		if err := fn(); err != nil {
			log.Printf("Ошибка закрытия базы данных: %v", err)
		}
	}
}
