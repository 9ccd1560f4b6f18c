package repository

import (
	"context"

	"github.com/ghaggin/roadmap/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	LC     fx.Lifecycle
	Config *config.Config
	Log    *zap.Logger
}

// New picks Postgres when database.dsn is set and the JSON file otherwise.
func New(p Params) (Repository, error) {
	if dsn := p.Config.Database.DSN; dsn != "" {
		db, err := openPostgres(dsn)
		if err != nil {
			return nil, err
		}

		r := newPostgres(db)
		p.LC.Append(fx.Hook{
			OnStart: r.migrate,
			OnStop: func(context.Context) error {
				return db.Close()
			},
		})
		p.Log.Info("user repository: postgres")
		return r, nil
	}

	r := newJSON(p.Config.Database.UsersFile, p.Log)
	p.LC.Append(fx.Hook{
		OnStop: r.stop,
	})
	p.Log.Info("user repository: json", zap.String("path", p.Config.Database.UsersFile))
	return r, nil
}
