package postgres

import (
	"context"

	"dbadmin/internal/gateway"
)

// open is a test hook that points to Open by default. Tests may replace it
// to avoid real DB connections.
var open = Open

// init registers the "postgres" backend with the gateway factory, adapting
// gateway.Config to the package Config.
func init() {
	gateway.Register("postgres", func(ctx context.Context, cfg gateway.Config) (gateway.Gateway, error) {
		g, err := open(ctx, Config{DSN: cfg.DSN, SearchPath: cfg.SearchPath})
		if err != nil {
			return nil, err
		}
		return g, nil
	})
}
