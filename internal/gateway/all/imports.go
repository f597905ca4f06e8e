// Package all wires every built-in gateway backend into the gateway factory.
//
// The package exists purely for side effects: importing it (even as a blank
// import) runs the init functions of each backend, which register their
// factories with the gateway package. After that, these kinds are available
// to gateway.Open:
//
//   - "postgres"  (dbadmin/internal/gateway/postgres)
//   - "sqlserver" (dbadmin/internal/gateway/sqlserver)
//   - "mysql"     (dbadmin/internal/gateway/mysql)
//   - "sqlite"    (dbadmin/internal/gateway/sqlite)
//
// Typical usage (cmd/dbadmin/main.go):
//
//	import _ "dbadmin/internal/gateway/all"
//
//	gw, err := gateway.Open(ctx, gateway.Config{Kind: cfg.DBDriver, DSN: cfg.ConnString()})
//
// A binary that needs only a subset of backends can import those packages
// directly instead.
package all

import (
	_ "dbadmin/internal/gateway/mysql"
	_ "dbadmin/internal/gateway/postgres"
	_ "dbadmin/internal/gateway/sqlite"
	_ "dbadmin/internal/gateway/sqlserver"
)
