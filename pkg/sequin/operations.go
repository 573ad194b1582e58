package sequin

import (
	"net/url"
	"strings"
)

// Operation describes one upstream endpoint. Path may contain an {id} placeholder.
type Operation struct {
	Name   string
	Method string
	Path   string
	// Unwrap replaces a top-level {"data": ...} envelope with its value.
	Unwrap bool
}

var (
	ListDatabases          = Operation{Name: "list_databases", Method: "GET", Path: "/api/postgres_databases?show_sensitive=true"}
	GetDatabase            = Operation{Name: "get_database", Method: "GET", Path: "/api/postgres_databases/{id}"}
	CreateDatabase         = Operation{Name: "create_database", Method: "POST", Path: "/api/postgres_databases", Unwrap: true}
	UpdateDatabase         = Operation{Name: "update_database", Method: "PUT", Path: "/api/postgres_databases/{id}", Unwrap: true}
	DeleteDatabase         = Operation{Name: "delete_database", Method: "DELETE", Path: "/api/postgres_databases/{id}"}
	TestDatabaseConnection = Operation{Name: "test_database_connection", Method: "POST", Path: "/api/postgres_databases/test_connection"}
	RefreshTables          = Operation{Name: "refresh_tables", Method: "POST", Path: "/api/postgres_databases/{id}/refresh_tables"}
	ListSinks              = Operation{Name: "list_sinks", Method: "GET", Path: "/api/sinks"}
	CreateSink             = Operation{Name: "create_sink", Method: "POST", Path: "/api/sinks"}
	CreateBackfill         = Operation{Name: "create_backfill", Method: "POST", Path: "/api/sinks/{id}/backfills"}

	// ping reuses the list endpoint without the sensitive flag.
	ping = Operation{Name: "ping", Method: "GET", Path: "/api/postgres_databases"}
)

// Operations lists every proxied operation. NewClient exports a metric series for each.
var Operations = []Operation{
	ListDatabases,
	GetDatabase,
	CreateDatabase,
	UpdateDatabase,
	DeleteDatabase,
	TestDatabaseConnection,
	RefreshTables,
	ListSinks,
	CreateSink,
	CreateBackfill,
}

// expand substitutes the escaped id into the path.
func (op Operation) expand(id string) string {
	return strings.ReplaceAll(op.Path, "{id}", url.PathEscape(id))
}
