package sqlitecfg

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// Struct points at either a local sqlite file or a remote libsql
// database. Exactly one of File or Url should be set.
type Struct struct {
	File  string `json:"file"`
	Url   string `json:"url"`
	Token string `json:"token"`
}

func (config Struct) OpenDB(schema string) (*sql.DB, error) {
	if config.Url != "" {
		return config.openRemote(schema)
	}
	if config.File == "" {
		return nil, fmt.Errorf("a database path was not specified")
	}

	_, statErr := os.Stat(config.File)
	if os.IsNotExist(statErr) {
		f, err := os.Create(config.File)
		if err != nil {
			return nil, err
		}
		f.Close()
	}

	db, err := sql.Open("sqlite", config.File)
	if err != nil {
		return nil, err
	}
	// see this stackoverflow post for information on why the following
	// lines exist: https://stackoverflow.com/questions/35804884/sqlite-concurrent-writing-performance
	db.SetMaxOpenConns(1)
	_, err = db.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		return nil, err
	}

	return applySchema(db, schema)
}

func (config Struct) openRemote(schema string) (*sql.DB, error) {
	remote, err := url.Parse(config.Url)
	if err != nil {
		return nil, err
	}
	if config.Token != "" {
		query := remote.Query()
		query.Set("authToken", config.Token)
		remote.RawQuery = query.Encode()
	}
	db, err := sql.Open("libsql", remote.String())
	if err != nil {
		return nil, err
	}
	return applySchema(db, schema)
}

func applySchema(db *sql.DB, schema string) (*sql.DB, error) {
	if schema == "" {
		return db, nil
	}
	_, err := db.Exec(schema)
	if err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
