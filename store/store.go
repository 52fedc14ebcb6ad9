package store

import (
	"database/sql"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/goccy/go-json"

	"github.com/keyhole-db/keyhole/types"
	"github.com/keyhole-db/keyhole/utils"
)

// Config locates a client-resident database file.
type Config struct {
	Path string `json:"path" validate:"required"`
	// Name is the logical database name reported to callers; defaults to the
	// file base name.
	Name string `json:"name"`
}

// Database is a client-resident collection of schema-less object stores kept
// in a single sqlite file. Records live as JSON documents addressed by a
// canonical key; declared indexes become sqlite expression indexes so a
// single-field range can be pushed down as a native read.
type Database struct {
	conn    *sqlx.DB
	name    string
	schemas *lru.Cache[string, *types.TableSchema]
}

const metaTable = "keyhole_tables"

func Open(config *Config) (*Database, error) {
	if err := utils.Validate(config); err != nil {
		return nil, fmt.Errorf("invalid store config: %w", err)
	}

	conn, err := sqlx.Open("sqlite", config.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database at %s: %w", config.Path, err)
	}
	// sqlite allows one writer; serialize access through a single conn
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec(fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		name TEXT PRIMARY KEY,
		key_path TEXT NOT NULL,
		auto_increment INTEGER NOT NULL,
		indexes TEXT NOT NULL
	)`, metaTable)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize store metadata: %w", err)
	}

	schemas, _ := lru.New[string, *types.TableSchema](64)

	name := config.Name
	if name == "" {
		name = config.Path
	}

	return &Database{conn: conn, name: name, schemas: schemas}, nil
}

func (d *Database) Name() string {
	return d.name
}

func (d *Database) Close() error {
	return d.conn.Close()
}

// Tables lists every object store in the database.
func (d *Database) Tables() ([]string, error) {
	names := []string{}
	if err := d.conn.Select(&names, fmt.Sprintf("SELECT name FROM %s ORDER BY name", metaTable)); err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	return names, nil
}

// CreateTable declares a new object store. An empty keyPath declares an
// unnamed key; autoIncrement only makes sense for unnamed keys.
func (d *Database) CreateTable(name string, keyPath []string, autoIncrement bool, indexes []string) (*Table, error) {
	if name == "" {
		return nil, fmt.Errorf("table name is required")
	}

	keyPathJSON, _ := json.Marshal(keyPath)
	indexJSON, _ := json.Marshal(indexes)
	if _, err := d.conn.Exec(
		fmt.Sprintf("INSERT INTO %s (name, key_path, auto_increment, indexes) VALUES (?, ?, ?, ?)", metaTable),
		name, string(keyPathJSON), autoIncrement, string(indexJSON),
	); err != nil {
		return nil, fmt.Errorf("failed to register table %s: %w", name, err)
	}

	if _, err := d.conn.Exec(fmt.Sprintf(`CREATE TABLE %s (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		pk TEXT NOT NULL UNIQUE,
		doc TEXT NOT NULL
	)`, dataTableIdent(name))); err != nil {
		return nil, fmt.Errorf("failed to create table %s: %w", name, err)
	}

	indexJobs := make([]func() error, 0, len(indexes))
	for _, field := range indexes {
		indexJobs = append(indexJobs, func() error {
			_, err := d.conn.Exec(fmt.Sprintf(
				"CREATE INDEX %s ON %s (json_extract(doc, %s))",
				quoteIdent("idx_"+name+"_"+field), dataTableIdent(name), quoteLiteral(jsonPath(field)),
			))
			return err
		})
	}
	if err := utils.ErrExec(indexJobs...); err != nil {
		return nil, fmt.Errorf("failed to create indexes on %s: %w", name, err)
	}

	d.schemas.Remove(name)
	return d.Table(name)
}

// Table opens a handle to an existing object store. The schema descriptor is
// constant for the lifetime of the handle and cached across opens.
func (d *Database) Table(name string) (*Table, error) {
	if schema, ok := d.schemas.Get(name); ok {
		return &Table{db: d, schema: schema}, nil
	}

	row := struct {
		Name          string `db:"name"`
		KeyPath       string `db:"key_path"`
		AutoIncrement bool   `db:"auto_increment"`
		Indexes       string `db:"indexes"`
	}{}
	err := d.conn.Get(&row, fmt.Sprintf("SELECT name, key_path, auto_increment, indexes FROM %s WHERE name = ?", metaTable), name)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("table %s does not exist", name)
	} else if err != nil {
		return nil, fmt.Errorf("failed to read schema for table %s: %w", name, err)
	}

	schema := &types.TableSchema{Table: name}
	if err := json.Unmarshal([]byte(row.KeyPath), &schema.PrimaryKey.KeyPath); err != nil {
		return nil, fmt.Errorf("corrupt key path for table %s: %w", name, err)
	}
	schema.PrimaryKey.AutoIncrement = row.AutoIncrement

	indexFields := []string{}
	if err := json.Unmarshal([]byte(row.Indexes), &indexFields); err != nil {
		return nil, fmt.Errorf("corrupt index list for table %s: %w", name, err)
	}
	for _, field := range indexFields {
		schema.Indexes = append(schema.Indexes, types.IndexDescriptor{Field: field})
	}

	d.schemas.Add(name, schema)
	return &Table{db: d, schema: schema}, nil
}

func dataTableIdent(name string) string {
	return quoteIdent("rec_" + name)
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// jsonPath renders a dot-path as a sqlite JSON1 path expression.
func jsonPath(field string) string {
	return "$." + field
}
