// Package db provides the embedded database schema and the demo catalog.
package db

import _ "embed"

// Schema contains the DDL statements for all application tables.
//
//go:embed migrations/001_schema.sql
var Schema string

// Products is the demo catalog shipped with the register. It is used when
// no catalog file or database is configured.
//
//go:embed seed/products.json
var Products []byte
