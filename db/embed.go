// Package db provides the embedded database schema.
package db

import _ "embed"

// Schema contains the DDL for all relational tables. The statements are
// idempotent (IF NOT EXISTS) and safe to run on every startup.
//
//go:embed migrations/001_schema.sql
var Schema string
