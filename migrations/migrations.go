// Package migrations embebe el esquema SQL para golang-migrate (source iofs).
package migrations

import "embed"

// FS contiene los archivos NNNNNN_nombre.{up,down}.sql.
//
//go:embed *.sql
var FS embed.FS
