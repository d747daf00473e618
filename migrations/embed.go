// Package migrations embeds the goose SQL migrations for the credential and
// session stores.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
