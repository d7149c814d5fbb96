package store

import _ "embed"

// Schema is the catalog DDL. It is applied by the deployment pipeline and by
// the integration tests.
//
//go:embed schema.sql
var Schema string
