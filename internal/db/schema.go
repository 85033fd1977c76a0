package db

import (
	"database/sql"
	_ "embed"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

// Lookup is the outcome of the last lookup of a document.
type Lookup struct {
	DocumentType   string
	DocumentNumber string
	Message        string
	LookedUpAt     int64
}

type MedicationAuthorization struct {
	ID                  int64
	DocumentType        string
	DocumentNumber      string
	AuthorizationNumber string
	Dispensed           sql.NullBool
	Position            int64
}

type LineItem struct {
	AuthorizationID int64
	Position        int64
	Product         string
	Quantity        int64
}
