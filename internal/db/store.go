package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"medauth-backend/internal/scrapers/portal"
)

// ErrNotFound means the document was never looked up.
var ErrNotFound = errors.New("lookup not found")

// Store persists the latest lookup of every document.
type Store struct {
	db     *sql.DB
	qry    *Queries
	makeTx MakeTx
}

// Open opens (creating if needed) the sqlite database at path and applies the schema.
func Open(ctx context.Context, path string) (Store, error) {
	sqlite, err := sql.Open("sqlite", path)
	if err != nil {
		return Store{}, fmt.Errorf("open %s: %w", path, err)
	}
	// every connection to ":memory:" is its own database
	sqlite.SetMaxOpenConns(1)

	_, err = sqlite.ExecContext(ctx, Schema)
	if err != nil {
		sqlite.Close()
		return Store{}, fmt.Errorf("apply schema: %w", err)
	}
	return Store{
		db:     sqlite,
		qry:    New(sqlite),
		makeTx: NewMakeTx(sqlite),
	}, nil
}

// documentParams keys a document the same way lookups are keyed, surrounding
// whitespace is not part of a document number.
func documentParams(docType portal.DocumentType, docNumber string) DocumentParams {
	return DocumentParams{
		DocumentType:   string(docType),
		DocumentNumber: strings.TrimSpace(docNumber),
	}
}

func (s Store) Close() error {
	return s.db.Close()
}

// Save replaces whatever was stored for the document with the given result. The
// dispensed flag of an authorization that is still pending carries over.
func (s Store) Save(ctx context.Context, docType portal.DocumentType, docNumber string, result portal.Result, at time.Time) error {
	tx, discard, commit, err := s.makeTx(ctx)
	if err != nil {
		return err
	}
	defer discard()

	doc := documentParams(docType, docNumber)
	previous, err := tx.GetAuthorizations(ctx, doc)
	if err != nil {
		return fmt.Errorf("get authorizations: %w", err)
	}
	dispensedBefore := map[string]sql.NullBool{}
	for _, a := range previous {
		dispensedBefore[a.AuthorizationNumber] = a.Dispensed
	}

	err = tx.DeleteLineItems(ctx, doc)
	if err != nil {
		return fmt.Errorf("delete line items: %w", err)
	}
	err = tx.DeleteAuthorizations(ctx, doc)
	if err != nil {
		return fmt.Errorf("delete authorizations: %w", err)
	}
	err = tx.UpsertLookup(ctx, UpsertLookupParams{
		DocumentType:   doc.DocumentType,
		DocumentNumber: doc.DocumentNumber,
		Message:        result.Message.Key(),
		LookedUpAt:     at.Unix(),
	})
	if err != nil {
		return fmt.Errorf("upsert lookup: %w", err)
	}

	for i, record := range result.Records {
		dispensed := dispensedBefore[record.AuthorizationNumber]
		if record.Dispensed != nil {
			dispensed = sql.NullBool{Bool: *record.Dispensed, Valid: true}
		}
		id, err := tx.CreateAuthorization(ctx, CreateAuthorizationParams{
			DocumentType:        doc.DocumentType,
			DocumentNumber:      doc.DocumentNumber,
			AuthorizationNumber: record.AuthorizationNumber,
			Dispensed:           dispensed,
			Position:            int64(i),
		})
		if err != nil {
			return fmt.Errorf("create authorization %s: %w", record.AuthorizationNumber, err)
		}
		for j, item := range record.Items {
			err = tx.CreateLineItem(ctx, LineItem{
				AuthorizationID: id,
				Position:        int64(j),
				Product:         item.Product,
				Quantity:        int64(item.Quantity),
			})
			if err != nil {
				return fmt.Errorf("create line item: %w", err)
			}
		}
	}

	return commit()
}

// Load returns the stored result of a document and when it was looked up.
func (s Store) Load(ctx context.Context, docType portal.DocumentType, docNumber string) (portal.Result, time.Time, error) {
	doc := documentParams(docType, docNumber)
	lookup, err := s.qry.GetLookup(ctx, doc)
	if errors.Is(err, sql.ErrNoRows) {
		return portal.Result{}, time.Time{}, ErrNotFound
	}
	if err != nil {
		return portal.Result{}, time.Time{}, err
	}
	at := time.Unix(lookup.LookedUpAt, 0)

	message, ok := portal.MessageFromKey(lookup.Message)
	if !ok {
		return portal.Result{}, time.Time{}, fmt.Errorf("unknown message key %q", lookup.Message)
	}
	if message != portal.MessageNone {
		return portal.Result{Message: message}, at, nil
	}

	authorizations, err := s.qry.GetAuthorizations(ctx, doc)
	if err != nil {
		return portal.Result{}, time.Time{}, err
	}
	result := portal.Result{}
	for _, a := range authorizations {
		lineItems, err := s.qry.GetLineItems(ctx, a.ID)
		if err != nil {
			return portal.Result{}, time.Time{}, err
		}
		items := make([]portal.LineItem, 0, len(lineItems))
		for _, li := range lineItems {
			items = append(items, portal.LineItem{
				Product:  li.Product,
				Quantity: int(li.Quantity),
			})
		}

		record := portal.AuthorizationRecord{
			DocumentType:        docType,
			DocumentNumber:      doc.DocumentNumber,
			AuthorizationNumber: a.AuthorizationNumber,
			Items:               items,
		}
		if a.Dispensed.Valid {
			dispensed := a.Dispensed.Bool
			record.Dispensed = &dispensed
		}
		result.Records = append(result.Records, record)
	}
	return result, at, nil
}

// MarkDispensed records that an authorization was dispensed.
func (s Store) MarkDispensed(ctx context.Context, docType portal.DocumentType, docNumber, authorizationNumber string) error {
	doc := documentParams(docType, docNumber)
	n, err := s.qry.SetDispensed(ctx, SetDispensedParams{
		Dispensed:           true,
		DocumentType:        doc.DocumentType,
		DocumentNumber:      doc.DocumentNumber,
		AuthorizationNumber: strings.TrimSpace(authorizationNumber),
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: authorization %s of %s %s", ErrNotFound, authorizationNumber, docType, docNumber)
	}
	return nil
}
