package db

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

const upsertLookup = `
insert into lookup (document_type, document_number, message, looked_up_at)
values (?, ?, ?, ?)
on conflict (document_type, document_number) do update set
    message = excluded.message,
    looked_up_at = excluded.looked_up_at
`

type UpsertLookupParams struct {
	DocumentType   string
	DocumentNumber string
	Message        string
	LookedUpAt     int64
}

func (q *Queries) UpsertLookup(ctx context.Context, arg UpsertLookupParams) error {
	_, err := q.db.ExecContext(ctx, upsertLookup,
		arg.DocumentType,
		arg.DocumentNumber,
		arg.Message,
		arg.LookedUpAt,
	)
	return err
}

const getLookup = `
select document_type, document_number, message, looked_up_at from lookup
where document_type = ? and document_number = ?
`

type DocumentParams struct {
	DocumentType   string
	DocumentNumber string
}

func (q *Queries) GetLookup(ctx context.Context, arg DocumentParams) (Lookup, error) {
	row := q.db.QueryRowContext(ctx, getLookup, arg.DocumentType, arg.DocumentNumber)
	var i Lookup
	err := row.Scan(
		&i.DocumentType,
		&i.DocumentNumber,
		&i.Message,
		&i.LookedUpAt,
	)
	return i, err
}

const deleteLineItems = `
delete from line_item where authorization_id in (
    select id from medication_authorization
    where document_type = ? and document_number = ?
)
`

func (q *Queries) DeleteLineItems(ctx context.Context, arg DocumentParams) error {
	_, err := q.db.ExecContext(ctx, deleteLineItems, arg.DocumentType, arg.DocumentNumber)
	return err
}

const deleteAuthorizations = `
delete from medication_authorization
where document_type = ? and document_number = ?
`

func (q *Queries) DeleteAuthorizations(ctx context.Context, arg DocumentParams) error {
	_, err := q.db.ExecContext(ctx, deleteAuthorizations, arg.DocumentType, arg.DocumentNumber)
	return err
}

const createAuthorization = `
insert into medication_authorization (document_type, document_number, authorization_number, dispensed, position)
values (?, ?, ?, ?, ?)
returning id
`

type CreateAuthorizationParams struct {
	DocumentType        string
	DocumentNumber      string
	AuthorizationNumber string
	Dispensed           sql.NullBool
	Position            int64
}

func (q *Queries) CreateAuthorization(ctx context.Context, arg CreateAuthorizationParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, createAuthorization,
		arg.DocumentType,
		arg.DocumentNumber,
		arg.AuthorizationNumber,
		arg.Dispensed,
		arg.Position,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const createLineItem = `
insert into line_item (authorization_id, position, product, quantity)
values (?, ?, ?, ?)
`

func (q *Queries) CreateLineItem(ctx context.Context, arg LineItem) error {
	_, err := q.db.ExecContext(ctx, createLineItem,
		arg.AuthorizationID,
		arg.Position,
		arg.Product,
		arg.Quantity,
	)
	return err
}

const getAuthorizations = `
select id, document_type, document_number, authorization_number, dispensed, position
from medication_authorization
where document_type = ? and document_number = ?
order by position
`

func (q *Queries) GetAuthorizations(ctx context.Context, arg DocumentParams) ([]MedicationAuthorization, error) {
	rows, err := q.db.QueryContext(ctx, getAuthorizations, arg.DocumentType, arg.DocumentNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MedicationAuthorization
	for rows.Next() {
		var i MedicationAuthorization
		err := rows.Scan(
			&i.ID,
			&i.DocumentType,
			&i.DocumentNumber,
			&i.AuthorizationNumber,
			&i.Dispensed,
			&i.Position,
		)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getLineItems = `
select authorization_id, position, product, quantity from line_item
where authorization_id = ?
order by position
`

func (q *Queries) GetLineItems(ctx context.Context, authorizationID int64) ([]LineItem, error) {
	rows, err := q.db.QueryContext(ctx, getLineItems, authorizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []LineItem
	for rows.Next() {
		var i LineItem
		err := rows.Scan(
			&i.AuthorizationID,
			&i.Position,
			&i.Product,
			&i.Quantity,
		)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const setDispensed = `
update medication_authorization set dispensed = ?
where document_type = ? and document_number = ? and authorization_number = ?
`

type SetDispensedParams struct {
	Dispensed           bool
	DocumentType        string
	DocumentNumber      string
	AuthorizationNumber string
}

func (q *Queries) SetDispensed(ctx context.Context, arg SetDispensedParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, setDispensed,
		arg.Dispensed,
		arg.DocumentType,
		arg.DocumentNumber,
		arg.AuthorizationNumber,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
