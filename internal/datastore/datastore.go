// Package datastore is a small table-oriented client over a Postgres pool.
//
// It mirrors the surface of a hosted backend SDK: pick a table, add filters,
// call one of the verbs. Every failure comes back as *Error carrying a
// human-readable message. Tables registered with WithRowOwner are scoped to
// the owner stored in the request context, the way row-level security
// policies scope a hosted table to the signed-in user.
package datastore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// ObserveFunc is called once per verb with the outcome of the remote call.
type ObserveFunc func(table, verb string, err error)

type Error struct {
	Message string
	Code    string
}

func (e *Error) Error() string {
	return e.Message
}

func wrap(err error) error {
	if err == nil {
		return nil
	}
	var storeErr *Error
	if errors.As(err, &storeErr) {
		return storeErr
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return &Error{Message: pgErr.Message, Code: pgErr.Code}
	}
	return &Error{Message: err.Error()}
}

func rowSecurityError(table string) *Error {
	return &Error{
		Message: fmt.Sprintf("new row violates row-level security policy for table %q", table),
		Code:    "42501",
	}
}

type Client struct {
	db      Querier
	owners  map[string]string
	observe ObserveFunc
}

type Option func(*Client)

// WithRowOwner scopes every verb on table to rows whose column equals the
// context owner.
func WithRowOwner(table, column string) Option {
	return func(c *Client) {
		c.owners[table] = column
	}
}

func WithObserver(fn ObserveFunc) Option {
	return func(c *Client) {
		c.observe = fn
	}
}

func New(db Querier, opts ...Option) *Client {
	c := &Client{
		db:     db,
		owners: make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) From(table string) *Query {
	return &Query{client: c, table: table}
}

func (c *Client) done(table, verb string, err error) error {
	err = wrap(err)
	if c.observe != nil {
		c.observe(table, verb, err)
	}
	return err
}

type contextKey int

const (
	ownerKey contextKey = iota
	serviceKey
)

// WithOwner marks ctx as acting on behalf of userID.
func WithOwner(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ownerKey, userID)
}

// AsService marks ctx as a trusted background caller that bypasses row owners.
func AsService(ctx context.Context) context.Context {
	return context.WithValue(ctx, serviceKey, true)
}

func Owner(ctx context.Context) (string, bool) {
	owner, ok := ctx.Value(ownerKey).(string)
	return owner, ok && owner != ""
}

func isService(ctx context.Context) bool {
	service, _ := ctx.Value(serviceKey).(bool)
	return service
}

type filter struct {
	column string
	op     string
	value  any
}

type Query struct {
	client    *Client
	table     string
	filters   []filter
	orderBy   string
	ascending bool
}

func (q *Query) Eq(column string, value any) *Query {
	q.filters = append(q.filters, filter{column: column, op: "=", value: value})
	return q
}

func (q *Query) Gte(column string, value any) *Query {
	q.filters = append(q.filters, filter{column: column, op: ">=", value: value})
	return q
}

func (q *Query) Lte(column string, value any) *Query {
	q.filters = append(q.filters, filter{column: column, op: "<=", value: value})
	return q
}

func (q *Query) Order(column string, ascending bool) *Query {
	q.orderBy = column
	q.ascending = ascending
	return q
}

// scope returns the filters to apply for ctx. denied is true when the table is
// owner-scoped and ctx carries no owner.
func (q *Query) scope(ctx context.Context) (filters []filter, denied bool) {
	column, scoped := q.client.owners[q.table]
	if !scoped || isService(ctx) {
		return q.filters, false
	}
	owner, ok := Owner(ctx)
	if !ok {
		return nil, true
	}
	filters = make([]filter, 0, len(q.filters)+1)
	filters = append(filters, q.filters...)
	return append(filters, filter{column: column, op: "=", value: owner}), false
}

// checkOwner rejects writes that would place a row outside the caller's scope.
func (q *Query) checkOwner(ctx context.Context, values map[string]any, required bool) error {
	column, scoped := q.client.owners[q.table]
	if !scoped || isService(ctx) {
		return nil
	}
	owner, ok := Owner(ctx)
	value, present := values[column]
	if !present {
		if required || !ok {
			return rowSecurityError(q.table)
		}
		return nil
	}
	if !ok || value != owner {
		return rowSecurityError(q.table)
	}
	return nil
}

func ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func sortedColumns(values map[string]any) []string {
	columns := make([]string, 0, len(values))
	for column := range values {
		columns = append(columns, column)
	}
	sort.Strings(columns)
	return columns
}

func where(filters []filter, args []any) (string, []any) {
	if len(filters) == 0 {
		return "", args
	}
	clauses := make([]string, 0, len(filters))
	for _, f := range filters {
		args = append(args, f.value)
		clauses = append(clauses, fmt.Sprintf("%s %s $%d", ident(f.column), f.op, len(args)))
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (q *Query) selectSQL(filters []filter) (string, []any) {
	clause, args := where(filters, nil)
	sql := "SELECT * FROM " + ident(q.table) + clause
	if q.orderBy != "" {
		direction := "DESC"
		if q.ascending {
			direction = "ASC"
		}
		sql += fmt.Sprintf(" ORDER BY %s %s", ident(q.orderBy), direction)
	}
	return sql, args
}

// SelectAll runs the query and maps every row onto T by its db tags.
func SelectAll[T any](ctx context.Context, q *Query) ([]T, error) {
	filters, denied := q.scope(ctx)
	if denied {
		return []T{}, q.client.done(q.table, "select", nil)
	}

	sql, args := q.selectSQL(filters)
	rows, err := q.client.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, q.client.done(q.table, "select", err)
	}

	items, err := pgx.CollectRows(rows, pgx.RowToStructByName[T])
	if err != nil {
		return nil, q.client.done(q.table, "select", err)
	}
	return items, q.client.done(q.table, "select", nil)
}

func (q *Query) Insert(ctx context.Context, values map[string]any) error {
	if err := q.checkOwner(ctx, values, true); err != nil {
		return q.client.done(q.table, "insert", err)
	}

	sql, args := q.insertSQL(values)
	_, err := q.client.db.Exec(ctx, sql, args...)
	return q.client.done(q.table, "insert", err)
}

// Upsert inserts values or, when conflictColumn already exists, overwrites the
// remaining columns of that row. On owner-scoped tables a conflicting row owned
// by someone else is left untouched and the call fails with the row-level
// security error.
func (q *Query) Upsert(ctx context.Context, values map[string]any, conflictColumn string) error {
	if err := q.checkOwner(ctx, values, true); err != nil {
		return q.client.done(q.table, "upsert", err)
	}

	sql, args := q.insertSQL(values)
	var sets []string
	column, scoped := q.client.owners[q.table]
	guarded := scoped && !isService(ctx)
	for _, column := range sortedColumns(values) {
		if column == conflictColumn {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", ident(column), ident(column)))
	}
	if len(sets) == 0 {
		sql += fmt.Sprintf(" ON CONFLICT (%s) DO NOTHING", ident(conflictColumn))
	} else {
		sql += fmt.Sprintf(" ON CONFLICT (%s) DO UPDATE SET %s", ident(conflictColumn), strings.Join(sets, ", "))
		if guarded {
			sql += fmt.Sprintf(" WHERE %s.%s = EXCLUDED.%s", ident(q.table), ident(column), ident(column))
		}
	}

	tag, err := q.client.db.Exec(ctx, sql, args...)
	if err == nil && guarded && len(sets) > 0 && tag.RowsAffected() == 0 {
		err = rowSecurityError(q.table)
	}
	return q.client.done(q.table, "upsert", err)
}

func (q *Query) insertSQL(values map[string]any) (string, []any) {
	columns := sortedColumns(values)
	names := make([]string, len(columns))
	params := make([]string, len(columns))
	args := make([]any, len(columns))
	for i, column := range columns {
		names[i] = ident(column)
		params[i] = fmt.Sprintf("$%d", i+1)
		args[i] = values[column]
	}
	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		ident(q.table), strings.Join(names, ", "), strings.Join(params, ", "))
	return sql, args
}

// Update overwrites the given columns on every matching row and reports how
// many rows changed. Matching nothing is not an error.
func (q *Query) Update(ctx context.Context, values map[string]any) (int64, error) {
	if len(q.filters) == 0 {
		return 0, q.client.done(q.table, "update", &Error{Message: "UPDATE requires a WHERE clause", Code: "21000"})
	}
	if err := q.checkOwner(ctx, values, false); err != nil {
		return 0, q.client.done(q.table, "update", err)
	}
	filters, denied := q.scope(ctx)
	if denied {
		return 0, q.client.done(q.table, "update", nil)
	}

	columns := sortedColumns(values)
	sets := make([]string, len(columns))
	args := make([]any, 0, len(columns)+len(filters))
	for i, column := range columns {
		args = append(args, values[column])
		sets[i] = fmt.Sprintf("%s = $%d", ident(column), len(args))
	}
	clause, args := where(filters, args)
	sql := "UPDATE " + ident(q.table) + " SET " + strings.Join(sets, ", ") + clause

	tag, err := q.client.db.Exec(ctx, sql, args...)
	if err != nil {
		return 0, q.client.done(q.table, "update", err)
	}
	return tag.RowsAffected(), q.client.done(q.table, "update", nil)
}

// Delete removes every matching row and reports how many were removed.
func (q *Query) Delete(ctx context.Context) (int64, error) {
	if len(q.filters) == 0 {
		return 0, q.client.done(q.table, "delete", &Error{Message: "DELETE requires a WHERE clause", Code: "21000"})
	}
	filters, denied := q.scope(ctx)
	if denied {
		return 0, q.client.done(q.table, "delete", nil)
	}

	clause, args := where(filters, nil)
	tag, err := q.client.db.Exec(ctx, "DELETE FROM "+ident(q.table)+clause, args...)
	if err != nil {
		return 0, q.client.done(q.table, "delete", err)
	}
	return tag.RowsAffected(), q.client.done(q.table, "delete", nil)
}
