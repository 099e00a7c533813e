package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore runs RecordStore operations through GORM. Conditions are built
// from clause.Eq so column names are quoted and values bound as parameters.
//
// The *gorm.DB should be opened with TranslateError enabled so unique key
// violations surface as ErrConflict.
type GormStore struct {
	db *gorm.DB
}

// NewGorm wraps an open database.
func NewGorm(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Ping checks the underlying connection.
func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return translate(err)
	}
	return translate(sqlDB.PingContext(ctx))
}

func (s *GormStore) Insert(ctx context.Context, t *Table, values []string) error {
	if err := t.checkValues(values); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Table(t.Name).Create(record(t, values)).Error
	return conflictOr(t, err)
}

func (s *GormStore) Exists(ctx context.Context, t *Table, p Predicate) (bool, error) {
	if err := p.validate(t); err != nil {
		return false, err
	}
	n, err := count(where(s.db.WithContext(ctx).Table(t.Name), p))
	if err != nil {
		return false, translate(err)
	}
	return n > 0, nil
}

func (s *GormStore) QueryAll(ctx context.Context, t *Table, p Predicate) ([]Row, error) {
	if err := p.validate(t); err != nil {
		return nil, err
	}
	return scan(t, where(s.db.WithContext(ctx).Table(t.Name), p))
}

func (s *GormStore) GetOne(ctx context.Context, t *Table, p Predicate) (Row, error) {
	if err := p.validate(t); err != nil {
		return Row{}, err
	}
	rows, err := scan(t, where(s.db.WithContext(ctx).Table(t.Name), p).Limit(1))
	if err != nil {
		return Row{}, err
	}
	if len(rows) == 0 {
		return Row{}, ErrNotFound
	}
	return rows[0], nil
}

func (s *GormStore) GetField(ctx context.Context, t *Table, p Predicate, field string) (string, error) {
	if t.Index(field) < 0 {
		return "", fmt.Errorf("%w: %s has no field %q", ErrInvalidPredicate, t.Name, field)
	}
	row, err := s.GetOne(ctx, t, p)
	if err != nil {
		return "", err
	}
	return row.Get(field), nil
}

func (s *GormStore) Update(ctx context.Context, t *Table, p Predicate, set ...Assignment) (int64, error) {
	if err := p.validate(t); err != nil {
		return 0, err
	}
	if err := validateAssignments(t, set); err != nil {
		return 0, err
	}
	changes := make(map[string]interface{}, len(set))
	for _, a := range set {
		changes[a.Field] = a.Value
	}
	res := where(s.db.WithContext(ctx).Table(t.Name), p).Updates(changes)
	if res.Error != nil {
		return 0, conflictOr(t, res.Error)
	}
	return res.RowsAffected, nil
}

func (s *GormStore) Delete(ctx context.Context, t *Table, p Predicate) (int64, error) {
	if err := p.validate(t); err != nil {
		return 0, err
	}
	res := where(s.db.WithContext(ctx).Table(t.Name), p).Delete(map[string]interface{}{})
	if res.Error != nil {
		return 0, translate(res.Error)
	}
	return res.RowsAffected, nil
}

func (s *GormStore) InsertUnless(ctx context.Context, t *Table, values []string, guards ...Predicate) error {
	if err := t.checkValues(values); err != nil {
		return err
	}
	for _, g := range guards {
		if err := g.validate(t); err != nil {
			return err
		}
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkGuards(tx, t, guards); err != nil {
			return err
		}
		return tx.Table(t.Name).Create(record(t, values)).Error
	})
	return conflictOr(t, err)
}

func (s *GormStore) Replace(ctx context.Context, t *Table, p Predicate, values []string, guards ...Predicate) (int64, error) {
	if err := p.validate(t); err != nil {
		return 0, err
	}
	if err := t.checkValues(values); err != nil {
		return 0, err
	}
	for _, g := range guards {
		if err := g.validate(t); err != nil {
			return 0, err
		}
	}
	var replaced int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := where(tx.Table(t.Name), p).Delete(map[string]interface{}{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		if err := checkGuards(tx, t, guards); err != nil {
			return err
		}
		if err := tx.Table(t.Name).Create(record(t, values)).Error; err != nil {
			return err
		}
		replaced = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, conflictOr(t, err)
	}
	return replaced, nil
}

func where(q *gorm.DB, p Predicate) *gorm.DB {
	for _, c := range p.conds {
		q = q.Where(clause.Eq{Column: clause.Column{Name: c.Field}, Value: c.Value})
	}
	return q
}

func count(q *gorm.DB) (int64, error) {
	var n int64
	err := q.Count(&n).Error
	return n, err
}

func checkGuards(tx *gorm.DB, t *Table, guards []Predicate) error {
	for i, g := range guards {
		n, err := count(where(tx.Table(t.Name), g))
		if err != nil {
			return err
		}
		if n > 0 {
			return &ConflictError{Table: t.Name, Guard: i}
		}
	}
	return nil
}

func record(t *Table, values []string) map[string]interface{} {
	rec := make(map[string]interface{}, len(values))
	for i, f := range t.Fields {
		rec[f.Name] = values[i]
	}
	return rec
}

func scan(t *Table, q *gorm.DB) ([]Row, error) {
	rows, err := q.Select(t.Columns()).Rows()
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		raw := make([]sql.NullString, len(t.Fields))
		dest := make([]interface{}, len(raw))
		for i := range raw {
			dest[i] = &raw[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, translate(err)
		}
		values := make([]string, len(raw))
		for i, v := range raw {
			if v.Valid {
				values[i] = v.String
			} else {
				values[i] = Absent
			}
		}
		out = append(out, Row{table: t, values: values})
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err)
	}
	return out, nil
}

func conflictOr(t *Table, err error) error {
	if err == nil {
		return nil
	}
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return &ConflictError{Table: t.Name, Guard: -1}
	}
	return translate(err)
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	if unavailable(err) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return err
}

func unavailable(err error) bool {
	switch {
	case errors.Is(err, mysql.ErrInvalidConn),
		errors.Is(err, driver.ErrBadConn),
		errors.Is(err, sql.ErrConnDone),
		errors.Is(err, context.DeadlineExceeded):
		return true
	}
	// database/sql does not export its closed-handle error
	if strings.Contains(err.Error(), "sql: database is closed") {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	return pgconn.Timeout(err)
}
