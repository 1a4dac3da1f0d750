package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/DRSN-tech/lookalike/internal/domain"
	"github.com/DRSN-tech/lookalike/internal/repository/converter"
	"github.com/DRSN-tech/lookalike/pkg/e"
	"github.com/DRSN-tech/lookalike/pkg/logger"
	"github.com/DRSN-tech/lookalike/pkg/vecenc"
	"github.com/jimlawless/whereami"
)

const schema = `
CREATE TABLE IF NOT EXISTS cache_meta (
    id          INTEGER PRIMARY KEY CHECK (id = 1),
    format      TEXT    NOT NULL,
    version     INTEGER NOT NULL,
    fingerprint TEXT    NOT NULL,
    dim         INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS category_averages (
    ordinal  INTEGER PRIMARY KEY,
    category TEXT    NOT NULL,
    style    TEXT    NOT NULL,
    count    INTEGER NOT NULL,
    mean     BLOB    NOT NULL,
    UNIQUE (category, style)
);
`

// CacheRepo хранит средние категорий в SQLite. Порядок категорий задаётся колонкой ordinal.
type CacheRepo struct {
	db     *sql.DB
	logger logger.Logger
}

// Open открывает (или создаёт) базу по пути path и применяет схему.
func Open(path string, logger logger.Logger) (*CacheRepo, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return &CacheRepo{db: db, logger: logger}, nil
}

// Close закрывает соединение с базой.
func (r *CacheRepo) Close() error {
	return r.db.Close()
}

// Save заменяет содержимое кэша в одной транзакции.
func (r *CacheRepo) Save(ctx context.Context, avgs *domain.CategoryAverages, fingerprint string) (err error) {
	const op = "sqlite.CacheRepo.Save"

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return e.Wrap(op, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM category_averages`); err != nil {
		return e.Wrap(op, err)
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO cache_meta(id, format, version, fingerprint, dim) VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			format = excluded.format,
			version = excluded.version,
			fingerprint = excluded.fingerprint,
			dim = excluded.dim
	`, converter.CacheFormat, converter.CacheVersion, fingerprint, avgs.Dim()); err != nil {
		return e.Wrap(op, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO category_averages(ordinal, category, style, count, mean) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return e.Wrap(op, err)
	}
	defer stmt.Close()

	for i, avg := range avgs.All() {
		if _, err = stmt.ExecContext(ctx, i, avg.Label.Category, avg.Label.Style, avg.Count, vecenc.Encode(avg.Mean)); err != nil {
			return e.Wrap(op, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return e.Wrap(op, err)
	}

	return nil
}

// Load читает кэш. Любая ошибка чтения или несовпадение формата/fingerprint — промах.
func (r *CacheRepo) Load(ctx context.Context, fingerprint string) (*domain.CategoryAverages, bool) {
	model, err := r.load(ctx)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			r.logger.Warnf("sqlite category cache unreadable, recomputing: %v", err)
		}
		return nil, false
	}

	if !converter.FingerprintMatches(fingerprint, model.Fingerprint) {
		r.logger.Infof("sqlite category cache is stale (dataset changed), recomputing")
		return nil, false
	}

	avgs, err := converter.ToDomain(model)
	if err != nil {
		r.logger.Warnf("sqlite category cache invalid, recomputing: %v", err)
		return nil, false
	}

	return avgs, true
}

func (r *CacheRepo) load(ctx context.Context) (*converter.CategoryAveragesModel, error) {
	var model converter.CategoryAveragesModel
	if err := r.db.QueryRowContext(ctx, `SELECT format, version, fingerprint, dim FROM cache_meta WHERE id = 1`).
		Scan(&model.Format, &model.Version, &model.Fingerprint, &model.Dim); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `SELECT category, style, count, mean FROM category_averages ORDER BY ordinal`)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			c    converter.CategoryAverageModel
			blob []byte
		)
		if err := rows.Scan(&c.Category, &c.Style, &c.Count, &blob); err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
		if c.Mean, err = vecenc.Decode(blob); err != nil {
			return nil, fmt.Errorf("%s_%s: %w", c.Category, c.Style, err)
		}
		model.Categories = append(model.Categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return &model, nil
}
