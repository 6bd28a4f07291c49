package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Import is a successfully imported city dataset.
type Import struct {
	DBName     string
	ImportedAt time.Time
}

// LatestImport returns the newest dataset import whose database name
// matches city, read from public.dataset_imports on the meta database.
func LatestImport(ctx context.Context, meta *sql.DB, city string) (Import, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return Import{}, fmt.Errorf("city is required")
	}
	q := `
SELECT db_name, imported_at
FROM public.dataset_imports
WHERE status = 'success' AND db_name ILIKE '%' || $1 || '%'
ORDER BY imported_at DESC
LIMIT 1`
	var imp Import
	var name sql.NullString
	if err := meta.QueryRowContext(ctx, q, city).Scan(&name, &imp.ImportedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Import{}, fmt.Errorf("no dataset import for city like %q", city)
		}
		return Import{}, fmt.Errorf("query dataset_imports: %w", err)
	}
	if !name.Valid || name.String == "" {
		return Import{}, fmt.Errorf("empty db_name for city like %q", city)
	}
	imp.DBName = name.String
	return imp, nil
}

// OpenCity connects to the latest import for city, using dsn for the
// meta database and as the template for the city database.
func OpenCity(ctx context.Context, dsn, city string) (*sql.DB, Import, error) {
	meta, err := Open(dsn)
	if err != nil {
		return nil, Import{}, err
	}
	defer meta.Close()

	imp, err := LatestImport(ctx, meta, city)
	if err != nil {
		return nil, Import{}, err
	}
	cityDSN, err := WithDBName(dsn, imp.DBName)
	if err != nil {
		return nil, Import{}, err
	}
	db, err := Open(cityDSN)
	if err != nil {
		return nil, Import{}, err
	}
	if err := Ping(ctx, db); err != nil {
		db.Close()
		return nil, Import{}, fmt.Errorf("ping %s: %w", imp.DBName, err)
	}
	return db, imp, nil
}
