// Package db reads the city datasets from PostgreSQL.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/paulmach/orb"

	"corner-ranker/internal/city"
	"corner-ranker/internal/dataset"
)

func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

func Ping(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}

// Source serves the datasets from the buildings and agent_trips tables.
type Source struct {
	DB *sql.DB
}

var _ dataset.Source = (*Source)(nil)

// max_people falls back to the peak of the finite people samples.
const buildingsQuery = `
SELECT COALESCE(building_id::text, ''),
       COALESCE(lng, 'NaN'::float8),
       COALESCE(lat, 'NaN'::float8),
       COALESCE(
         NULLIF(max_people, 0),
         (SELECT max(x) FROM unnest(people) AS x
          WHERE x NOT IN ('NaN'::float8, 'Infinity'::float8, '-Infinity'::float8)),
         0)
FROM buildings
ORDER BY building_id`

func (s *Source) Buildings(ctx context.Context) ([]city.Building, error) {
	rows, err := s.DB.QueryContext(ctx, buildingsQuery)
	if err != nil {
		return nil, fmt.Errorf("query buildings: %w", err)
	}
	defer rows.Close()

	var out []city.Building
	for rows.Next() {
		var b city.Building
		var lng, lat float64
		if err := rows.Scan(&b.ID, &lng, &lat, &b.MaxPeople); err != nil {
			return nil, err
		}
		b.Coordinates = orb.Point{lng, lat}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Trips rows are read as JSON objects and decoded with the same rules as
// the file datasets.
const tripsQuery = `
SELECT row_to_json(t)::text
FROM (
  SELECT agent_id, path, timestamps, place_from, place_to
  FROM agent_trips
  ORDER BY agent_id
) t`

func (s *Source) Trips(ctx context.Context) ([]city.AgentTrip, error) {
	rows, err := s.DB.QueryContext(ctx, tripsQuery)
	if err != nil {
		return nil, fmt.Errorf("query agent_trips: %w", err)
	}
	defer rows.Close()

	buf := []byte{'['}
	n := 0
	for rows.Next() {
		var row []byte
		if err := rows.Scan(&row); err != nil {
			return nil, err
		}
		if n > 0 {
			buf = append(buf, ',')
		}
		buf = append(buf, row...)
		n++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	buf = append(buf, ']')

	trips, err := dataset.DecodeTrips(buf)
	if err != nil {
		return nil, fmt.Errorf("agent_trips: %w", err)
	}
	return trips, nil
}
