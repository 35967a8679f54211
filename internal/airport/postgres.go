package airport

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

const waypointQuery = `SELECT ident, name, latitude, longitude, elevation_m, is_airport
	FROM waypoints
	WHERE elevation_m IS NOT NULL`

// LoadPostgres reads the waypoint table once. Lookups never hit the database:
// they run under the blackboard lock and must not block on I/O.
func LoadPostgres(ctx context.Context, dsn string) ([]Airport, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("airport: open database: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("airport: ping database: %w", err)
	}

	rows, err := db.QueryContext(ctx, waypointQuery)
	if err != nil {
		return nil, fmt.Errorf("airport: query waypoints: %w", err)
	}
	defer rows.Close()

	var out []Airport
	for rows.Next() {
		var a Airport
		var name sql.NullString
		if err := rows.Scan(&a.Ident, &name, &a.Location.LatDeg, &a.Location.LonDeg, &a.ElevationM, &a.IsAirport); err != nil {
			return nil, fmt.Errorf("airport: scan waypoint: %w", err)
		}
		a.Name = name.String
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("airport: read waypoints: %w", err)
	}
	return out, nil
}
