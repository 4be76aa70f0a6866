package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/routelink-api/internal/models"
)

const routeColumns = "id, slot_no, end_point, major_stops, time, transport_type, no_of_people"

// RouteRepository persists route slots.
type RouteRepository struct {
	db *sqlx.DB
}

// NewRouteRepository constructs a route repository.
func NewRouteRepository(db *sqlx.DB) *RouteRepository {
	return &RouteRepository{db: db}
}

// Create inserts a route and stores the generated identifier on it.
func (r *RouteRepository) Create(ctx context.Context, route *models.Route) error {
	query := r.db.Rebind(`INSERT INTO routes (slot_no, end_point, major_stops, time, transport_type, no_of_people)
VALUES (?, ?, ?, ?, ?, ?) RETURNING id`)
	if err := r.db.GetContext(ctx, &route.ID, query,
		route.SlotNo, route.EndPoint, route.MajorStops, nullableString(route.Time), route.TransportType, route.NoOfPeople,
	); err != nil {
		return fmt.Errorf("create route: %w", err)
	}
	return nil
}

// FindByID fetches a route. sql.ErrNoRows is returned unwrapped when it does not exist.
func (r *RouteRepository) FindByID(ctx context.Context, id int64) (*models.Route, error) {
	query := r.db.Rebind(fmt.Sprintf(`SELECT %s FROM routes WHERE id = ?`, routeColumns))
	var route models.Route
	if err := r.db.GetContext(ctx, &route, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find route: %w", err)
	}
	return &route, nil
}

// List returns one page of routes in creation order together with the total count.
func (r *RouteRepository) List(ctx context.Context, filter models.ListFilter) ([]models.Route, int, error) {
	limit, offset := pageWindow(filter)
	query := fmt.Sprintf(`SELECT %s FROM routes ORDER BY id %s LIMIT %d OFFSET %d`, routeColumns, idOrder(filter), limit, offset)
	routes := []models.Route{}
	if err := r.db.SelectContext(ctx, &routes, query); err != nil {
		return nil, 0, fmt.Errorf("list routes: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM routes`); err != nil {
		return nil, 0, fmt.Errorf("count routes: %w", err)
	}
	return routes, total, nil
}

// Recent returns the newest routes.
func (r *RouteRepository) Recent(ctx context.Context, limit int) ([]models.Route, error) {
	query := fmt.Sprintf(`SELECT %s FROM routes ORDER BY id DESC LIMIT %d`, routeColumns, limit)
	routes := []models.Route{}
	if err := r.db.SelectContext(ctx, &routes, query); err != nil {
		return nil, fmt.Errorf("recent routes: %w", err)
	}
	return routes, nil
}

func nullableString(v *string) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullableID(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
