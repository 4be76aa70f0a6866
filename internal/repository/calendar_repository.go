package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/routelink-api/internal/models"
	"github.com/noah-isme/routelink-api/pkg/database"
)

// queryer is satisfied by both *sqlx.DB and *sqlx.Tx.
type queryer interface {
	sqlx.QueryerContext
	Rebind(query string) string
}

// CalendarRepository persists date/route/link assignments.
type CalendarRepository struct {
	db *sqlx.DB
}

// NewCalendarRepository constructs a calendar repository.
func NewCalendarRepository(db *sqlx.DB) *CalendarRepository {
	return &CalendarRepository{db: db}
}

// FindOrCreate stores the assignment unless the identical (date, route, link) triple
// already exists, in which case the existing identifier is copied onto it. The
// boolean reports whether a new row was written.
func (r *CalendarRepository) FindOrCreate(ctx context.Context, a *models.Assignment) (bool, error) {
	created := false
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		id, err := r.findID(ctx, tx, a)
		if err == nil {
			a.ID = id
			return nil
		}
		if err != sql.ErrNoRows {
			return err
		}

		query := tx.Rebind(`INSERT INTO calendar (travel_date, route_id, link_id) VALUES (?, ?, ?) RETURNING id`)
		if err := tx.GetContext(ctx, &a.ID, query, a.TravelDate.String(), a.RouteID, nullableID(a.LinkID)); err != nil {
			return fmt.Errorf("create assignment: %w", err)
		}
		created = true
		return nil
	})
	if err == nil {
		return created, nil
	}

	// Another writer stored the same triple between our lookup and insert.
	if database.IsUniqueViolation(err) {
		id, findErr := r.findID(ctx, r.db, a)
		if findErr == nil {
			a.ID = id
			return false, nil
		}
	}
	return false, err
}

func (r *CalendarRepository) findID(ctx context.Context, q queryer, a *models.Assignment) (int64, error) {
	var linkKey int64
	if a.LinkID != nil {
		linkKey = *a.LinkID
	}
	query := q.Rebind(`SELECT id FROM calendar WHERE travel_date = ? AND route_id = ? AND COALESCE(link_id, 0) = ? LIMIT 1`)
	var id int64
	if err := sqlx.GetContext(ctx, q, &id, query, a.TravelDate.String(), a.RouteID, linkKey); err != nil {
		if err == sql.ErrNoRows {
			return 0, err
		}
		return 0, fmt.Errorf("find assignment: %w", err)
	}
	return id, nil
}

type tripRow struct {
	AssignmentID  int64       `db:"assignment_id"`
	TravelDate    models.Date `db:"travel_date"`
	RouteID       int64       `db:"route_id"`
	SlotNo        string      `db:"slot_no"`
	EndPoint      string      `db:"end_point"`
	MajorStops    string      `db:"major_stops"`
	Time          *string     `db:"time"`
	TransportType string      `db:"transport_type"`
	NoOfPeople    int         `db:"no_of_people"`
	LinkID        *int64      `db:"link_id"`
	LinkName      *string     `db:"link_name"`
	DropPoint     *string     `db:"drop_point"`
	Phone         *string     `db:"phone"`
	CourseYear    *string     `db:"course_year"`
	Branch        *string     `db:"branch"`
}

func (row tripRow) toTrip() models.Trip {
	trip := models.Trip{
		AssignmentID: row.AssignmentID,
		TravelDate:   row.TravelDate,
		Route: models.Route{
			ID:            row.RouteID,
			SlotNo:        row.SlotNo,
			EndPoint:      row.EndPoint,
			MajorStops:    row.MajorStops,
			Time:          row.Time,
			TransportType: row.TransportType,
			NoOfPeople:    row.NoOfPeople,
		},
	}
	if row.LinkID != nil {
		trip.Link = &models.Link{
			ID:         *row.LinkID,
			Name:       deref(row.LinkName),
			DropPoint:  deref(row.DropPoint),
			Phone:      deref(row.Phone),
			CourseYear: deref(row.CourseYear),
			Branch:     deref(row.Branch),
		}
	}
	return trip
}

// ListTrips resolves every assignment on date into its route and optional link,
// in assignment order.
func (r *CalendarRepository) ListTrips(ctx context.Context, date models.Date) ([]models.Trip, error) {
	query := r.db.Rebind(`SELECT c.id AS assignment_id, c.travel_date,
r.id AS route_id, r.slot_no, r.end_point, r.major_stops, r.time, r.transport_type, r.no_of_people,
l.id AS link_id, l.name AS link_name, l.drop_point, l.phone, l.course_year, l.branch
FROM calendar c
JOIN routes r ON r.id = c.route_id
LEFT JOIN links l ON l.id = c.link_id
WHERE c.travel_date = ?
ORDER BY c.id ASC`)
	var rows []tripRow
	if err := r.db.SelectContext(ctx, &rows, query, date.String()); err != nil {
		return nil, fmt.Errorf("list trips: %w", err)
	}
	trips := make([]models.Trip, 0, len(rows))
	for _, row := range rows {
		trips = append(trips, row.toTrip())
	}
	return trips, nil
}

// RoutesOn returns the distinct routes scheduled on date, newest first.
func (r *CalendarRepository) RoutesOn(ctx context.Context, date models.Date) ([]models.Route, error) {
	query := r.db.Rebind(`SELECT DISTINCT r.id, r.slot_no, r.end_point, r.major_stops, r.time, r.transport_type, r.no_of_people
FROM routes r
JOIN calendar c ON c.route_id = r.id
WHERE c.travel_date = ?
ORDER BY r.id DESC`)
	routes := []models.Route{}
	if err := r.db.SelectContext(ctx, &routes, query, date.String()); err != nil {
		return nil, fmt.Errorf("list routes on date: %w", err)
	}
	return routes, nil
}

// CountByRange returns per-day assignment counts for dates within [from, to].
func (r *CalendarRepository) CountByRange(ctx context.Context, from, to models.Date) ([]models.DayCount, error) {
	query := r.db.Rebind(`SELECT travel_date, COUNT(*) AS total FROM calendar
WHERE travel_date >= ? AND travel_date <= ?
GROUP BY travel_date
ORDER BY travel_date ASC`)
	counts := []models.DayCount{}
	if err := r.db.SelectContext(ctx, &counts, query, from.String(), to.String()); err != nil {
		return nil, fmt.Errorf("count assignments by day: %w", err)
	}
	return counts, nil
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
