package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/routelink-api/internal/models"
	"github.com/noah-isme/routelink-api/pkg/export"
	appErrors "github.com/noah-isme/routelink-api/pkg/errors"
)

// DisplayDateLayout renders dates for people, e.g. "10 Mar 2025".
const DisplayDateLayout = "02 Jan 2006"

var rosterColumns = []string{
	"Assignment", "Slot", "End Point", "Major Stops", "Time", "Transport", "Capacity",
	"Traveler", "Drop Point", "Phone", "Course/Year", "Branch",
}

type tripSource interface {
	TripsOn(ctx context.Context, date string) ([]models.Trip, bool, error)
}

type fileStorage interface {
	Save(name string, data []byte) (string, error)
	Prune(maxAge time.Duration) ([]string, error)
}

// ExportResult describes a rendered roster.
type ExportResult struct {
	Name        string
	Path        string
	Format      export.Format
	ContentType string
	Rows        int
	Data        []byte
}

// ExportService renders the trips of a date and keeps a copy on disk.
type ExportService struct {
	trips     tripSource
	storage   fileStorage
	renderers map[export.Format]export.Renderer
	logger    *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(trips tripSource, storage fileStorage, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		trips:   trips,
		storage: storage,
		renderers: map[export.Format]export.Renderer{
			export.FormatCSV: export.NewCSVExporter(),
			export.FormatPDF: export.NewPDFExporter(),
		},
		logger: logger,
	}
}

// ExportTrips renders the roster for date in the requested format.
func (s *ExportService) ExportTrips(ctx context.Context, date, format string) (*ExportResult, error) {
	f, err := export.ParseFormat(strings.ToLower(strings.TrimSpace(format)))
	if err != nil {
		return nil, appErrors.Validation(err, "format must be csv or pdf", map[string]string{"format": "must be csv or pdf"})
	}

	parsed, err := parseTravelDate(date)
	if err != nil {
		return nil, err
	}
	trips, _, err := s.trips.TripsOn(ctx, parsed.String())
	if err != nil {
		return nil, err
	}

	table := RosterTable(parsed, trips)
	data, err := s.renderers[f].Render(table)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster")
	}

	name := fmt.Sprintf("trips_%s_%s.%s", parsed, uuid.NewString()[:8], f)
	path, err := s.storage.Save(name, data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store roster")
	}

	s.logger.Info("roster exported", zap.String("date", parsed.String()), zap.String("format", string(f)), zap.Int("rows", len(trips)), zap.String("path", path))
	return &ExportResult{
		Name:        name,
		Path:        path,
		Format:      f,
		ContentType: f.ContentType(),
		Rows:        len(trips),
		Data:        data,
	}, nil
}

// Cleanup removes stored rosters older than maxAge.
func (s *ExportService) Cleanup(maxAge time.Duration) ([]string, error) {
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	return s.storage.Prune(maxAge)
}

// RosterTable lays trips out one row per assignment. Link columns are blank for
// a route with no traveler attached.
func RosterTable(date models.Date, trips []models.Trip) export.Table {
	rows := make([][]string, 0, len(trips))
	for _, trip := range trips {
		r := trip.Route
		row := []string{
			strconv.FormatInt(trip.AssignmentID, 10),
			r.SlotNo,
			r.EndPoint,
			r.MajorStops,
			deref(r.Time),
			r.TransportType,
			strconv.Itoa(r.NoOfPeople),
			"", "", "", "", "",
		}
		if l := trip.Link; l != nil {
			copy(row[7:], []string{l.Name, l.DropPoint, l.Phone, l.CourseYear, l.Branch})
		}
		rows = append(rows, row)
	}
	return export.Table{
		Title:   "Trips on " + date.Format(DisplayDateLayout),
		Columns: rosterColumns,
		Rows:    rows,
	}
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
