package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/routelink-api/internal/models"
	"github.com/noah-isme/routelink-api/pkg/export"
	appErrors "github.com/noah-isme/routelink-api/pkg/errors"
)

type stubTripSource struct {
	trips     []models.Trip
	err       error
	requested []string
}

func (s *stubTripSource) TripsOn(ctx context.Context, date string) ([]models.Trip, bool, error) {
	s.requested = append(s.requested, date)
	return s.trips, false, s.err
}

type memFileStorage struct {
	saved   map[string][]byte
	saveErr error
	pruned  time.Duration
}

func (m *memFileStorage) Save(name string, data []byte) (string, error) {
	if m.saveErr != nil {
		return "", m.saveErr
	}
	m.saved[name] = data
	return "/exports/" + name, nil
}

func (m *memFileStorage) Prune(maxAge time.Duration) ([]string, error) {
	m.pruned = maxAge
	return nil, nil
}

func sampleTrips() []models.Trip {
	at := "09:30"
	date := models.NewDate(2025, time.March, 10)
	route := models.Route{ID: 1, SlotNo: "A1", EndPoint: "Library", MajorStops: "Gate 2,Gate 5", Time: &at, TransportType: "Bus", NoOfPeople: 4}
	return []models.Trip{
		{AssignmentID: 1, TravelDate: date, Route: route},
		{AssignmentID: 2, TravelDate: date, Route: route, Link: &models.Link{ID: 1, Name: "Asha", DropPoint: "Main Gate", Phone: "9876543210", CourseYear: "2nd Year", Branch: "CSE"}},
	}
}

func TestRosterTable(t *testing.T) {
	table := RosterTable(models.NewDate(2025, time.March, 10), sampleTrips())
	assert.Equal(t, "Trips on 10 Mar 2025", table.Title)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, []string{"1", "A1", "Library", "Gate 2,Gate 5", "09:30", "Bus", "4", "", "", "", "", ""}, table.Rows[0])
	assert.Equal(t, "Asha", table.Rows[1][7])
	assert.Equal(t, "CSE", table.Rows[1][11])
}

func TestExportServiceCSV(t *testing.T) {
	store := &memFileStorage{saved: map[string][]byte{}}
	svc := NewExportService(&stubTripSource{trips: sampleTrips()}, store, nil)

	res, err := svc.ExportTrips(context.Background(), "2025-03-10", "CSV")
	require.NoError(t, err)
	assert.Equal(t, export.FormatCSV, res.Format)
	assert.Equal(t, 2, res.Rows)
	assert.True(t, strings.HasPrefix(res.Name, "trips_2025-03-10_"))
	assert.True(t, strings.HasSuffix(res.Name, ".csv"))
	assert.Equal(t, store.saved[res.Name], res.Data)
	assert.True(t, strings.HasPrefix(string(res.Data), "Assignment,Slot,End Point"))
}

func TestExportServicePDF(t *testing.T) {
	store := &memFileStorage{saved: map[string][]byte{}}
	svc := NewExportService(&stubTripSource{trips: sampleTrips()}, store, nil)

	res, err := svc.ExportTrips(context.Background(), "2025-03-10", "pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", res.ContentType)
	assert.True(t, bytes.HasPrefix(res.Data, []byte("%PDF-")))
}

func TestExportServiceErrors(t *testing.T) {
	store := &memFileStorage{saved: map[string][]byte{}}
	svc := NewExportService(&stubTripSource{}, store, nil)

	_, err := svc.ExportTrips(context.Background(), "2025-03-10", "xlsx")
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	failing := NewExportService(&stubTripSource{err: errors.New("disk I/O error")}, store, nil)
	_, err = failing.ExportTrips(context.Background(), "2025-03-10", "csv")
	assert.EqualError(t, err, "disk I/O error")

	store.saveErr = errors.New("read-only file system")
	_, err = svc.ExportTrips(context.Background(), "2025-03-10", "csv")
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
	assert.Empty(t, store.saved)
}

func TestExportServiceCleanupDefault(t *testing.T) {
	store := &memFileStorage{saved: map[string][]byte{}}
	svc := NewExportService(&stubTripSource{}, store, nil)
	_, err := svc.Cleanup(0)
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, store.pruned)
}

func TestExportServiceRejectsBadDateBeforeLoading(t *testing.T) {
	source := &stubTripSource{trips: sampleTrips()}
	store := &memFileStorage{saved: map[string][]byte{}}
	svc := NewExportService(source, store, nil)

	_, err := svc.ExportTrips(context.Background(), "10/03/2025", "csv")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Equal(t, "must be YYYY-MM-DD", appErr.Details["date"])
	assert.Empty(t, source.requested)
	assert.Empty(t, store.saved)

	_, err = svc.ExportTrips(context.Background(), "2025-03-10", "csv")
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-03-10"}, source.requested)
}
