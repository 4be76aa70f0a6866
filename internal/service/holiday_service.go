package service

import (
	"math/rand"
	"sort"
	"time"

	"github.com/noah-isme/routelink-api/internal/models"
)

const (
	holidaysPerYear    = 11
	campusHolidayLabel = "Campus Holiday"
)

var fixedHolidays = []struct {
	month time.Month
	day   int
	name  string
}{
	{time.January, 26, "Republic Day"},
	{time.May, 1, "Labour Day"},
	{time.August, 15, "Independence Day"},
	{time.October, 2, "Gandhi Jayanti"},
	{time.December, 25, "Christmas"},
}

// HolidayService generates the yearly holiday list. The output is a pure
// function of (seed, year).
type HolidayService struct {
	seed int64
}

// NewHolidayService constructs a HolidayService.
func NewHolidayService(seed int64) *HolidayService {
	return &HolidayService{seed: seed}
}

// ForYear returns the holidays of year sorted by date.
func (s *HolidayService) ForYear(year int) []models.Holiday {
	rng := rand.New(rand.NewSource(s.seed + int64(year)))

	byDate := make(map[string]models.Holiday, holidaysPerYear)
	for _, h := range fixedHolidays {
		d := models.NewDate(year, h.month, h.day)
		byDate[d.String()] = models.Holiday{Date: d, Name: h.name}
	}

	for len(byDate) < holidaysPerYear {
		month := time.Month(rng.Intn(12) + 1)
		day := rng.Intn(daysIn(year, month)) + 1
		d := models.NewDate(year, month, day)
		if _, ok := byDate[d.String()]; ok {
			continue
		}
		byDate[d.String()] = models.Holiday{Date: d, Name: campusHolidayLabel}
	}

	out := make([]models.Holiday, 0, len(byDate))
	for _, h := range byDate {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date.Time) })
	return out
}

// Lookup indexes the holidays of year by ISO date.
func (s *HolidayService) Lookup(year int) map[string]string {
	holidays := s.ForYear(year)
	out := make(map[string]string, len(holidays))
	for _, h := range holidays {
		out[h.Date.String()] = h.Name
	}
	return out
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
