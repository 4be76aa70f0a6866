package models

// Assignment joins a travel date with one route and at most one link.
type Assignment struct {
	ID         int64  `db:"id" json:"id"`
	TravelDate Date   `db:"travel_date" json:"travel_date"`
	RouteID    int64  `db:"route_id" json:"route_id"`
	LinkID     *int64 `db:"link_id" json:"link_id,omitempty"`
}

// Trip is the resolved view of an assignment.
type Trip struct {
	AssignmentID int64 `json:"assignment_id"`
	TravelDate   Date  `json:"travel_date"`
	Route        Route `json:"route"`
	Link         *Link `json:"link"`
}

// RecentSummary lists the newest routes and links.
type RecentSummary struct {
	Routes []Route `json:"routes"`
	Links  []Link  `json:"links"`
}

// DayCount is the number of assignments stored for a single date.
type DayCount struct {
	TravelDate Date `db:"travel_date" json:"date"`
	Count      int  `db:"total" json:"assignments"`
}

// DayOverview describes one day of a month grid.
type DayOverview struct {
	Date        Date   `json:"date"`
	Assignments int    `json:"assignments"`
	Holiday     bool   `json:"holiday"`
	HolidayName string `json:"holiday_name,omitempty"`
}

// MonthOverview is the calendar grid for a month.
type MonthOverview struct {
	Year  int           `json:"year"`
	Month int           `json:"month"`
	Days  []DayOverview `json:"days"`
}

// Holiday is a non-working date produced by the holiday source.
type Holiday struct {
	Date Date   `json:"date"`
	Name string `json:"name"`
}

// AssignmentResult reports the outcome of an assign call.
type AssignmentResult struct {
	AssignmentID int64 `json:"assignment_id"`
	// Created is false when the identical assignment already existed.
	Created bool `json:"created"`
}

// ScheduledRoute is returned by create-route-for-date.
type ScheduledRoute struct {
	Route        Route `json:"route"`
	AssignmentID int64 `json:"assignment_id"`
}

// AttachedLink is returned by attach-link-to-route.
type AttachedLink struct {
	Link         Link  `json:"link"`
	AssignmentID int64 `json:"assignment_id"`
}
