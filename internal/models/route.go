package models

// Route is a scheduled travel slot. Routes are append-only.
type Route struct {
	ID            int64   `db:"id" json:"id"`
	SlotNo        string  `db:"slot_no" json:"slot_no"`
	EndPoint      string  `db:"end_point" json:"end_point"`
	MajorStops    string  `db:"major_stops" json:"major_stops"`
	Time          *string `db:"time" json:"time,omitempty"`
	TransportType string  `db:"transport_type" json:"transport_type"`
	// NoOfPeople is advisory capacity; attached links are not counted against it.
	NoOfPeople int `db:"no_of_people" json:"no_of_people"`
}
