package models

// Link is a traveler record that can be attached to a route on a date.
type Link struct {
	ID         int64  `db:"id" json:"id"`
	Name       string `db:"name" json:"name"`
	DropPoint  string `db:"drop_point" json:"drop_point"`
	Phone      string `db:"phone" json:"phone"`
	CourseYear string `db:"course_year" json:"course_year"`
	Branch     string `db:"branch" json:"branch"`
}
