package models

// Todo is the single stored entity. ID is assigned by the database on insert.
type Todo struct {
	ID        int64  `db:"id" json:"id"`
	Title     string `db:"title" json:"title"`
	Completed bool   `db:"completed" json:"completed"`
}

// Status selects a subset of todos for the filter endpoint.
type Status int

const (
	StatusAll Status = iota
	StatusCompleted
	StatusPending
)

// ParseStatus maps a path value to a Status. Anything other than
// "completed" or "pending" selects every todo.
func ParseStatus(s string) Status {
	switch s {
	case "completed":
		return StatusCompleted
	case "pending":
		return StatusPending
	default:
		return StatusAll
	}
}

func (s Status) String() string {
	switch s {
	case StatusCompleted:
		return "completed"
	case StatusPending:
		return "pending"
	default:
		return "all"
	}
}
