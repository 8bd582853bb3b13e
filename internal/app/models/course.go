package models

// Course represents a course in the catalog. Capacity, prerequisites and the
// conflict group feed the allocation engine; assignments and waitlists are
// tracked per term.
type Course struct {
	ID          int64   `json:"id" db:"id"`
	Code        string  `json:"code" db:"code"`
	Title       string  `json:"title" db:"title"`
	Description *string `json:"description,omitempty" db:"description"` // Nullable
	Credits     int     `json:"credits" db:"credits"`
	Capacity    int     `json:"capacity" db:"capacity"`
	// ConflictGroup marks mutually-exclusive courses: two courses in the same
	// non-empty group may not be held simultaneously.
	ConflictGroup *string `json:"conflictGroup,omitempty" db:"conflict_group"`

	// Relations (populated when needed)
	Prerequisites []string `json:"prerequisites,omitempty"`
}
