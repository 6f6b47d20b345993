package segments

// Status is the terminal state of a segment after a pass.
type Status string

const (
	// StatusCreated means the segment did not exist and was created with a new master.
	StatusCreated Status = "created"
	// StatusModified means the segment's master was missing or deleted and was re-pointed.
	StatusModified Status = "modified"
	// StatusUntouched means the segment already had a healthy master.
	StatusUntouched Status = "untouched"
)

// String implements fmt.Stringer.
func (s Status) String() string {
	return string(s)
}

// Valid reports whether s is one of the terminal states.
func (s Status) Valid() bool {
	switch s {
	case StatusCreated, StatusModified, StatusUntouched:
		return true
	}
	return false
}
