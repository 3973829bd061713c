package assignment

// AssignmentResult reports the outcome of a set-union assignment. Requested
// links that already existed are counted as skipped, never as errors.
type AssignmentResult struct {
	Assigned int `json:"assigned"`
	Skipped  int `json:"skipped"`
}

// RemovalResult reports how many links a removal actually deleted. Removing
// an absent link is a no-op.
type RemovalResult struct {
	Removed int `json:"removed"`
}
