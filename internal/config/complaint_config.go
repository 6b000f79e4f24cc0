package config

import "time"

const (
	// Reference codes
	ReferencePrefix     = "NITF"
	ReferenceSuffixLen  = 6
	ReferenceMaxRetries = 3

	// Ratings
	MinRating = 1
	MaxRating = 5

	// Analytics buckets
	DefaultCategory = "other"
	UnknownStatus   = "unknown"

	// Record locks
	LockTTL        = 5 * time.Second
	LockRetryDelay = 25 * time.Millisecond

	// Actor recorded in complaint logs when the staff caller is anonymous
	StaffActor = "staff"
)

// ComplaintCategories lists the accepted complaint categories in display order.
var ComplaintCategories = []string{
	"delay",
	"officer_behavior",
	"technical_issue",
	"other",
}

// ComplaintStatuses lists the accepted complaint statuses in workflow order.
var ComplaintStatuses = []string{
	"pending",
	"in-progress",
	"resolved",
	"escalated",
}
