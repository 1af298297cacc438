package tasks

import "time"

// Task Types
const (
	TaskTypeBalanceRefill       = "balance:refill"
	TaskTypeTransactionsArchive = "transactions:archive"
)

// Task Queues
const (
	QueueCritical = "critical" // Reserved for operator-triggered work
	QueueDefault  = "default"  // Auto refills
	QueueLow      = "low"      // Audit archive uploads
)

// Task Timeouts
const (
	TimeoutShort  = 1 * time.Minute
	TimeoutMedium = 5 * time.Minute
	TimeoutLong   = 30 * time.Minute
)

// Task Retry Settings
const (
	RetryMax     = 5
	RetryDefault = 3
	RetryMin     = 1
)

// RefillPayload asks for every refill due at At. A zero At means the time the task runs.
type RefillPayload struct {
	At time.Time `json:"at,omitempty"`
}

// ArchivePayload names the [Since, Until) window to archive. A zero window
// means the previous calendar day in the scheduler's timezone.
type ArchivePayload struct {
	Since time.Time `json:"since,omitempty"`
	Until time.Time `json:"until,omitempty"`
}
