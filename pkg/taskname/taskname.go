package taskname

const (
	// Fundraising tasks
	DonationSweepPending = "donation:sweep:pending"

	// Notification tasks
	NotificationDeliver = "notification:deliver"
)
