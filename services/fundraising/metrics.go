package fundraising

import "github.com/prometheus/client_golang/prometheus"

var (
	donationsSubmitted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fundraising",
		Name:      "donations_submitted_total",
		Help:      "Donations recorded as pending.",
	})

	donationsVerified = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fundraising",
		Name:      "donations_verified_total",
		Help:      "Donations moved out of pending, by resulting status.",
	}, []string{"status"})

	verifyConflicts = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fundraising",
		Name:      "verify_conflicts_total",
		Help:      "Verification attempts that lost to an earlier decision.",
	})

	activitiesCompleted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fundraising",
		Name:      "activities_completed_total",
		Help:      "Activities that reached their target.",
	})

	notificationFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fundraising",
		Name:      "notification_failures_total",
		Help:      "Notifications that could not be handed to the sink.",
	})
)

func init() {
	prometheus.MustRegister(
		donationsSubmitted,
		donationsVerified,
		verifyConflicts,
		activitiesCompleted,
		notificationFailures,
	)
}
