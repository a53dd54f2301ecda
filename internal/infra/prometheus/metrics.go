package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counters for the proposal/booking pipeline, scraped via the metrics server.
var (
	ProposalsGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "meetflow_proposals_generated_total",
		Help: "Number of three-slot proposal sets generated for leads.",
	})

	ProposalFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "meetflow_proposal_failures_total",
		Help: "Number of proposal generations that found fewer than three free slots.",
	})

	BookingsConfirmed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "meetflow_bookings_confirmed_total",
		Help: "Number of meetings booked via a proposal link.",
	})

	BookingFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "meetflow_booking_failures_total",
		Help: "Number of failed booking confirmations by reason.",
	}, []string{"reason"})

	ShortLinkRedirects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "meetflow_short_link_redirects_total",
		Help: "Number of short-link redirects served.",
	})
)
