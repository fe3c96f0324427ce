package infra

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"escrow/internal/domain"
)

// Metrics turns escrow events into Prometheus series.
type Metrics struct {
	campaignsCreated prometheus.Counter
	activeCampaigns  prometheus.Gauge
	donations        prometheus.Counter
	donatedAmount    prometheus.Counter
	settlements      *prometheus.CounterVec
	feesCollected    prometheus.Counter
	paidOut          prometheus.Counter
	refunded         prometheus.Counter
	feeBps           prometheus.Gauge
}

// NewMetrics registers the escrow collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{
		campaignsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "escrow_campaigns_created_total",
			Help: "campaigns registered",
		}),
		activeCampaigns: factory.NewGauge(prometheus.GaugeOpts{
			Name: "escrow_campaigns_active",
			Help: "campaigns not yet settled",
		}),
		donations: factory.NewCounter(prometheus.CounterOpts{
			Name: "escrow_donations_total",
			Help: "donations recorded",
		}),
		donatedAmount: factory.NewCounter(prometheus.CounterOpts{
			Name: "escrow_donated_amount_total",
			Help: "sum of donations in the smallest currency unit",
		}),
		settlements: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "escrow_settlements_total",
			Help: "terminal settlements by outcome",
		}, []string{"outcome"}),
		feesCollected: factory.NewCounter(prometheus.CounterOpts{
			Name: "escrow_fees_collected_total",
			Help: "platform fees paid out",
		}),
		paidOut: factory.NewCounter(prometheus.CounterOpts{
			Name: "escrow_beneficiary_paid_total",
			Help: "amount paid to beneficiaries",
		}),
		refunded: factory.NewCounter(prometheus.CounterOpts{
			Name: "escrow_refunded_total",
			Help: "amount refunded to donors",
		}),
		feeBps: factory.NewGauge(prometheus.GaugeOpts{
			Name: "escrow_platform_fee_bps",
			Help: "current platform fee in basis points",
		}),
	}
	m.feeBps.Set(domain.DefaultFeeBps)
	return m
}

// Publish implements domain.EventPublisher.
func (m *Metrics) Publish(_ context.Context, event domain.Event) error {
	m.Observe(event)
	return nil
}

// Observe updates the series for one event. Replayed history goes through here too so
// gauges are correct after a restart.
func (m *Metrics) Observe(event domain.Event) {
	switch p := event.Payload.(type) {
	case domain.CampaignCreated:
		m.campaignsCreated.Inc()
		m.activeCampaigns.Inc()
	case domain.DonationMade:
		m.donations.Inc()
		m.donatedAmount.Add(float64(p.Amount))
	case domain.CampaignFinalized:
		m.activeCampaigns.Dec()
		m.settlements.WithLabelValues(string(domain.OutcomeDistributed)).Inc()
		m.feesCollected.Add(float64(p.Fee))
		m.paidOut.Add(float64(p.BeneficiaryAmount))
	case domain.CampaignCancelled:
		m.activeCampaigns.Dec()
		m.settlements.WithLabelValues(string(domain.OutcomeRefunded)).Inc()
		m.refunded.Add(float64(p.TotalRefunded))
	case domain.PlatformFeeUpdated:
		m.feeBps.Set(float64(p.New))
	}
}
