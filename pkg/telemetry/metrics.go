// Package telemetry provides Prometheus metric bundles for the trading core.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics counts execution engine activity.
type EngineMetrics struct {
	CommandsExecuted prometheus.Counter
	EventsHandled    prometheus.Counter
	EventsDropped    prometheus.Counter
}

// NewEngineMetrics creates and optionally registers the engine counters. A
// nil registerer leaves them unregistered, which tests use.
func NewEngineMetrics(reg prometheus.Registerer) *EngineMetrics {
	m := &EngineMetrics{
		CommandsExecuted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tradesim_engine_commands_executed_total",
			Help: "Total number of commands executed by the execution engine",
		}),
		EventsHandled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tradesim_engine_events_handled_total",
			Help: "Total number of events handled by the execution engine",
		}),
		EventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tradesim_engine_events_dropped_total",
			Help: "Total number of events dropped on the engine event path",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.CommandsExecuted, m.EventsHandled, m.EventsDropped)
	}
	return m
}

// VenueMetrics counts simulated venue activity.
type VenueMetrics struct {
	TicksProcessed prometheus.Counter
	FillsEmitted   prometheus.Counter
	OrdersExpired  prometheus.Counter
}

// NewVenueMetrics creates and optionally registers the venue counters.
func NewVenueMetrics(reg prometheus.Registerer) *VenueMetrics {
	m := &VenueMetrics{
		TicksProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tradesim_venue_ticks_processed_total",
			Help: "Total number of quote ticks processed by the simulated venue",
		}),
		FillsEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tradesim_venue_fills_emitted_total",
			Help: "Total number of fill events emitted by the simulated venue",
		}),
		OrdersExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tradesim_venue_orders_expired_total",
			Help: "Total number of orders expired by the simulated venue",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.TicksProcessed, m.FillsEmitted, m.OrdersExpired)
	}
	return m
}
