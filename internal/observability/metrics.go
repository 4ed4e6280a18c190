package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TransitionsTotal counts executed wall transitions by display and type.
	TransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidwall_transitions_total",
		Help: "Total number of executed transitions, by display and transition type.",
	}, []string{"display", "type"})

	// SlotRetriesTotal counts stream retry attempts by display.
	SlotRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidwall_slot_retries_total",
		Help: "Total number of stream retry attempts, by display.",
	}, []string{"display"})

	// LocalFallbacksTotal counts escalations from stream to local playback.
	LocalFallbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidwall_local_fallbacks_total",
		Help: "Total number of slots escalated from stream to local playback, by display.",
	}, []string{"display"})

	// HealthKicksTotal counts slots re-kicked by the periodic stream health check.
	HealthKicksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidwall_health_kicks_total",
		Help: "Total number of slots restarted by the stream health check, by display.",
	}, []string{"display"})

	// SlotsPlaying tracks the current number of playing slots per display.
	SlotsPlaying = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "vidwall_slots_playing",
		Help: "Current number of slots in a playing state, by display.",
	}, []string{"display"})

	// RegistryStreams tracks the number of streams known to the source registry.
	RegistryStreams = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vidwall_registry_streams",
		Help: "Number of stream URLs known to the source registry.",
	})

	// RegistryLocalFiles tracks the number of local files known to the source registry.
	RegistryLocalFiles = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vidwall_registry_local_files",
		Help: "Number of local library files known to the source registry.",
	})
)

// RecordTransition increments the transition counter for a display.
func RecordTransition(displayID, transition string) {
	TransitionsTotal.WithLabelValues(displayID, transition).Inc()
}

// RecordSlotRetry increments the stream retry counter for a display.
func RecordSlotRetry(displayID string) {
	SlotRetriesTotal.WithLabelValues(displayID).Inc()
}

// RecordLocalFallback increments the local fallback counter for a display.
func RecordLocalFallback(displayID string) {
	LocalFallbacksTotal.WithLabelValues(displayID).Inc()
}

// RecordHealthKick increments the health check restart counter for a display.
func RecordHealthKick(displayID string) {
	HealthKicksTotal.WithLabelValues(displayID).Inc()
}

// SetSlotsPlaying sets the playing slot gauge for a display.
func SetSlotsPlaying(displayID string, count float64) {
	SlotsPlaying.WithLabelValues(displayID).Set(count)
}

// SetRegistrySizes updates the registry content gauges.
func SetRegistrySizes(streams, localFiles int) {
	RegistryStreams.Set(float64(streams))
	RegistryLocalFiles.Set(float64(localFiles))
}
