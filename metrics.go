package wasapi

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	framesRenderedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wasapi_frames_rendered_total",
			Help: "Total number of frames written to render buffers",
		},
	)

	framesCapturedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wasapi_frames_captured_total",
			Help: "Total number of frames read from capture buffers",
		},
	)

	silentBuffersTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wasapi_silent_buffers_total",
			Help: "Total number of capture buffers flagged as silent",
		},
	)

	discontinuitiesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wasapi_discontinuities_total",
			Help: "Total number of capture buffers flagged with a data discontinuity",
		},
	)

	eventTimeoutsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wasapi_event_timeouts_total",
			Help: "Total number of event waits that timed out",
		},
	)

	sessionEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wasapi_session_events_total",
			Help: "Total number of delivered session notifications by kind",
		},
		[]string{"event"},
	)
)

// RegisterMetrics registers the package counters with reg. Counters are maintained whether or
// not they are registered. Registering twice with the same registry is not an error.
func RegisterMetrics(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		framesRenderedTotal,
		framesCapturedTotal,
		silentBuffersTotal,
		discontinuitiesTotal,
		eventTimeoutsTotal,
		sessionEventsTotal,
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}

			return err
		}
	}

	return nil
}
