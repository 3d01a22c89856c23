package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// microsecond is the unit tick durations are recorded in.
const microsecond = time.Microsecond

// Tick writes one update-cycle tick measurement.
//
// This satisfies the update cycle's metrics sink: the write is
// non-blocking, batched and sent asynchronously, so it fits inside the
// tick budget.
//
// Parameters:
//   - duration: How long the tick body took
//   - overrun: Whether the tick overran the cycle period
//   - active: Number of Active controllers updated this tick
func (c *Client) Tick(duration time.Duration, overrun bool, active int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"update_cycle",
		map[string]string{
			"service": c.cfg.Org,
		},
		map[string]interface{}{
			"duration_us": duration / microsecond,
			"overrun":     overrun,
			"active":      active,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteSwitchLatency records the staging-to-application latency of one
// applied switch request.
//
// Parameters:
//   - strictness: The request's strictness policy
//   - latency: Time between staging and application
//   - started, stopped: Sizes of the applied start and stop sets
func (c *Client) WriteSwitchLatency(strictness string, latency time.Duration, started, stopped int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"switch_latency",
		map[string]string{
			"strictness": strictness,
		},
		map[string]interface{}{
			"latency_us": latency / microsecond,
			"started":    started,
			"stopped":    stopped,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}
