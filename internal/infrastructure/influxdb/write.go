package influxdb

import (
	"context"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteTemperature writes a thermostat temperature sample.
//
// This is the primary write path: the simulator and the telemetry ingest
// endpoint push every temperature change here when InfluxDB is enabled. The
// write is non-blocking; data is batched and sent asynchronously, so the
// context carries no deadline for the write itself.
//
// Example:
//
//	client.WriteTemperature(ctx, "bedroom/thermostat/wall-01", 21)
func (c *Client) WriteTemperature(_ context.Context, deviceID string, celsius float64) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	point := write.NewPoint(
		"temperature",
		map[string]string{
			"device_id": deviceID,
		},
		map[string]interface{}{
			"celsius": celsius,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
	return nil
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Used for measurements that don't fit the helper methods, such as the
// periodic system_stats gauge main writes:
//
//	client.WritePoint("system_stats",
//	    map[string]string{"service": "hearth"},
//	    map[string]interface{}{"devices": 10, "lights_on": 4})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}
