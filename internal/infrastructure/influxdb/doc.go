// Package influxdb provides InfluxDB connectivity for Pilot Core.
//
// It wraps the official influxdb-client-go v2 library with Pilot Core
// conveniences: non-blocking batched writes, health checks, and helper
// methods for update-cycle telemetry.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    // InfluxDB is optional; log and continue without telemetry
//	}
//	defer client.Close()
//
//	// Record one update-cycle tick
//	client.Tick(850*time.Microsecond, false, 3)
//
// Writes are batched and flushed asynchronously. Use SetOnError to
// observe write failures.
package influxdb
