// Package influxdb mirrors dispatched hub events into InfluxDB v2.
//
// The mirror is strictly optional: when disabled in config the hub runs
// with the flat-file event log alone, and every mirror failure after
// startup is contained to a log line. Writes go through the client
// library's non-blocking batched write API, so the dispatch path never
// waits on the network.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // mirror off, carry on
//	}
//	defer client.Close()
//
//	client.WriteEvent("LED", "RED", time.Now())
//
// # Error Handling
//
// Batched writes fail asynchronously; register a callback with
// SetOnError to log them. Connection and health-check errors are
// returned directly.
package influxdb
