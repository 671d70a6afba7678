package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteEvent mirrors one dispatched event into the hub_events measurement.
//
// The write is non-blocking; points are batched and sent asynchronously.
// Event type goes in as a tag so dashboards can group by it cheaply, the
// payload rides along as a field.
//
// Parameters:
//   - eventType: Message type token (e.g. "EVENT", "LED")
//   - payload: The dispatched payload text
//   - timestamp: When the hub dispatched the event
func (c *Client) WriteEvent(eventType string, payload string, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"hub_events",
		map[string]string{
			"type": eventType,
		},
		map[string]interface{}{
			"payload": payload,
		},
		timestamp,
	)

	c.writeAPI.WritePoint(point)
}

// WriteRegistration records a device registration in the hub_registrations
// measurement. Useful for auditing when devices joined or changed type.
func (c *Client) WriteRegistration(deviceType string, address string, link string, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"hub_registrations",
		map[string]string{
			"device_type": deviceType,
			"link":        link,
		},
		map[string]interface{}{
			"address": address,
		},
		timestamp,
	)

	c.writeAPI.WritePoint(point)
}
