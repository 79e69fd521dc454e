// Package domain models device telemetry readings and their hourly summaries.
//
// # Source rows
//
// Each row of the source devices table carries:
//
//	device_id    opaque device key (the generator uses UUIDs)
//	time         seconds since the Unix epoch, stored as integer or text
//	temperature  numeric reading
//	location     JSON text, e.g. {"latitude": "51.50", "longitude": "-0.12"}
//
// A row whose location or time cannot be decoded fails the whole run; there is
// no per-row skip.
//
// # Hourly summaries
//
// Readings are grouped by the UTC clock hour containing their timestamp and by
// device. For every group the maximum temperature, the number of readings and
// the distance travelled are computed. Distance is the sum of the legs between
// consecutive readings in the order they were read (or by timestamp when
// requested), measured on the WGS-84 ellipsoid by default and rounded half to
// even to whole kilometres.
package domain
