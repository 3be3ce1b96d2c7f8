// Package sunplot serves a solar inverter's day curve to an e-ink
// display and ingests the inverter's push telemetry.
//
// # Architecture
//
// The service is structured into several key packages:
//   - backend: client for the VictoriaMetrics-compatible telemetry store
//   - chart: fixed-size raster rendering of the day's power curve
//   - daytime: local 06:00-22:00 window resolution and wake scheduling
//   - cache: short-TTL memoization of rendered charts
//   - server: HTTP handlers, routing and middleware
//   - scheduler: background cache warming
//   - config: YAML configuration with environment expansion
//
// Key behaviors
//
//   - Render pipeline:
//     A chart request resolves today's daytime window in the configured
//     zone, fetches the power series at a 2 minute step, decorates it
//     with best-effort peak and energy annotations, and encodes a
//     600x448 PNG for the panel.
//
//   - Degradation:
//     The power curve is the chart's primary content; a failed series
//     query fails the request. Peak and energy are annotations and
//     silently degrade to "absent" and 0 instead.
//
//   - Caching:
//     Rendered charts are memoized for the configured TTL and warmed by
//     a cron job during daytime, so the store sees at most one query
//     set per TTL regardless of how often the display polls.
//
// For more information about specific packages, see their respective
// documentation.
package sunplot
