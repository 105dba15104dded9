// Package shipspotting talks to the vessel photo site: browser-like
// sessions that survive anti-automation challenges, gallery pagination and
// parsing, and candidate image URL construction.
package shipspotting
