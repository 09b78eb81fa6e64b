// Package export writes analysis results for people and other tools:
// GeoJSON for GIS viewers, CSV tables, a PNG map of PPAs and an HTML
// chart page.
package export
