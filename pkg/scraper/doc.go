// Package scraper ties discovery, download and the dedup index together:
// per-vessel scraping and the batch orchestration that drives a whole run.
package scraper
