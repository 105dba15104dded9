package logger

// LogRequest logs HTTP request information
func LogRequest(method, url string, statusCode int, durationMS float64) {
	fields := map[string]interface{}{
		"method":      method,
		"url":         url,
		"status_code": statusCode,
		"duration_ms": durationMS,
	}

	if statusCode >= 200 && statusCode < 300 {
		GetLogger().DebugWithFields("HTTP request completed", fields)
	} else if statusCode >= 400 && statusCode < 500 {
		GetLogger().WarnWithFields("HTTP request client error", fields)
	} else if statusCode >= 500 {
		GetLogger().ErrorWithFields("HTTP request server error", fields)
	}
}

// LogDownload logs photo download operations
func LogDownload(vesselID, photoID string, success bool, err error) {
	fields := map[string]interface{}{
		"vessel_id": vesselID,
		"photo_id":  photoID,
		"success":   success,
	}

	l := GetLogger().WithFields(fields)

	if err != nil {
		l.WithError(err).Error("Download failed")
	} else if success {
		l.Debug("Download completed")
	} else {
		l.Warn("Download skipped")
	}
}

// LogRateLimit logs rate limiting events
func LogRateLimit(endpoint string, retryAfterSeconds int) {
	GetLogger().WithFields(map[string]interface{}{
		"endpoint":    endpoint,
		"retry_after": retryAfterSeconds,
		"action":      "rate_limited",
	}).Warn("Rate limit reached, backing off")
}

// LogScrapeProgress logs per-vessel scraping progress
func LogScrapeProgress(vesselID string, stored, found int) {
	GetLogger().WithFields(map[string]interface{}{
		"vessel_id": vesselID,
		"stored":    stored,
		"found":     found,
	}).Info("Scraping progress")
}
