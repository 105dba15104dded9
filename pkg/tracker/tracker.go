package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"shipsnap/pkg/config"
	errs "shipsnap/pkg/errors"
	"shipsnap/pkg/logger"
)

// vesselIDPattern is the canonical 7-digit vessel identifier rule.
var vesselIDPattern = regexp.MustCompile(`^\d{7}$`)

// IsValidVesselID reports whether id is a normalized 7-digit vessel identifier.
func IsValidVesselID(id string) bool {
	return vesselIDPattern.MatchString(id)
}

// NormalizeVesselID trims whitespace and validates the identifier.
// It returns the normalized identifier or an error for anything that
// fails the 7-digit rule.
func NormalizeVesselID(raw string) (string, error) {
	id := strings.TrimSpace(raw)
	if !IsValidVesselID(id) {
		return "", fmt.Errorf("invalid vessel identifier %q: must be 7 digits", raw)
	}
	return id, nil
}

// VesselDetails holds display-only vessel metadata. It is attached to logs
// and stored photo metadata but never used as a join key.
type VesselDetails struct {
	Name        string    `json:"name"`
	Type        string    `json:"vessel_type"`
	MMSI        string    `json:"mmsi,omitempty"`
	Latitude    float64   `json:"lat,omitempty"`
	Longitude   float64   `json:"lon,omitempty"`
	Destination string    `json:"destination,omitempty"`
	Speed       float64   `json:"speed,omitempty"`
	Course      float64   `json:"course,omitempty"`
	ObservedAt  string    `json:"timestamp,omitempty"`
	ExtractedAt time.Time `json:"extracted_at"`
}

// Source supplies the ordered, deduplicated vessel identifier list for a run
// together with a details lookup for display purposes.
type Source interface {
	Vessels(ctx context.Context) ([]string, map[string]VesselDetails, error)
}

// NewSource builds a Source from configuration, selecting between the live
// tracking API and the static identifier list.
func NewSource(cfg *config.TrackerConfig, log logger.Logger) (Source, error) {
	switch strings.ToLower(cfg.Mode) {
	case "api":
		return NewAPISource(cfg, log), nil
	case "static":
		return NewStaticSource(cfg.StaticIDs, log), nil
	default:
		return nil, fmt.Errorf("unknown tracker mode %q", cfg.Mode)
	}
}

// StaticSource returns a fixed identifier list from configuration.
// Useful for testing without spending tracking-API credits.
type StaticSource struct {
	ids []string
	log logger.Logger
}

// NewStaticSource creates a static identifier source
func NewStaticSource(ids []string, log logger.Logger) *StaticSource {
	if log == nil {
		log = logger.GetLogger()
	}
	return &StaticSource{ids: ids, log: log}
}

// Vessels returns the configured identifiers, validated and deduplicated
func (s *StaticSource) Vessels(ctx context.Context) ([]string, map[string]VesselDetails, error) {
	seen := make(map[string]bool)
	var ids []string
	details := make(map[string]VesselDetails)
	now := time.Now()

	for _, raw := range s.ids {
		id, err := NormalizeVesselID(raw)
		if err != nil {
			s.log.WarnWithFields("skipping invalid vessel identifier", map[string]interface{}{
				"raw": raw,
			})
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
		details[id] = VesselDetails{Name: "Unknown", ExtractedAt: now}
	}

	sort.Strings(ids)
	return ids, details, nil
}

// APISource queries a vessel tracking API for vessels inside a radius
// around a configured position.
type APISource struct {
	cfg        *config.TrackerConfig
	httpClient *http.Client
	log        logger.Logger
}

// NewAPISource creates a tracking-API backed source
func NewAPISource(cfg *config.TrackerConfig, log logger.Logger) *APISource {
	if log == nil {
		log = logger.GetLogger()
	}
	return &APISource{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
	}
}

// apiResponse mirrors the tracking API's vessel_inradius response shape
type apiResponse struct {
	Meta struct {
		Success bool `json:"success"`
	} `json:"meta"`
	Data struct {
		Vessels []apiVessel `json:"vessels"`
	} `json:"data"`
}

type apiVessel struct {
	IMO         string  `json:"imo"`
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	MMSI        string  `json:"mmsi"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Destination string  `json:"destination"`
	Speed       float64 `json:"speed"`
	Course      float64 `json:"course"`
	LastSeen    string  `json:"last_position_time"`
}

// nullishIMOs are placeholder values the tracking API uses for vessels
// without a registered identifier.
var nullishIMOs = map[string]bool{
	"null": true, "n/a": true, "none": true, "0": true, "": true,
}

// Vessels fetches vessels in the configured radius and returns the valid
// identifiers with their details.
func (s *APISource) Vessels(ctx context.Context) ([]string, map[string]VesselDetails, error) {
	endpoint := fmt.Sprintf("%s/vessel_inradius", strings.TrimSuffix(s.cfg.APIURL, "/"))

	params := url.Values{}
	params.Set("api-key", s.cfg.APIKey)
	params.Set("lat", fmt.Sprintf("%g", s.cfg.Latitude))
	params.Set("lon", fmt.Sprintf("%g", s.cfg.Longitude))
	params.Set("radius", fmt.Sprintf("%d", s.cfg.RadiusKM))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create tracker request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, nil, &errs.Error{
			Type:    errs.ErrorTypeNetwork,
			Message: fmt.Sprintf("tracker request failed: %v", err),
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, &errs.Error{
			Type:    errs.ErrorTypeServerError,
			Message: fmt.Sprintf("tracker returned status %d", resp.StatusCode),
			Code:    resp.StatusCode,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read tracker response: %w", err)
	}

	var parsed apiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, nil, &errs.Error{
			Type:    errs.ErrorTypeParsing,
			Message: fmt.Sprintf("failed to parse tracker response: %v", err),
		}
	}

	if !parsed.Meta.Success {
		s.log.Warn("tracker API request was not successful")
		return nil, map[string]VesselDetails{}, nil
	}

	seen := make(map[string]bool)
	var ids []string
	details := make(map[string]VesselDetails)
	now := time.Now()

	for _, v := range parsed.Data.Vessels {
		raw := strings.TrimSpace(v.IMO)
		if nullishIMOs[strings.ToLower(raw)] {
			continue
		}
		id, err := NormalizeVesselID(raw)
		if err != nil {
			s.log.DebugWithFields("skipping vessel with malformed identifier", map[string]interface{}{
				"imo":  raw,
				"name": v.Name,
			})
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
		details[id] = VesselDetails{
			Name:        v.Name,
			Type:        v.Type,
			MMSI:        v.MMSI,
			Latitude:    v.Lat,
			Longitude:   v.Lon,
			Destination: v.Destination,
			Speed:       v.Speed,
			Course:      v.Course,
			ObservedAt:  v.LastSeen,
			ExtractedAt: now,
		}
	}

	sort.Strings(ids)

	s.log.InfoWithFields("fetched vessels from tracker", map[string]interface{}{
		"total":     len(parsed.Data.Vessels),
		"valid_ids": len(ids),
	})

	return ids, details, nil
}
