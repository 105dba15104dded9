package tracker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shipsnap/pkg/config"
	"shipsnap/pkg/logger"
)

func TestNormalizeVesselID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"valid", "9876543", "9876543", false},
		{"valid with whitespace", "  9876543 ", "9876543", false},
		{"too short", "123456", "", true},
		{"too long", "12345678", "", true},
		{"non numeric", "987654a", "", true},
		{"empty", "", "", true},
		{"internal whitespace", "987 6543", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeVesselID(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStaticSource(t *testing.T) {
	log := logger.NewTestLogger()
	src := NewStaticSource([]string{"9876543", "1234567", "9876543", "bad", " 1111111 "}, log)

	ids, details, err := src.Vessels(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"1111111", "1234567", "9876543"}, ids)
	assert.Len(t, details, 3)
	assert.Equal(t, "Unknown", details["9876543"].Name)
	assert.True(t, log.HasMessage("skipping invalid vessel identifier"))
}

func TestAPISourceFiltersPlaceholderIdentifiers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/vessel_inradius", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("api-key"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"meta": {"success": true},
			"data": {"vessels": [
				{"imo": "9876543", "name": "EVER GIVEN", "type": "Cargo"},
				{"imo": "null", "name": "GHOST"},
				{"imo": "N/A", "name": "GHOST 2"},
				{"imo": "0", "name": "GHOST 3"},
				{"imo": "", "name": "GHOST 4"},
				{"imo": "9876543", "name": "EVER GIVEN DUP"},
				{"imo": "1234567", "name": "MSC OSCAR", "type": "Container"}
			]}
		}`))
	}))
	defer server.Close()

	cfg := &config.TrackerConfig{
		Mode:   "api",
		APIURL: server.URL,
		APIKey: "test-key",
	}
	src := NewAPISource(cfg, logger.NewTestLogger())

	ids, details, err := src.Vessels(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"1234567", "9876543"}, ids)
	assert.Equal(t, "EVER GIVEN", details["9876543"].Name)
	assert.Equal(t, "Container", details["1234567"].Type)
}

func TestAPISourceUnsuccessfulResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"meta": {"success": false}, "data": {"vessels": []}}`))
	}))
	defer server.Close()

	src := NewAPISource(&config.TrackerConfig{APIURL: server.URL}, logger.NewTestLogger())

	ids, details, err := src.Vessels(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Empty(t, details)
}

func TestAPISourceServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	src := NewAPISource(&config.TrackerConfig{APIURL: server.URL}, logger.NewTestLogger())

	_, _, err := src.Vessels(context.Background())
	assert.Error(t, err)
}

func TestNewSource(t *testing.T) {
	log := logger.NewTestLogger()

	src, err := NewSource(&config.TrackerConfig{Mode: "static"}, log)
	require.NoError(t, err)
	assert.IsType(t, &StaticSource{}, src)

	src, err = NewSource(&config.TrackerConfig{Mode: "api"}, log)
	require.NoError(t, err)
	assert.IsType(t, &APISource{}, src)

	_, err = NewSource(&config.TrackerConfig{Mode: "satellite"}, log)
	assert.Error(t, err)
}
