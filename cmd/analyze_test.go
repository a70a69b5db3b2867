package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWindow(t *testing.T) {
	start, end, err := parseWindow("2025-01-01", "2025-01-31")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC), end)
}

func TestParseWindow_SingleDay(t *testing.T) {
	start, end, err := parseWindow("2025-01-15", "2025-01-15")
	require.NoError(t, err)
	assert.Equal(t, start, end)
}

func TestParseWindow_Errors(t *testing.T) {
	tests := []struct {
		name         string
		since, until string
		wantErr      string
	}{
		{"bad since", "January 1", "2025-01-31", "invalid --since"},
		{"bad until", "2025-01-01", "31/01/2025", "invalid --until"},
		{"inverted", "2025-02-01", "2025-01-01", "is after"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := parseWindow(tt.since, tt.until)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
