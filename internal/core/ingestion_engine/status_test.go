package ingestion_engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAggregateStatus(t *testing.T) {
	tests := []struct {
		name     string
		statuses []string
		want     string
	}{
		{"empty notebook is ready", nil, StatusReady},
		{"all ready", []string{StatusReady, StatusReady}, StatusReady},
		{"one processing", []string{StatusReady, StatusProcessing, StatusReady}, StatusProcessing},
		{"error wins over processing", []string{StatusProcessing, StatusError, StatusProcessing}, StatusError},
		{"error wins over ready", []string{StatusReady, StatusError}, StatusError},
		{"single error", []string{StatusError}, StatusError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AggregateStatus(tt.statuses))
		})
	}
}
