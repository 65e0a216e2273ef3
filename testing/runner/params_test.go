package runner

import (
	"testing"

	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"
)

func TestParsePorts(t *testing.T) {
	tests := []struct {
		name          string
		params        []string
		wantPort      int
		wantProbePort int
		wantErr       string
	}{
		{
			name:          "defaults when absent",
			params:        []string{"--debug"},
			wantPort:      8000,
			wantProbePort: 8001,
		},
		{
			name:          "separate values",
			params:        []string{"--port", "9100", "--probe-port", "9101"},
			wantPort:      9100,
			wantProbePort: 9101,
		},
		{
			name:          "equals form",
			params:        []string{"--probe-port=9201", "--autoreload", "--port=9200"},
			wantPort:      9200,
			wantProbePort: 9201,
		},
		{
			name:          "only probe port",
			params:        []string{"--probe-port", "9301"},
			wantPort:      8000,
			wantProbePort: 9301,
		},
		{
			name:          "similar flags are ignored",
			params:        []string{"--ports", "1", "--webhook-url", "http://localhost:1"},
			wantPort:      8000,
			wantProbePort: 8001,
		},
		{
			name:    "missing value",
			params:  []string{"--port"},
			wantErr: "invalid parameter: --port needs a value",
		},
		{
			name:    "not a number",
			params:  []string{"--port", "http"},
			wantErr: `invalid parameter: --port "http" is not a port`,
		},
		{
			name:    "out of range",
			params:  []string{"--probe-port=70000"},
			wantErr: `invalid parameter: --probe-port "70000" is not a port`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			port, probePort, err := parsePorts(tt.params, 8000, 8001)
			if tt.wantErr != "" {
				assert.Check(t, cmp.ErrorIs(err, ErrInvalidParameter))
				assert.Check(t, cmp.Error(err, tt.wantErr))
				return
			}
			assert.Assert(t, err)
			assert.Check(t, cmp.Equal(port, tt.wantPort))
			assert.Check(t, cmp.Equal(probePort, tt.wantProbePort))
		})
	}
}
