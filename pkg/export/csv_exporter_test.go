package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVRender(t *testing.T) {
	data := Dataset{
		Headers: []string{"timestamp", "action", "detail"},
		Rows: []map[string]string{
			{"timestamp": "2026-01-02T15:04:05Z", "action": "LOGIN_ATTEMPT", "detail": "ok"},
			{"timestamp": "2026-01-02T15:05:00Z", "action": "COMPLAINT_VIEW"},
		},
	}

	out, err := NewCSVExporter().Render(data)
	require.NoError(t, err)

	expected := "timestamp,action,detail\n" +
		"2026-01-02T15:04:05Z,LOGIN_ATTEMPT,ok\n" +
		"2026-01-02T15:05:00Z,COMPLAINT_VIEW,\n"
	assert.Equal(t, expected, string(out))
}

func TestCSVRenderRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}
