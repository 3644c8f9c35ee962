package helpers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSince(t *testing.T) {
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		in      string
		want    time.Time
		wantErr bool
	}{
		{name: "empty", in: "", want: time.Time{}},
		{name: "duration", in: "36h", want: now.Add(-36 * time.Hour)},
		{name: "now", in: "now", want: now},
		{name: "rfc3339", in: "2024-06-01T08:00:00Z", want: time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)},
		{name: "local timestamp", in: "2024-06-01T08:00:00", want: time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)},
		{name: "date", in: "2024-06-01", want: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)},
		{name: "negative duration", in: "-1h", wantErr: true},
		{name: "garbage", in: "last week", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSince(tt.in, now)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestAge(t *testing.T) {
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, "0s", Age(now.Add(time.Second), now))
	assert.Equal(t, "42s", Age(now.Add(-42*time.Second), now))
	assert.Equal(t, "5m", Age(now.Add(-5*time.Minute), now))
	assert.Equal(t, "3h", Age(now.Add(-3*time.Hour-10*time.Minute), now))
	assert.Equal(t, "2d", Age(now.Add(-50*time.Hour), now))
}
