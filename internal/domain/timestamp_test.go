package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestamp_Unmarshal(t *testing.T) {
	cases := []struct {
		name  string
		raw   string
		valid bool
		want  time.Time
	}{
		{"rfc3339", `"2025-03-04T10:11:12Z"`, true, time.Date(2025, 3, 4, 10, 11, 12, 0, time.UTC)},
		{"local date-time", `"2025-03-04T10:11:12.123"`, true, time.Date(2025, 3, 4, 10, 11, 12, 123000000, time.UTC)},
		{"space separated", `"2025-03-04 10:11:12"`, true, time.Date(2025, 3, 4, 10, 11, 12, 0, time.UTC)},
		{"date only", `"2025-03-04"`, true, time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)},
		{"null", `null`, false, time.Time{}},
		{"empty string", `""`, false, time.Time{}},
		{"garbage", `"next week"`, false, time.Time{}},
		{"number", `1700000000`, false, time.Time{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var ts Timestamp
			require.NoError(t, json.Unmarshal([]byte(tc.raw), &ts))
			assert.Equal(t, tc.valid, ts.Valid)
			if tc.valid {
				assert.True(t, tc.want.Equal(ts.Time), "got %v", ts.Time)
			}
		})
	}
}

func TestTimestamp_MissingFieldInRecord(t *testing.T) {
	var lead Lead
	require.NoError(t, json.Unmarshal([]byte(`{"id":"l1","name":"Ada","status":"NEW"}`), &lead))
	assert.False(t, lead.CreatedAt.Valid)
	assert.Nil(t, lead.AssignedTo)
}

func TestTimestamp_Marshal(t *testing.T) {
	out, err := json.Marshal(struct {
		A Timestamp `json:"a"`
		B Timestamp `json:"b"`
	}{A: At(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC))})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"2025-01-02T03:04:05Z","b":null}`, string(out))
}

func TestTimestamp_Before(t *testing.T) {
	early := At(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	late := At(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	assert.True(t, early.Before(late))
	assert.False(t, late.Before(early))
	assert.False(t, Timestamp{}.Before(late))
}

func TestParseRole(t *testing.T) {
	r, ok := ParseRole(" manager ")
	assert.True(t, ok)
	assert.Equal(t, RoleManager, r)
	assert.True(t, r.CanResolveApprovals())

	_, ok = ParseRole("intern")
	assert.False(t, ok)
	assert.False(t, RoleEmployee.CanResolveApprovals())
}
