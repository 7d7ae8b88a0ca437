package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestTimestamp_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected time.Time
		wantErr  bool
	}{
		{
			name:     "rfc3339 with zone",
			input:    `"2025-03-01T09:30:00Z"`,
			expected: time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC),
		},
		{
			name:     "naive iso from backend",
			input:    `"2025-03-01T09:30:00"`,
			expected: time.Date(2025, 3, 1, 9, 30, 0, 0, time.Local),
		},
		{
			name:     "naive iso with microseconds",
			input:    `"2025-03-01T09:30:00.123456"`,
			expected: time.Date(2025, 3, 1, 9, 30, 0, 123456000, time.Local),
		},
		{
			name:  "null",
			input: `null`,
		},
		{
			name:    "garbage",
			input:   `"yesterday"`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ts Timestamp
			err := json.Unmarshal([]byte(tt.input), &ts)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.expected.Equal(ts.Time), "expected %v, got %v", tt.expected, ts.Time)
		})
	}
}

func withLocalZone(t *testing.T, loc *time.Location) {
	t.Helper()
	saved := time.Local
	time.Local = loc
	t.Cleanup(func() { time.Local = saved })
}

func TestTimestamp_NaiveKeepsWallClock(t *testing.T) {
	withLocalZone(t, time.FixedZone("UTC+8", 8*60*60))

	var ts Timestamp
	require.NoError(t, json.Unmarshal([]byte(`"2025-01-01T10:00:00"`), &ts))
	assert.Equal(t, "2025-01-01 10:00", ts.Local().Format("2006-01-02 15:04"))

	data, err := json.Marshal(ts)
	require.NoError(t, err)
	assert.JSONEq(t, `"2025-01-01T10:00:00"`, string(data), "zone-less values go back out unchanged")

	out, err := yaml.Marshal(struct {
		Start Timestamp `yaml:"start"`
	}{ts})
	require.NoError(t, err)
	assert.Contains(t, string(out), "2025-01-01T10:00:00")
	assert.NotContains(t, string(out), "Z")
}

func TestTimestamp_ZonedRoundTrip(t *testing.T) {
	withLocalZone(t, time.FixedZone("UTC+8", 8*60*60))

	var ts Timestamp
	require.NoError(t, json.Unmarshal([]byte(`"2025-01-01T10:00:00+08:00"`), &ts))
	assert.Equal(t, "2025-01-01 10:00", ts.Local().Format("2006-01-02 15:04"))

	data, err := json.Marshal(ts)
	require.NoError(t, err)
	assert.JSONEq(t, `"2025-01-01T10:00:00+08:00"`, string(data))
}

func TestUser_IsAdmin(t *testing.T) {
	var nilUser *User
	assert.False(t, nilUser.IsAdmin())
	assert.False(t, (&User{Role: RoleTeacher}).IsAdmin())
	assert.False(t, (&User{Role: RoleStudent}).IsAdmin())
	assert.True(t, (&User{Role: RoleAdmin}).IsAdmin())
}

func TestUser_DisplayName(t *testing.T) {
	name := "Ada Lovelace"
	assert.Equal(t, "Ada Lovelace", (&User{Email: "ada@lab.org", FullName: &name}).DisplayName())
	assert.Equal(t, "ada@lab.org", (&User{Email: "ada@lab.org"}).DisplayName())
}

func TestValidate_ReservationCreate(t *testing.T) {
	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	err := Validate(ReservationCreate{StartTime: start, EndTime: start.Add(time.Hour), InstrumentID: 3})
	assert.NoError(t, err)

	err = Validate(ReservationCreate{StartTime: start, EndTime: start, InstrumentID: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EndTime must be after StartTime")

	err = Validate(ReservationCreate{StartTime: start, EndTime: start.Add(time.Hour)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "InstrumentID is required")
}

func TestValidate_UserCreate(t *testing.T) {
	err := Validate(UserCreate{Email: "student@lab.org", Role: RoleStudent, Password: "s3cret"})
	assert.NoError(t, err)

	err = Validate(UserCreate{Email: "not-an-email", Role: "janitor", Password: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid UserCreate")
	assert.Contains(t, err.Error(), "Email must be a valid email address")
	assert.Contains(t, err.Error(), "Role must be one of [admin teacher student]")
}

func TestValidate_UserBulkCreate(t *testing.T) {
	err := Validate(UserBulkCreate{})
	assert.Error(t, err)

	err = Validate(UserBulkCreate{Users: []UserCreate{
		{Email: "a@lab.org", Role: RoleStudent, Password: "p"},
		{Email: "b@lab.org", Role: RoleTeacher},
	}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Password is required")
}

func TestValidate_PermissionGrant(t *testing.T) {
	assert.NoError(t, Validate(PermissionGrant{InstrumentID: 1, UserEmail: "x@lab.org"}))
	assert.Error(t, Validate(PermissionGrant{InstrumentID: 0, UserEmail: "x@lab.org"}))
}

func TestValidate_UserUpdateNilFields(t *testing.T) {
	assert.NoError(t, Validate(UserUpdate{}))

	bad := "nope"
	assert.Error(t, Validate(UserUpdate{Email: &bad}))
}
