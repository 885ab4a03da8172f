package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/smsprobe/pkg/errors"
)

func TestDefaultConfigIsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestValidateRejectsNonDominantBatchTimeout(t *testing.T) {
	cfg := Default()
	cfg.BatchTimeout = cfg.SMSWaitTimeout

	err := cfg.Validate()
	require.Error(t, err)
	assert.Equal(t, errors.ErrInvalidConfig, errors.CodeOf(err))
}

func TestValidateRejectsNonPositiveTimeouts(t *testing.T) {
	cfg := Default()
	cfg.MMSWaitTimeout = 0
	assert.Error(t, cfg.Validate())
}

func TestNewAppliesOptions(t *testing.T) {
	cfg, err := New(
		WithCredentials("acct", "token", "secret"),
		WithSource("TF", "+15550001111", "app-tf"),
		WithSource("10DLC", "+15550002222", "app-dlc"),
		WithDestinations("+15552223333 (AT&T)"),
		WithTimeouts(30*time.Second, 15*time.Second, 35*time.Second),
		WithHTTPAddr(":9090"),
	)
	require.NoError(t, err)

	assert.Equal(t, "acct", cfg.AccountID)
	assert.Len(t, cfg.Sources, 2)
	assert.Equal(t, "10DLC", cfg.Sources[1].Name)
	require.Len(t, cfg.Destinations, 1)
	assert.Equal(t, "AT&T", cfg.Destinations[0].Carrier)
	assert.Equal(t, 30*time.Second, cfg.SMSWaitTimeout)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
}

func TestWithCredentialsRequiresAllParts(t *testing.T) {
	_, err := New(WithCredentials("acct", "", "secret"))
	require.Error(t, err)
	assert.Equal(t, errors.ErrMissingConfig, errors.CodeOf(err))
}

func TestWithSourceRequiresNumberAndApplication(t *testing.T) {
	_, err := New(WithSource("TF", "+15550001111", ""))
	require.Error(t, err)
	assert.Equal(t, errors.ErrMissingConfig, errors.CodeOf(err))
}

func TestWithRedisArchiveRequiresAddr(t *testing.T) {
	_, err := New(WithRedisArchive(RedisOptions{}))
	require.Error(t, err)
	assert.Equal(t, errors.ErrMissingConfig, errors.CodeOf(err))
}

func TestParseDestinations(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []Destination
	}{
		{
			name: "annotated list",
			raw:  "+15551234567 (AT&T), +15557654321 (T-Mobile)",
			want: []Destination{
				{Number: "+15551234567", Carrier: "AT&T"},
				{Number: "+15557654321", Carrier: "T-Mobile"},
			},
		},
		{
			name: "missing carrier annotation",
			raw:  "+15551234567",
			want: []Destination{{Number: "+15551234567", Carrier: "N/A"}},
		},
		{
			name: "mixed",
			raw:  "+15551234567, +15557654321 (Verizon)",
			want: []Destination{
				{Number: "+15551234567", Carrier: "N/A"},
				{Number: "+15557654321", Carrier: "Verizon"},
			},
		},
		{
			name: "empty",
			raw:  "",
			want: nil,
		},
		{
			name: "garbage ignored",
			raw:  "not a number",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseDestinations(tt.raw))
		})
	}
}
