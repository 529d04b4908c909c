package internal

import (
	"testing"

	"github.com/lychee-technology/scorekeep"
	"github.com/stretchr/testify/assert"
)

func TestFormatCheckers(t *testing.T) {
	tests := []struct {
		format scorekeep.StringFormat
		valid  []string
		bad    []string
	}{
		{scorekeep.FormatDateTime, []string{"2024-03-04T05:06:07Z", "2024-03-04 05:06:07.123+02:00", "2024-03-04t05:06:07z"}, []string{"2024-03-04", "2024-13-04T05:06:07Z", "yesterday"}},
		{scorekeep.FormatDate, []string{"2024-02-29"}, []string{"2023-02-29", "2024-3-4"}},
		{scorekeep.FormatTime, []string{"05:06:07", "23:59:59.5Z", "12:00:00+01:00"}, []string{"24:00:00", "5:06:07"}},
		{scorekeep.FormatEmail, []string{"player@example.com"}, []string{"Player <player@example.com>", "nope"}},
		{scorekeep.FormatHostname, []string{"boardgamegeek.com", "localhost"}, []string{"-bad.com", "a_b.com"}},
		{scorekeep.FormatIPv4, []string{"192.168.0.1"}, []string{"::1", "256.0.0.1"}},
		{scorekeep.FormatIPv6, []string{"::1", "2001:db8::1"}, []string{"192.168.0.1", "fe80::1%eth0"}},
		{scorekeep.FormatURI, []string{"https://boardgamegeek.com/boardgame/13"}, []string{"/relative/path", "not a uri"}},
		{scorekeep.FormatRegex, []string{"^[a-z]+$"}, []string{"("}},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			check := formatCheckers[tt.format]
			for _, s := range tt.valid {
				assert.True(t, check(s), "%q should be a valid %s", s, tt.format)
			}
			for _, s := range tt.bad {
				assert.False(t, check(s), "%q should not be a valid %s", s, tt.format)
			}
		})
	}
}

func TestIsKnownFormat(t *testing.T) {
	assert.True(t, isKnownFormat(scorekeep.FormatIRI))
	assert.False(t, isKnownFormat("phone"))
}
