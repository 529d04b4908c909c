package internal

import (
	"net/mail"
	"net/netip"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/lychee-technology/scorekeep"
)

var (
	timeOfDayPattern = regexp.MustCompile(`(?i)^([01]\d|2[0-3]):[0-5]\d:([0-5]\d|60)(\.\d+)?(z|[+-]\d\d(:?\d\d)?)?$`)
	hostnamePattern  = regexp.MustCompile(`(?i)^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?(\.[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?)*$`)
)

type formatChecker func(string) bool

var formatCheckers = map[scorekeep.StringFormat]formatChecker{
	scorekeep.FormatDateTime: isDateTime,
	scorekeep.FormatDate:     isDate,
	scorekeep.FormatTime:     timeOfDayPattern.MatchString,
	scorekeep.FormatEmail:    isEmail,
	scorekeep.FormatHostname: isHostname,
	scorekeep.FormatIPv4:     isIPv4,
	scorekeep.FormatIPv6:     isIPv6,
	scorekeep.FormatURI:      isURI,
	scorekeep.FormatIRI:      isURI,
	scorekeep.FormatRegex:    isRegex,
}

func isKnownFormat(f scorekeep.StringFormat) bool {
	_, ok := formatCheckers[f]
	return ok
}

func isDateTime(s string) bool {
	if len(s) < 11 {
		return false
	}
	// date and time may be separated by t or a space
	switch s[10] {
	case 'T', 't', ' ':
	default:
		return false
	}
	normalized := strings.ToUpper(s[:10] + "T" + s[11:])
	_, err := time.Parse(time.RFC3339Nano, normalized)
	return err == nil
}

func isDate(s string) bool {
	_, err := time.Parse(time.DateOnly, s)
	return err == nil
}

func isEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

func isHostname(s string) bool {
	return len(s) <= 255 && hostnamePattern.MatchString(s)
}

func isIPv4(s string) bool {
	addr, err := netip.ParseAddr(s)
	return err == nil && addr.Is4()
}

func isIPv6(s string) bool {
	addr, err := netip.ParseAddr(s)
	return err == nil && addr.Is6() && addr.Zone() == ""
}

func isURI(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.IsAbs()
}

func isRegex(s string) bool {
	_, err := regexp.Compile(s)
	return err == nil
}
