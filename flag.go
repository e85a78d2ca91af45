package main

import (
	"regexp"
	"strings"
	"time"

	"github.com/caarlos0/duration"
)

// flagParseError wraps a pflag parse error so handleError can highlight the
// offending flag in the usage hint.
type flagParseError struct {
	err    error
	reason string
	flag   string
}

func (f flagParseError) Error() string {
	return f.err.Error()
}

// ReasonFormat is a printf format with one %s verb for the flag name.
func (f flagParseError) ReasonFormat() string {
	return f.reason
}

func (f flagParseError) Flag() string {
	return f.flag
}

var (
	shorthandFlagRE = regexp.MustCompile(`unknown shorthand flag: '.*' in (-\w)`)
	badArgumentRE   = regexp.MustCompile(`invalid argument ".*" for "(.*)" flag: .*`)
)

func newFlagParseError(err error) flagParseError {
	f := flagParseError{err: err}
	s := err.Error()
	switch {
	case strings.HasPrefix(s, "flag needs an argument:"):
		f.reason = "Flag %s needs an argument."
		// "flag needs an argument: --since" or "... 's' in -s"
		if i := strings.Index(s, "--"); i >= 0 {
			f.flag = s[i:]
		} else if i := strings.LastIndex(s, "-"); i >= 0 {
			f.flag = s[i:]
		}
	case strings.HasPrefix(s, "unknown flag:"):
		f.reason = "Flag %s is missing."
		f.flag = strings.TrimPrefix(s, "unknown flag: ")
	case strings.HasPrefix(s, "unknown shorthand flag:"):
		f.reason = "Short flag %s is missing."
		if m := shorthandFlagRE.FindStringSubmatch(s); len(m) > 1 {
			f.flag = m[1]
		}
	case strings.HasPrefix(s, "invalid argument"):
		f.reason = "Flag %s have an invalid argument."
		if m := badArgumentRE.FindStringSubmatch(s); len(m) > 1 {
			f.flag = m[1]
		}
	default:
		f.reason = s
	}
	return f
}

// durationFlag accepts the extended units from caarlos0/duration (d, w, mo,
// y) on top of the time.ParseDuration ones.
type durationFlag time.Duration

func newDurationFlag(val time.Duration, p *time.Duration) *durationFlag {
	*p = val
	return (*durationFlag)(p)
}

func (d *durationFlag) Set(s string) error {
	v, err := duration.Parse(s)
	*d = durationFlag(v)
	//nolint: wrapcheck
	return err
}

func (d *durationFlag) String() string {
	return time.Duration(*d).String()
}

func (*durationFlag) Type() string {
	return "duration"
}
