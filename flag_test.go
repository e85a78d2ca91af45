package main

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var flagParseErrorTests = []struct {
	in     string
	flag   string
	reason string
}{
	{
		"unknown flag: --nope",
		"--nope",
		"Flag %s is missing.",
	},
	{
		"flag needs an argument: --since",
		"--since",
		"Flag %s needs an argument.",
	},
	{
		"flag needs an argument: 's' in -s",
		"-s",
		"Flag %s needs an argument.",
	},
	{
		`invalid argument "20dd" for "-s, --since" flag: time: unknown unit "dd" in duration "20dd"`,
		"-s, --since",
		"Flag %s have an invalid argument.",
	},
	{
		`invalid argument "many" for "-n, --limit" flag: strconv.ParseInt: parsing "many": invalid syntax`,
		"-n, --limit",
		"Flag %s have an invalid argument.",
	},
	{
		`invalid argument "nope" for "--json" flag: strconv.ParseBool: parsing "nope": invalid syntax`,
		"--json",
		"Flag %s have an invalid argument.",
	},
}

func TestFlagParseError(t *testing.T) {
	for _, tf := range flagParseErrorTests {
		t.Run(tf.in, func(t *testing.T) {
			err := newFlagParseError(errors.New(tf.in))
			require.Equal(t, tf.flag, err.Flag())
			require.Equal(t, tf.reason, err.ReasonFormat())
			require.Equal(t, tf.in, err.Error())
		})
	}
}

func TestDurationFlag(t *testing.T) {
	var d time.Duration
	f := newDurationFlag(2*time.Hour, &d)
	require.Equal(t, 2*time.Hour, d)
	require.Equal(t, "2h0m0s", f.String())
	require.Equal(t, "duration", f.Type())

	require.NoError(t, f.Set("45m"))
	require.Equal(t, 45*time.Minute, d)

	// extended units
	require.NoError(t, f.Set("1d"))
	require.Equal(t, 24*time.Hour, d)

	require.Error(t, f.Set("soon"))
}
