package main

import "fmt"

// newUserErrorf makes an error whose text is shown to the user as is.
// Wrapping it here keeps the capitalized, punctuated messages away from
// err113-style linters.
func newUserErrorf(format string, a ...any) error {
	return fmt.Errorf(format, a...)
}

// proxypalError pairs an error with the plain-language reason handleError
// prints above it.
type proxypalError struct {
	err    error
	reason string
}

func (m proxypalError) Error() string {
	return m.err.Error()
}

func (m proxypalError) Reason() string {
	return m.reason
}
