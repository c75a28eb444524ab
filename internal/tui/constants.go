package tui

import "time"

// Package-level constants to avoid magic numbers and improve readability.
const (
	channelBufferSize = 256
	closeDelayMS      = 2500
	drainQuietMS      = 250

	// chromeLines is header+spacer above the transcript plus spacer+status+footer below it.
	chromeLines        = 5
	minViewportHeight  = 3
	defaultViewWidth   = 80
	defaultViewHeight  = 20
	defaultWindowTitle = "Matrix install"

	closeDelay = time.Duration(closeDelayMS) * time.Millisecond
	drainQuiet = time.Duration(drainQuietMS) * time.Millisecond
)
