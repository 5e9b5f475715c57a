// Package fleet implements the diurnal detect/archive/inactive mode
// machine, worker-group resizing through the orchestrator, and the
// once-daily post-work sweep.
package fleet

import "time"

// Mode is the Fleet Controller's diurnal state for one group.
type Mode string

const (
	ModeDetect   Mode = "detect"
	ModeArchive  Mode = "archive"
	ModeInactive Mode = "inactive"
)

// archiveGrace is how far outside the detect window archive mode extends
// on either side.
const archiveGrace = 10 * time.Minute

// postWorkGrace is how long after detectEnd the controller waits before
// running the once-daily post-work sweep.
const postWorkGrace = 80 * time.Minute

// Window is one fleet group's configured diurnal detect window, target
// worker count, and archive-mode worker count.
type Window struct {
	Name          string
	DetectStart   time.Time // wall-clock time-of-day, date component ignored
	DetectEnd     time.Time
	DetectTarget  int
	ArchiveTarget int
}

// ModeAt determines the group's mode at wall-clock time now, matching
// times of day only.
func ModeAt(w Window, now time.Time) Mode {
	start := onDate(now, w.DetectStart)
	end := onDate(now, w.DetectEnd)

	if withinWrapping(now, start, end) {
		return ModeDetect
	}
	if withinWrapping(now, start.Add(-archiveGrace), start) || withinWrapping(now, end, end.Add(archiveGrace)) {
		return ModeArchive
	}
	return ModeInactive
}

// TargetSize returns the worker-group size the orchestrator should be
// holding for the group's current mode.
func TargetSize(w Window, mode Mode) int {
	switch mode {
	case ModeDetect:
		return w.DetectTarget
	case ModeArchive:
		return w.ArchiveTarget
	default:
		return 0
	}
}

// PostWorkDue reports whether now has passed detectEnd by at least
// postWorkGrace, meaning the once-daily post-work sweep should run if it
// has not already run today.
func PostWorkDue(w Window, now time.Time) bool {
	end := onDate(now, w.DetectEnd)
	return now.After(end.Add(postWorkGrace))
}

// onDate projects clock's time-of-day onto day's calendar date, so wall-
// clock window bounds compare against a same-day timestamp.
func onDate(day, clock time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), clock.Second(), 0, day.Location())
}

// withinWrapping reports whether t falls in [start, end), handling windows
// that cross midnight (end before start).
func withinWrapping(t, start, end time.Time) bool {
	if !end.After(start) {
		return !t.Before(start) || t.Before(end)
	}
	return !t.Before(start) && t.Before(end)
}
