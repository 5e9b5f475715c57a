package fleet

import (
	"testing"
	"time"
)

func clock(hour, min int) time.Time {
	return time.Date(2026, 8, 1, hour, min, 0, 0, time.UTC)
}

func TestModeAtDetectWindow(t *testing.T) {
	w := Window{DetectStart: clock(7, 0), DetectEnd: clock(19, 0), DetectTarget: 5}
	if got := ModeAt(w, clock(12, 0)); got != ModeDetect {
		t.Errorf("ModeAt(noon) = %v; want detect", got)
	}
}

func TestModeAtArchiveGrace(t *testing.T) {
	w := Window{DetectStart: clock(7, 0), DetectEnd: clock(19, 0)}
	if got := ModeAt(w, clock(6, 55)); got != ModeArchive {
		t.Errorf("ModeAt(5 min before start) = %v; want archive", got)
	}
	if got := ModeAt(w, clock(19, 5)); got != ModeArchive {
		t.Errorf("ModeAt(5 min after end) = %v; want archive", got)
	}
}

func TestModeAtInactive(t *testing.T) {
	w := Window{DetectStart: clock(7, 0), DetectEnd: clock(19, 0)}
	if got := ModeAt(w, clock(2, 0)); got != ModeInactive {
		t.Errorf("ModeAt(2am) = %v; want inactive", got)
	}
}

func TestModeAtOvernightWindow(t *testing.T) {
	// A window crossing midnight, e.g. dusk-to-dawn camera operation.
	w := Window{DetectStart: clock(20, 0), DetectEnd: clock(5, 0)}
	if got := ModeAt(w, clock(23, 0)); got != ModeDetect {
		t.Errorf("ModeAt(11pm, overnight window) = %v; want detect", got)
	}
	if got := ModeAt(w, clock(2, 0)); got != ModeDetect {
		t.Errorf("ModeAt(2am, overnight window) = %v; want detect", got)
	}
	if got := ModeAt(w, clock(12, 0)); got != ModeInactive {
		t.Errorf("ModeAt(noon, overnight window) = %v; want inactive", got)
	}
}

func TestPostWorkDue(t *testing.T) {
	w := Window{DetectStart: clock(7, 0), DetectEnd: clock(19, 0)}
	if PostWorkDue(w, clock(19, 30)) {
		t.Error("PostWorkDue 30 min after detectEnd should be false (grace is 80 min)")
	}
	if !PostWorkDue(w, clock(20, 25)) {
		t.Error("PostWorkDue 85 min after detectEnd should be true")
	}
}

func TestTargetSize(t *testing.T) {
	w := Window{DetectTarget: 5, ArchiveTarget: 1}
	if got := TargetSize(w, ModeDetect); got != 5 {
		t.Errorf("TargetSize(detect) = %d; want 5", got)
	}
	if got := TargetSize(w, ModeArchive); got != 1 {
		t.Errorf("TargetSize(archive) = %d; want 1", got)
	}
	if got := TargetSize(w, ModeInactive); got != 0 {
		t.Errorf("TargetSize(inactive) = %d; want 0", got)
	}
}
