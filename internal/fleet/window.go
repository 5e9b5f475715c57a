package fleet

import (
	"fmt"
	"time"

	"github.com/open-climate-tech/firecam/internal/config"
)

// WindowFromGroup converts a config-file FleetGroup (wall-clock strings,
// YAML-friendly) into the Window the mode machine evaluates against.
func WindowFromGroup(g config.FleetGroup) (Window, error) {
	start, err := time.Parse("15:04", g.DetectStart)
	if err != nil {
		return Window{}, fmt.Errorf("fleet: parse detectStart for %s: %w", g.Name, err)
	}
	end, err := time.Parse("15:04", g.DetectEnd)
	if err != nil {
		return Window{}, fmt.Errorf("fleet: parse detectEnd for %s: %w", g.Name, err)
	}
	return Window{
		Name:          g.Name,
		DetectStart:   start,
		DetectEnd:     end,
		DetectTarget:  g.DetectTarget,
		ArchiveTarget: g.ArchiveTarget,
	}, nil
}
