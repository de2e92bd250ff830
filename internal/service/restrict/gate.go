// Package restrict decides which surfaces the extension shows.
package restrict

import (
	"sync"

	"github.com/heartmarshall/sketch2code/internal/domain"
)

// Surface is the projection of settings and target onto the UI.
type Surface struct {
	Mode           domain.ViewMode `json:"mode"`
	ShowSketch     bool            `json:"showSketch"`
	ShowCode       bool            `json:"showCode"`
	ShowModeSwitch bool            `json:"showModeSwitch"`
	// AutoLoad asks the caller to load the stored sketch without user action.
	AutoLoad bool `json:"autoLoad"`
}

// Gate holds the mode chosen through the switch. It is only consulted
// when both surfaces are allowed.
type Gate struct {
	mu   sync.Mutex
	mode domain.ViewMode
}

// NewGate returns a gate showing the sketch surface.
func NewGate() *Gate {
	return &Gate{mode: domain.ViewModeSketch}
}

// SetMode switches between the sketch and code surfaces.
func (g *Gate) SetMode(mode domain.ViewMode) error {
	if !mode.IsValid() {
		return domain.NewValidationError("mode", "must be sketch or code")
	}
	g.mu.Lock()
	g.mode = mode
	g.mu.Unlock()
	return nil
}

// Mode returns the mode chosen through the switch.
func (g *Gate) Mode() domain.ViewMode {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mode
}

// Project applies the restrict mode of settings to target.
func (g *Gate) Project(settings domain.Settings, target domain.Target) Surface {
	switch domain.ParseRestrictMode(settings.RestrictMode.String()) {
	case domain.RestrictModeSketch:
		return Surface{
			Mode:       domain.ViewModeSketch,
			ShowSketch: true,
			AutoLoad:   autoLoad(settings, target),
		}
	case domain.RestrictModeCode:
		return Surface{
			Mode:     domain.ViewModeCode,
			ShowCode: true,
		}
	default:
		mode := g.Mode()
		return Surface{
			Mode:           mode,
			ShowSketch:     mode == domain.ViewModeSketch,
			ShowCode:       mode == domain.ViewModeCode,
			ShowModeSwitch: true,
		}
	}
}

func autoLoad(settings domain.Settings, target domain.Target) bool {
	return settings.IsEnforced &&
		settings.URLField != nil &&
		target.FieldID() == settings.URLField.ID &&
		target.HasRecord()
}
