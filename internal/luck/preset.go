package luck

import (
	"fmt"
	"strings"
	"time"

	"github.com/ichi0g0y/discord-rpg-bot/internal/types"
)

// Preset is a named modifier granted by items or events.
type Preset struct {
	Name     string
	Label    string
	Delta    int
	Duration time.Duration
}

var (
	PresetLuckPotion = Preset{Name: "potion", Label: "Luck Potion", Delta: 15, Duration: time.Hour}
	PresetCurse      = Preset{Name: "curse", Label: "Cursed", Delta: -20, Duration: 30 * time.Minute}
	PresetBlessing   = Preset{Name: "blessing", Label: "Blessed", Delta: 25, Duration: 2 * time.Hour}
)

// Presets lists every preset in display order.
var Presets = []Preset{PresetLuckPotion, PresetCurse, PresetBlessing}

// PresetByName looks up a preset case-insensitively.
func PresetByName(name string) (Preset, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, p := range Presets {
		if p.Name == name {
			return p, true
		}
	}
	return Preset{}, false
}

// ApplyPreset adds the preset's modifier. A zero duration falls back to the preset default.
func (l *Ledger) ApplyPreset(userID string, p Preset, duration time.Duration) (types.LuckModifier, error) {
	if p.Label == "" {
		return types.LuckModifier{}, fmt.Errorf("empty preset: %w", types.ErrInvalidArgument)
	}
	if duration == 0 {
		duration = p.Duration
	}
	return l.AddModifier(userID, p.Label, p.Delta, duration)
}
