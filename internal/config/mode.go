package config

import "github.com/hazae41/glace/internal/foundation/normalization"

// Mode selects production (minified, no source maps) or development output.
type Mode string

const (
	ModeProduction  Mode = "production"
	ModeDevelopment Mode = "development"
)

var modeNormalizer = normalization.NewNormalizer("mode", map[string]Mode{
	"production":  ModeProduction,
	"prod":        ModeProduction,
	"development": ModeDevelopment,
	"dev":         ModeDevelopment,
}, ModeProduction)

// ParseMode normalizes raw; empty input means production.
func ParseMode(raw string) (Mode, error) {
	return modeNormalizer.Parse(raw)
}

func (m Mode) Development() bool { return m == ModeDevelopment }
