package learning

import (
	"github.com/nerrad567/mixlogic-core/internal/session"
	"github.com/nerrad567/mixlogic-core/internal/track"
)

// Energy tier boundaries for context bucketing.
const (
	lowEnergyCeiling = 0.4
	midEnergyCeiling = 0.7
)

// Bucket reduces a context to a coarse key: the set energy tier and the
// genre pair being mixed, e.g. "mid:house>tech house".
func Bucket(ctx session.Context) string {
	return energyTier(ctx.SetEnergy) + ":" + genreOf(ctx.CurrentTrack) + ">" + genreOf(ctx.NextTrack)
}

func energyTier(e float64) string {
	switch {
	case e < lowEnergyCeiling:
		return "low"
	case e < midEnergyCeiling:
		return "mid"
	default:
		return "high"
	}
}

func genreOf(t *track.Track) string {
	if t == nil {
		return "none"
	}
	if g := track.NormalizeGenre(t.Genre); g != "" {
		return g
	}
	return "none"
}
