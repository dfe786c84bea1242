package projection

// Defaults applied when a player has no per-100 row or a team has no pace.
const (
	DefaultFpPer100 = 30.0
	DefaultPace     = 100.0
)

// FpPerMin converts a per-100-possession fantasy rate into points per minute at
// the given pace (possessions per 48 minutes).
func FpPerMin(fpPer100, pace float64) float64 {
	return (fpPer100 / 100) * (pace / 48)
}
