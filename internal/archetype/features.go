package archetype

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/stitts-dev/nba-projections/internal/models"
)

// Composite index positions within an Indices vector.
const (
	Creation = iota
	Playmaking
	Interior
	Perimeter
	Offball
	Rebound
	Defense
	Size
	NumIndices
)

// IndexNames are the composite index names in vector order.
var IndexNames = [NumIndices]string{
	"creation", "playmaking", "interior", "perimeter", "offball", "rebound", "defense", "size",
}

// Indices is one player's composite index vector.
type Indices [NumIndices]float64

// Map returns the indices keyed by name.
func (ix Indices) Map() map[string]float64 {
	m := make(map[string]float64, NumIndices)
	for i, name := range IndexNames {
		m[name] = ix[i]
	}
	return m
}

// PlayerFeatures is the raw feature row for one player. NaN marks a missing value;
// physical measurements of zero also count as missing.
type PlayerFeatures struct {
	Name         string
	Team         string
	TotalMinutes float64

	UsgPct           float64
	PullUpPct        float64
	SecondsPerTouch  float64
	DribblesPerTouch float64

	AstPer100     float64
	TouchesPerMin float64

	RimShare     float64
	PostTouches  float64
	PaintTouches float64

	Fg3Pct           float64
	CatchShootPct    float64
	PullUpThreeShare float64

	CatchShootThreeShare float64
	TimeOfPossession     float64

	RebPer100 float64
	BoxOuts   float64

	StlPer100   float64
	BlkPer100   float64
	Deflections float64
	Contests    float64

	HeightIn   float64
	WeightLbs  float64
	WingspanIn float64

	// Rule inputs
	PtsPer100  float64
	Fg3mPer100 float64
	ThreeRate  float64
	PGPct      float64
	SGPct      float64
	SFPct      float64
	PFPct      float64
	CPct       float64
}

// FeaturesFromRates builds a feature row from a season-rates record.
func FeaturesFromRates(r models.PlayerSeasonRates) PlayerFeatures {
	return PlayerFeatures{
		Name:                 r.PlayerName,
		Team:                 r.Team,
		TotalMinutes:         r.TotalMinutes,
		UsgPct:               r.UsgPct,
		PullUpPct:            r.PullUpPct,
		SecondsPerTouch:      r.SecondsPerTouch,
		DribblesPerTouch:     r.DribblesPerTouch,
		AstPer100:            r.AstPer100,
		TouchesPerMin:        r.TouchesPerMin,
		RimShare:             r.RimShare,
		PostTouches:          r.PostTouches,
		PaintTouches:         r.PaintTouches,
		Fg3Pct:               r.Fg3Pct,
		CatchShootPct:        r.CatchShootPct,
		PullUpThreeShare:     r.PullUpThreeShare,
		CatchShootThreeShare: r.CatchShootThreeShare,
		TimeOfPossession:     r.TimeOfPossession,
		RebPer100:            r.RebPer100,
		BoxOuts:              r.BoxOuts,
		StlPer100:            r.StlPer100,
		BlkPer100:            r.BlkPer100,
		Deflections:          r.Deflections,
		Contests:             r.Contests,
		HeightIn:             r.HeightIn,
		WeightLbs:            r.WeightLbs,
		WingspanIn:           r.WingspanIn,
		PtsPer100:            r.PtsPer100,
		Fg3mPer100:           r.Fg3mPer100,
		ThreeRate:            r.ThreeShare,
		PGPct:                r.PGPct,
		SGPct:                r.SGPct,
		SFPct:                r.SFPct,
		PFPct:                r.PFPct,
		CPct:                 r.CPct,
	}
}

// HasPositionData reports whether any play-by-play position share is recorded.
func (f *PlayerFeatures) HasPositionData() bool {
	return f.PGPct+f.SGPct+f.SFPct+f.PFPct+f.CPct > 0
}

type rawFeature struct {
	get      func(*PlayerFeatures) float64
	physical bool
}

type term struct {
	feature rawFeature
	sign    float64
}

var (
	fUsage       = rawFeature{get: func(f *PlayerFeatures) float64 { return f.UsgPct }}
	fPullUp      = rawFeature{get: func(f *PlayerFeatures) float64 { return f.PullUpPct }}
	fSecTouch    = rawFeature{get: func(f *PlayerFeatures) float64 { return f.SecondsPerTouch }}
	fDribbles    = rawFeature{get: func(f *PlayerFeatures) float64 { return f.DribblesPerTouch }}
	fAst         = rawFeature{get: func(f *PlayerFeatures) float64 { return f.AstPer100 }}
	fTouches     = rawFeature{get: func(f *PlayerFeatures) float64 { return f.TouchesPerMin }}
	fRim         = rawFeature{get: func(f *PlayerFeatures) float64 { return f.RimShare }}
	fPost        = rawFeature{get: func(f *PlayerFeatures) float64 { return f.PostTouches }}
	fPaint       = rawFeature{get: func(f *PlayerFeatures) float64 { return f.PaintTouches }}
	fFg3Pct      = rawFeature{get: func(f *PlayerFeatures) float64 { return f.Fg3Pct }}
	fCatchShoot  = rawFeature{get: func(f *PlayerFeatures) float64 { return f.CatchShootPct }}
	fPullUpThree = rawFeature{get: func(f *PlayerFeatures) float64 { return f.PullUpThreeShare }}
	fCSThree     = rawFeature{get: func(f *PlayerFeatures) float64 { return f.CatchShootThreeShare }}
	fPossession  = rawFeature{get: func(f *PlayerFeatures) float64 { return f.TimeOfPossession }}
	fReb         = rawFeature{get: func(f *PlayerFeatures) float64 { return f.RebPer100 }}
	fBoxOuts     = rawFeature{get: func(f *PlayerFeatures) float64 { return f.BoxOuts }}
	fStl         = rawFeature{get: func(f *PlayerFeatures) float64 { return f.StlPer100 }}
	fBlk         = rawFeature{get: func(f *PlayerFeatures) float64 { return f.BlkPer100 }}
	fDeflections = rawFeature{get: func(f *PlayerFeatures) float64 { return f.Deflections }}
	fContests    = rawFeature{get: func(f *PlayerFeatures) float64 { return f.Contests }}
	fHeight      = rawFeature{get: func(f *PlayerFeatures) float64 { return f.HeightIn }, physical: true}
	fWeight      = rawFeature{get: func(f *PlayerFeatures) float64 { return f.WeightLbs }, physical: true}
	fWingspan    = rawFeature{get: func(f *PlayerFeatures) float64 { return f.WingspanIn }, physical: true}
)

var indexTerms = [NumIndices][]term{
	Creation:   {{fUsage, 1}, {fPullUp, 1}, {fSecTouch, 1}, {fDribbles, 1}},
	Playmaking: {{fAst, 1}, {fTouches, 1}},
	Interior:   {{fRim, 1}, {fPost, 1}, {fPaint, 1}},
	Perimeter:  {{fFg3Pct, 1}, {fCatchShoot, 1}, {fPullUpThree, 1}},
	Offball:    {{fCSThree, 1}, {fPossession, -1}},
	Rebound:    {{fReb, 1}, {fBoxOuts, 1}},
	Defense:    {{fStl, 1}, {fBlk, 1}, {fDeflections, 1}, {fContests, 1}},
	Size:       {{fHeight, 1}, {fWeight, 1}, {fWingspan, 1}},
}

func (r rawFeature) value(f *PlayerFeatures) float64 {
	v := r.get(f)
	if r.physical && v <= 0 {
		return math.NaN()
	}
	return v
}

// BuildIndices computes the composite indices for every player. Each raw feature is
// z-scored with the population mean and standard deviation of the pool; missing
// values take the pool median first, and a feature with no spread contributes 0.
func BuildIndices(players []PlayerFeatures) []Indices {
	out := make([]Indices, len(players))
	if len(players) == 0 {
		return out
	}

	for idx, terms := range indexTerms {
		for _, t := range terms {
			z := zscores(players, t.feature)
			for p := range players {
				out[p][idx] += t.sign * z[p]
			}
		}
	}
	return out
}

func zscores(players []PlayerFeatures, feature rawFeature) []float64 {
	values := make([]float64, len(players))
	var present []float64
	for i := range players {
		values[i] = feature.value(&players[i])
		if !math.IsNaN(values[i]) {
			present = append(present, values[i])
		}
	}

	z := make([]float64, len(players))
	if len(present) == 0 {
		return z
	}
	fill := median(present)
	for i, v := range values {
		if math.IsNaN(v) {
			values[i] = fill
		}
	}

	mean, sd := stat.PopMeanStdDev(values, nil)
	if sd == 0 || math.IsNaN(sd) {
		return z
	}
	for i, v := range values {
		z[i] = (v - mean) / sd
	}
	return z
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// CorrelationPair is the Pearson correlation between two composite indices.
type CorrelationPair struct {
	A, B string
	R    float64
}

// Correlations returns every index pair whose |r| reaches threshold.
func Correlations(indices []Indices, threshold float64) []CorrelationPair {
	if len(indices) < 3 {
		return nil
	}
	cols := make([][]float64, NumIndices)
	for i := range cols {
		cols[i] = make([]float64, len(indices))
		for p, ix := range indices {
			cols[i][p] = ix[i]
		}
	}

	var pairs []CorrelationPair
	for i := 0; i < NumIndices; i++ {
		for j := i + 1; j < NumIndices; j++ {
			r := stat.Correlation(cols[i], cols[j], nil)
			if math.IsNaN(r) {
				continue
			}
			if math.Abs(r) >= threshold {
				pairs = append(pairs, CorrelationPair{A: IndexNames[i], B: IndexNames[j], R: r})
			}
		}
	}
	return pairs
}
