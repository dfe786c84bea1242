package minutes

import (
	"math"
	"strconv"
	"strings"
)

// DefaultBaselineMinutes is the empirical minutes-by-depth table: players ranked by
// minutes within each (game, team, position) group, averaged by rank across games.
func DefaultBaselineMinutes() map[string]float64 {
	return map[string]float64{
		"PG1": 32.64, "PG2": 20.46, "PG3": 12.58, "PG4": 9.46, "PG5": 5.09,
		"SG1": 31.39, "SG2": 20.55, "SG3": 14.01, "SG4": 9.21, "SG5": 6.67, "SG6": 5.69,
		"SF1": 30.99, "SF2": 20.16, "SF3": 12.63, "SF4": 8.75, "SF5": 5.96, "SF6": 5.80,
		"PF1": 28.94, "PF2": 18.74, "PF3": 12.72, "PF4": 8.94, "PF5": 5.64, "PF6": 4.00,
		"C1": 27.71, "C2": 15.32, "C3": 8.38, "C4": 5.57,
	}
}

// Band is the allowed minutes range around a slot baseline.
type Band struct {
	Low  float64 `mapstructure:"low"`
	High float64 `mapstructure:"high"`
	Max  float64 `mapstructure:"max"`
}

func DefaultBand() Band {
	return Band{Low: 0.65, High: 1.35, Max: 40}
}

// BaselineTable is a read-only lookup of expected minutes per depth slot.
type BaselineTable struct {
	minutes map[string]float64
	band    Band
}

// NewBaselineTable copies minutes into a table keyed by upper-case slot. Generic
// guard and forward slots (G1..G5, F1..F5) are derived as the average of their
// two positions unless supplied.
func NewBaselineTable(minutes map[string]float64, band Band) *BaselineTable {
	t := &BaselineTable{minutes: make(map[string]float64, len(minutes)+10), band: band}
	for slot, m := range minutes {
		t.minutes[strings.ToUpper(strings.TrimSpace(slot))] = m
	}
	for n := 1; n <= 5; n++ {
		suffix := strconv.Itoa(n)
		t.deriveGroup("G"+suffix, "PG"+suffix, "SG"+suffix)
		t.deriveGroup("F"+suffix, "SF"+suffix, "PF"+suffix)
	}
	return t
}

func (t *BaselineTable) deriveGroup(slot, a, b string) {
	if _, ok := t.minutes[slot]; ok {
		return
	}
	ma, okA := t.minutes[a]
	mb, okB := t.minutes[b]
	if okA && okB {
		t.minutes[slot] = round2((ma + mb) / 2)
	}
}

func DefaultBaselineTable() *BaselineTable {
	return NewBaselineTable(DefaultBaselineMinutes(), DefaultBand())
}

// Lookup returns the baseline minutes for slot, 0 when the slot is unknown.
func (t *BaselineTable) Lookup(slot string) float64 {
	return t.minutes[strings.ToUpper(strings.TrimSpace(slot))]
}

// Bounds returns the (floor, ceiling) minutes band for slot.
func (t *BaselineTable) Bounds(slot string) (float64, float64) {
	b := t.Lookup(slot)
	if b <= 0 {
		return 0, t.band.Max
	}
	floor := math.Max(0, b*t.band.Low)
	ceiling := math.Min(t.band.Max, b*t.band.High)
	return round2(floor), round2(ceiling)
}

// Clip bounds minutes to the slot's band.
func (t *BaselineTable) Clip(minutes float64, slot string) float64 {
	floor, ceiling := t.Bounds(slot)
	return math.Min(math.Max(minutes, floor), ceiling)
}

// MaxMinutes is the hard per-game cap.
func (t *BaselineTable) MaxMinutes() float64 {
	return t.band.Max
}

// SplitSlot splits "PG1" into ("PG", 1). ok is false when the slot carries no
// depth number.
func SplitSlot(slot string) (position string, depth int, ok bool) {
	slot = strings.ToUpper(strings.TrimSpace(slot))
	i := strings.IndexFunc(slot, func(r rune) bool { return r >= '0' && r <= '9' })
	if i <= 0 {
		return slot, 0, false
	}
	depth, err := strconv.Atoi(slot[i:])
	if err != nil || depth < 1 {
		return slot[:i], 0, false
	}
	return slot[:i], depth, true
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
