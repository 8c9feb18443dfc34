package exercise

import "math"

// Overall scores live on the DET 10-160 scale. Ratio-scored exercises can
// produce raw values below the floor; the floor is the scale minimum, not
// zero.
const (
	ScoreFloor   = 10
	ScoreCeiling = 160
)

// tier maps a threshold to a fixed score. Tiers are policy constants taken
// from the product's scoring rules; keep them table-driven so adjustments
// stay trivial.
type tier struct {
	Min   float64
	Score int
}

type tierTable []tier

// lookup returns the score of the highest tier whose threshold v meets.
// Tables are ordered descending; the last entry is the catch-all.
func (t tierTable) lookup(v float64) int {
	for _, entry := range t {
		if v >= entry.Min {
			return entry.Score
		}
	}
	return t[len(t)-1].Score
}

// speakingTiers scores recorded duration in seconds.
var speakingTiers = tierTable{
	{Min: 30, Score: 135},
	{Min: 20, Score: 115},
	{Min: 10, Score: 95},
	{Min: 0, Score: 70},
}

// writingTiers scores essay word count.
var writingTiers = tierTable{
	{Min: 100, Score: 140},
	{Min: 75, Score: 120},
	{Min: 50, Score: 100},
	{Min: 25, Score: 80},
	{Min: 0, Score: 60},
}

// ratioScore maps correct/total onto the 0-160 scale, rounded.
func ratioScore(correct, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(correct) / float64(total) * ScoreCeiling))
}

// clampOverall bounds a score to the [10,160] overall scale.
func clampOverall(score int) int {
	if score < ScoreFloor {
		return ScoreFloor
	}
	if score > ScoreCeiling {
		return ScoreCeiling
	}
	return score
}
