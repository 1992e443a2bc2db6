// Package scoring computes the vault preference score: a deterministic 0-100
// popularity/quality proxy used to order records for display.
package scoring

const (
	// MinScore and MaxScore bound every preference score.
	MinScore = 0
	MaxScore = 100

	// NeutralScore is assigned to new records until their first use or
	// favourite action, regardless of rating.
	NeutralScore = 50

	// FavoriteBonus is added when a record is a favourite.
	FavoriteBonus = 20

	usageWeight  = 5
	ratingWeight = 10

	// operandLimit bounds the inputs of UsageScore so the weighted sum cannot
	// overflow; anything beyond it already saturates the score.
	operandLimit = 1 << 20
)

// Clamp limits score to [MinScore, MaxScore].
func Clamp(score int) int {
	return max(MinScore, min(MaxScore, score))
}

// UsageScore recomputes the score of a record that has just been consumed as
// a generation input. usageCount must already include the current use.
func UsageScore(usageCount, rating int, favorite bool) int {
	score := saturate(usageCount)*usageWeight + saturate(rating)*ratingWeight
	if favorite {
		score += FavoriteBonus
	}
	return Clamp(score)
}

func saturate(v int) int {
	return max(-operandLimit, min(operandLimit, v))
}

// FavoriteScore returns the score after a favourite toggle. Turning the
// favourite on adds a flat bonus; turning it off keeps the current score.
func FavoriteScore(current int, nowFavorite bool) int {
	if !nowFavorite {
		return Clamp(current)
	}
	return Clamp(current + FavoriteBonus)
}
