package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClamp(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{-10, 0},
		{0, 0},
		{50, 50},
		{100, 100},
		{135, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Clamp(tt.in), "Clamp(%d)", tt.in)
	}
}

func TestUsageScore(t *testing.T) {
	tests := []struct {
		name     string
		usage    int
		rating   int
		favorite bool
		want     int
	}{
		{"first use of favourite rated 5", 1, 5, true, 75},
		{"first use rated 5", 1, 5, false, 55},
		{"unrated", 3, 0, false, 15},
		{"saturates at max", 20, 5, true, 100},
		{"negative rating floors at zero", 1, -3, false, 0},
		{"huge rating saturates instead of wrapping", 1, math.MaxInt/10 + 1, false, 100},
		{"huge usage saturates instead of wrapping", math.MaxInt, 5, false, 100},
		{"huge negative rating floors at zero", 1, math.MinInt / 10, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UsageScore(tt.usage, tt.rating, tt.favorite))
		})
	}
}

func TestFavoriteScore(t *testing.T) {
	assert.Equal(t, 70, FavoriteScore(50, true))
	assert.Equal(t, 100, FavoriteScore(95, true))
	assert.Equal(t, 70, FavoriteScore(70, false), "un-favouriting keeps the score")
}

func TestScoreStaysInRange(t *testing.T) {
	score := NeutralScore
	usage := 0
	fav := false
	for i := 0; i < 200; i++ {
		if i%3 == 0 {
			fav = !fav
			score = FavoriteScore(score, fav)
		} else {
			usage++
			score = UsageScore(usage, 7, fav)
		}
		if score < MinScore || score > MaxScore {
			t.Fatalf("step %d: score %d out of range", i, score)
		}
	}
}
