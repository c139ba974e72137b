package book

import (
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fixedRand float64

func (f fixedRand) Float64() float64 { return float64(f) }

func fixedClassifier(draw float64, year int) *Classifier {
	return &Classifier{
		Rand: fixedRand(draw),
		Now:  func() time.Time { return time.Date(year, time.June, 1, 0, 0, 0, 0, time.UTC) },
	}
}

func TestClassifier_Rating(t *testing.T) {
	t.Run("recent multi-author popular book", func(t *testing.T) {
		c := fixedClassifier(0.5, 2024)
		r := Record{
			FirstPublishYear: IntPtr(2020),
			EditionCount:     IntPtr(12),
			AuthorName:       []string{"A", "B"},
		}
		assert.Equal(t, 4.5, c.Classify(r).Rating)
	})

	t.Run("classic gets a full star", func(t *testing.T) {
		c := fixedClassifier(0.5, 2024)
		r := Record{FirstPublishYear: IntPtr(1900), AuthorName: []string{}}
		assert.Equal(t, 4.0, c.Classify(r).Rating)
	})

	t.Run("unknown year skips age adjustments", func(t *testing.T) {
		c := fixedClassifier(0.5, 2024)
		assert.Equal(t, 3.0, c.Classify(Record{AuthorName: []string{}}).Rating)
	})

	t.Run("jitter is rounded to half steps", func(t *testing.T) {
		low := fixedClassifier(0, 2024)
		high := fixedClassifier(0.999, 2024)
		r := Record{AuthorName: []string{}}
		// 3.0 - 0.25 rounds up to 3.0, 3.0 + ~0.25 rounds to 3.0.
		assert.Equal(t, 3.0, low.Classify(r).Rating)
		assert.Equal(t, 3.0, high.Classify(r).Rating)
	})

	t.Run("maximum is clamped to five", func(t *testing.T) {
		c := fixedClassifier(0.999, 2024)
		r := Record{
			FirstPublishYear: IntPtr(1800),
			EditionCount:     IntPtr(500),
			AuthorName:       []string{"A", "B", "C"},
		}
		assert.Equal(t, 5.0, c.Classify(r).Rating)
	})
}

func TestClassifier_RatingBounds(t *testing.T) {
	c := NewClassifier()
	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 2000; i++ {
		r := Record{AuthorName: make([]string, rng.IntN(4))}
		if rng.IntN(2) == 0 {
			r.FirstPublishYear = IntPtr(1500 + rng.IntN(600))
		}
		if rng.IntN(2) == 0 {
			r.EditionCount = IntPtr(rng.IntN(40))
		}
		got := c.Classify(r).Rating
		assert.GreaterOrEqual(t, got, 1.0)
		assert.LessOrEqual(t, got, 5.0)
		assert.Equal(t, 0.0, math.Mod(got*2, 1), "rating %v is not a half step", got)
	}
}

func TestClassifier_IsPremium(t *testing.T) {
	tests := []struct {
		name   string
		record Record
		draw   float64
		want   bool
	}{
		{"keyword in title", Record{Title: StringPtr("Advanced Go Programming")}, 0, true},
		{"multi-word keyword", Record{Title: StringPtr("The Complete Guide to Knots")}, 0, true},
		{"keyword is case-insensitive", Record{Title: StringPtr("MASTER of none")}, 0, true},
		{"recent with many editions", Record{FirstPublishYear: IntPtr(2015), EditionCount: IntPtr(6)}, 0, true},
		{"recent with few editions", Record{FirstPublishYear: IntPtr(2015), EditionCount: IntPtr(5)}, 0, false},
		{"old with many editions", Record{FirstPublishYear: IntPtr(2010), EditionCount: IntPtr(50)}, 0, false},
		{"random draw above threshold", Record{Title: StringPtr("Plain")}, 0.71, true},
		{"random draw at threshold", Record{Title: StringPtr("Plain")}, 0.7, false},
		{"nil title", Record{}, 0.2, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := fixedClassifier(tt.draw, 2024)
			assert.Equal(t, tt.want, c.Classify(tt.record).IsPremium)
		})
	}
}

func TestClassifier_ApplyDoesNotTouchOtherFields(t *testing.T) {
	c := fixedClassifier(0.5, 2024)
	in := Record{ID: "ol_/works/OL1W", Title: StringPtr("Dune"), AuthorName: []string{"Frank Herbert"}}
	out := c.Apply(in)

	assert.Equal(t, in.ID, out.ID)
	assert.Equal(t, in.Title, out.Title)
	assert.Equal(t, 0.0, in.Rating)
	assert.NotZero(t, out.Rating)
}

func TestClampRating(t *testing.T) {
	assert.Equal(t, 1.0, ClampRating(-3))
	assert.Equal(t, 5.0, ClampRating(9))
	assert.Equal(t, 3.5, ClampRating(3.25))
	assert.Equal(t, 3.0, ClampRating(3.24))
}
