package book

import (
	"math"
	"math/rand/v2"
	"strings"
	"sync"
	"time"
)

var premiumKeywords = []string{"advanced", "professional", "expert", "master", "comprehensive", "complete guide"}

// RandSource yields uniform draws in [0, 1). *rand.Rand satisfies it.
type RandSource interface {
	Float64() float64
}

// Classification holds the derived fields of a record.
type Classification struct {
	IsPremium bool
	Rating    float64
}

// Classifier derives premium status and a star rating from record metadata.
//
// The random components are a stand-in for real entitlement and review data;
// tests pin them through Rand.
type Classifier struct {
	Rand RandSource
	Now  func() time.Time

	mu sync.Mutex
}

// NewClassifier returns a Classifier backed by a freshly seeded source.
func NewClassifier() *Classifier {
	return &Classifier{
		Rand: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		Now:  time.Now,
	}
}

// Classify computes the derived fields for r.
func (c *Classifier) Classify(r Record) Classification {
	return Classification{
		IsPremium: c.isPremium(r),
		Rating:    c.rating(r),
	}
}

// Apply returns r with IsPremium and Rating filled in.
func (c *Classifier) Apply(r Record) Record {
	cl := c.Classify(r)
	r.IsPremium = cl.IsPremium
	r.Rating = cl.Rating
	return r
}

func (c *Classifier) isPremium(r Record) bool {
	title := strings.ToLower(r.TitleText())
	for _, kw := range premiumKeywords {
		if strings.Contains(title, kw) {
			return true
		}
	}
	recent := r.FirstPublishYear != nil && *r.FirstPublishYear > 2010
	manyEditions := r.EditionCount != nil && *r.EditionCount > 5
	if recent && manyEditions {
		return true
	}
	return c.draw() > 0.7
}

func (c *Classifier) rating(r Record) float64 {
	rating := 3.0
	if r.FirstPublishYear != nil {
		age := c.Now().Year() - *r.FirstPublishYear
		if age < 5 {
			rating += 0.5
		} else if age > 50 {
			rating += 1
		}
	}
	if r.EditionCount != nil && *r.EditionCount > 10 {
		rating += 0.5
	}
	if len(r.AuthorName) > 1 {
		rating += 0.5
	}
	rating += (c.draw() - 0.5) * 0.5
	return ClampRating(rating)
}

func (c *Classifier) draw() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Rand.Float64()
}

// ClampRating rounds to the nearest half star and bounds the result to [1, 5].
func ClampRating(v float64) float64 {
	v = math.Floor(v*2+0.5) / 2
	return math.Max(1, math.Min(5, v))
}
