package service

import (
	"fmt"
	"hash/fnv"
	"math"

	"github.com/lshigami/Quolls/internal/model"
)

// ShuffleService produces reproducible per-user orderings of questions and
// options. It is a pure function of (items, seed): no clock, no global state.
// Reloading the page or resuming an attempt must yield the identical order,
// while different users (different seeds) see different orders. Option lists
// fold the question ID into the seed so sibling lists don't all collapse to
// the same permutation.
type ShuffleService interface {
	AttemptSeed(userID, testID uint) float64
	ShuffleQuestions(questions []model.Question, seed float64) []model.Question
	ShuffleOptions(options []model.Option, seed float64, questionID uint) []model.Option
}

type shuffleService struct{}

func NewShuffleService() ShuffleService {
	return &shuffleService{}
}

// AttemptSeed hashes "{userID}-{testID}" to a numeric seed. Hashing (rather
// than feeding the raw string into the PRNG) keeps distinct pairs from
// degenerating into one shared ordering.
func (s *shuffleService) AttemptSeed(userID, testID uint) float64 {
	h := fnv.New32a()
	fmt.Fprintf(h, "%d-%d", userID, testID)
	return float64(h.Sum32())
}

func (s *shuffleService) ShuffleQuestions(questions []model.Question, seed float64) []model.Question {
	return shuffleSlice(questions, seed)
}

func (s *shuffleService) ShuffleOptions(options []model.Option, seed float64, questionID uint) []model.Option {
	return shuffleSlice(options, seed+float64(questionID))
}

// shuffleSlice is a Fisher-Yates walk from the last element down to index 1,
// drawing each swap index from the seeded PRNG. The input is never mutated.
func shuffleSlice[T any](items []T, seed float64) []T {
	out := make([]T, len(items))
	copy(out, items)
	for i := len(out) - 1; i > 0; i-- {
		j := int(seededRand(seed+float64(i)) * float64(i+1))
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// seededRand maps a numeric seed to [0, 1) via the fractional part of
// sin(seed)*10000. Cheap, stateless and stable across platforms for the
// magnitudes of seed used here.
func seededRand(seed float64) float64 {
	x := math.Sin(seed) * 10000
	return x - math.Floor(x)
}
