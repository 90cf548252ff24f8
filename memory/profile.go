package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/amicalabs/amica/core"
)

// Indicator phrases for communication-style inference. These run over
// stored memory content, not raw messages, so the lists are short.
var (
	profileFormalIndicators = []string{"please", "thank you", "would you", "could you"}
	profileCasualIndicators = []string{"hey", "yeah", "cool", "awesome", "lol"}
)

// interestCategories maps each interest label to its trigger keywords.
// Order is fixed so derived interest lists are deterministic.
var interestCategories = []struct {
	label    string
	keywords []string
}{
	{"technology", []string{"tech", "programming", "ai", "computer", "software"}},
	{"sports", []string{"football", "basketball", "soccer", "tennis", "gym"}},
	{"music", []string{"music", "song", "band", "concert", "album"}},
	{"movies", []string{"movie", "film", "cinema", "actor", "director"}},
	{"travel", []string{"travel", "trip", "vacation", "country", "city"}},
	{"food", []string{"food", "restaurant", "cooking", "recipe", "cuisine"}},
}

const maxInterests = 5

// Sentiment words for the positivity/volatility estimate over memory
// content. Deliberately smaller than the tone package's lists.
var (
	profilePositiveWords = []string{"happy", "excited", "love", "great", "awesome", "wonderful"}
	profileNegativeWords = []string{"sad", "angry", "frustrated", "disappointed", "worried"}
)

// Profile derives a UserProfile from the user's most recent memories.
// It is computed fresh on every call; callers that want caching own it.
// A user with no memories gets the fixed default profile, not an error.
func (s *Store) Profile(ctx context.Context, userID string) (core.UserProfile, error) {
	if userID == "" {
		return core.DefaultProfile(), fmt.Errorf("profile: empty user ID")
	}

	results, err := s.index.List(ctx, Filter{UserID: userID}, s.cfg.ProfileWindow)
	if err != nil {
		return core.DefaultProfile(), fmt.Errorf("list memories: %w", err)
	}
	if len(results) == 0 {
		return core.DefaultProfile(), nil
	}

	contents := make([]string, 0, len(results))
	for _, r := range results {
		contents = append(contents, strings.ToLower(r.Content))
	}

	style := inferStyle(contents)
	positivity, volatility := emotionalPattern(contents)

	profile := core.UserProfile{
		CommunicationStyle:   style,
		FormalityPreference:  style,
		TopicsOfInterest:     inferInterests(contents),
		EmotionalSensitivity: deriveSensitivity(positivity, volatility),
		Positivity:           positivity,
		Volatility:           volatility,
	}

	s.logger.Debug("profile derived",
		zap.String("user_id", userID),
		zap.String("style", style),
		zap.Int("memories", len(results)))
	return profile, nil
}

// inferStyle counts formal against casual indicator phrases. Either side
// must beat the other by half again to leave neutral.
func inferStyle(contents []string) string {
	var formal, casual int
	for _, content := range contents {
		for _, ind := range profileFormalIndicators {
			if strings.Contains(content, ind) {
				formal++
			}
		}
		for _, ind := range profileCasualIndicators {
			if strings.Contains(content, ind) {
				casual++
			}
		}
	}
	switch {
	case float64(formal) > float64(casual)*1.5:
		return "formal"
	case float64(casual) > float64(formal)*1.5:
		return "casual"
	default:
		return "neutral"
	}
}

func inferInterests(contents []string) []string {
	var interests []string
	seen := make(map[string]bool)
	for _, content := range contents {
		for _, cat := range interestCategories {
			if seen[cat.label] {
				continue
			}
			for _, kw := range cat.keywords {
				if strings.Contains(content, kw) {
					interests = append(interests, cat.label)
					seen[cat.label] = true
					break
				}
			}
		}
	}
	if len(interests) > maxInterests {
		interests = interests[:maxInterests]
	}
	return interests
}

// emotionalPattern estimates valence and emotional load from sentiment word
// density across memory content.
func emotionalPattern(contents []string) (positivity, volatility float64) {
	var pos, neg, total int
	for _, content := range contents {
		words := strings.Fields(content)
		total += len(words)
		for _, w := range words {
			for _, p := range profilePositiveWords {
				if w == p {
					pos++
					break
				}
			}
			for _, n := range profileNegativeWords {
				if w == n {
					neg++
					break
				}
			}
		}
	}
	if total == 0 {
		return 0.5, 0.3
	}
	positivity = clampFloat(0.5+float64(pos-neg)/float64(total)*10, 0.1, 0.9)
	volatility = float64(pos+neg) / float64(total) * 20
	if volatility > 0.8 {
		volatility = 0.8
	}
	return positivity, volatility
}

// deriveSensitivity maps the valence pair onto the [0.1,1.0] sensitivity
// scale. Calibrated so the default pair (0.5, 0.3) lands on the neutral 0.5:
// negative valence and volatility both warrant gentler handling.
func deriveSensitivity(positivity, volatility float64) float64 {
	return clampFloat((1-positivity)*0.7+volatility*0.5, 0.1, 1.0)
}

// Stats summarizes a user's memory set.
type Stats struct {
	Total             int
	ByType            map[Type]int
	AverageImportance float64
}

// Stats reports totals, per-type counts, and average importance for a
// user's memories.
func (s *Store) Stats(ctx context.Context, userID string) (Stats, error) {
	results, err := s.index.List(ctx, Filter{UserID: userID}, 0)
	if err != nil {
		return Stats{}, fmt.Errorf("list memories: %w", err)
	}

	stats := Stats{ByType: make(map[Type]int)}
	importanceSum := 0
	for _, r := range results {
		mem := fromResult(r)
		stats.Total++
		stats.ByType[mem.Type]++
		importanceSum += mem.Importance
	}
	if stats.Total > 0 {
		stats.AverageImportance = float64(importanceSum) / float64(stats.Total)
	}
	return stats, nil
}

// Prune deletes memories older than olderThan whose importance is at or
// below maxImportance, and returns how many were removed. Important
// memories survive regardless of age.
func (s *Store) Prune(ctx context.Context, userID string, olderThan time.Duration, maxImportance int) (int, error) {
	results, err := s.index.List(ctx, Filter{UserID: userID}, 0)
	if err != nil {
		return 0, fmt.Errorf("list memories: %w", err)
	}

	cutoff := s.now().Add(-olderThan)
	removed := 0
	for _, r := range results {
		mem := fromResult(r)
		if mem.Importance > maxImportance || !mem.CreatedAt.Before(cutoff) {
			continue
		}
		if err := s.index.Delete(ctx, userID, mem.ID); err != nil {
			return removed, fmt.Errorf("delete memory %s: %w", mem.ID, err)
		}
		removed++
	}

	if removed > 0 {
		s.logger.Info("pruned memories",
			zap.String("user_id", userID),
			zap.Int("removed", removed))
	}
	return removed, nil
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
