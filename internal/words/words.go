// internal/words/words.go
//
// Secret word sourcing for new games.
//
// Responsibilities:
//   - Ask an external random-word service for a candidate, up to 5 attempts,
//     discarding words outside the configured length bounds.
//   - Fall back to a local random generator when no service is configured or
//     every fetch attempt fails.
//
// Words are always lowercase a–z.

package words

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

// maxFetchAttempts bounds calls to the external word service per pick.
const maxFetchAttempts = 5

const letters = "abcdefghijklmnopqrstuvwxyz"

// Source produces secret words within [minLen, maxLen].
type Source struct {
	minLen int
	maxLen int
	apiURL string
	client *resty.Client
}

// NewSource builds a Source. apiURL may be empty, in which case only the
// local generator is used.
func NewSource(minLen, maxLen int, apiURL string) *Source {
	return &Source{
		minLen: minLen,
		maxLen: maxLen,
		apiURL: apiURL,
		client: resty.New().SetTimeout(5 * time.Second),
	}
}

// Pick returns a secret word. The external service is preferred; the local
// generator is the fallback, so Pick only fails on a broken length config.
func (s *Source) Pick(ctx context.Context) (string, error) {
	if s.apiURL != "" {
		if w, err := s.fetch(ctx); err == nil {
			return w, nil
		} else {
			log.Warn().Err(err).Msg("word service unavailable, using local generator")
		}
	}
	return s.generate()
}

// fetch asks the external service for candidates, discarding any outside the
// length bounds, for at most maxFetchAttempts tries.
func (s *Source) fetch(ctx context.Context) (string, error) {
	var lastErr error
	for i := 0; i < maxFetchAttempts; i++ {
		var words []string
		resp, err := s.client.R().
			SetContext(ctx).
			SetResult(&words).
			Get(s.apiURL)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.IsError() {
			lastErr = fmt.Errorf("word service returned %s", resp.Status())
			continue
		}
		if len(words) == 0 {
			lastErr = fmt.Errorf("word service returned no words")
			continue
		}
		w := strings.ToLower(strings.TrimSpace(words[0]))
		if len(w) < s.minLen || len(w) > s.maxLen || !isAlpha(w) {
			lastErr = fmt.Errorf("candidate %q outside bounds", w)
			continue
		}
		return w, nil
	}
	return "", fmt.Errorf("no usable word after %d attempts: %w", maxFetchAttempts, lastErr)
}

// generate builds a random lowercase word with a length drawn uniformly
// from [minLen, maxLen].
func (s *Source) generate() (string, error) {
	if s.minLen < 1 || s.maxLen < s.minLen {
		return "", fmt.Errorf("invalid length bounds: min=%d max=%d", s.minLen, s.maxLen)
	}
	span := int64(s.maxLen - s.minLen + 1)
	n, err := rand.Int(rand.Reader, big.NewInt(span))
	if err != nil {
		return "", err
	}
	length := s.minLen + int(n.Int64())

	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		j, err := rand.Int(rand.Reader, big.NewInt(int64(len(letters))))
		if err != nil {
			return "", err
		}
		b.WriteByte(letters[j.Int64()])
	}
	return b.String(), nil
}

// isAlpha checks that a string consists only of lowercase a–z.
func isAlpha(w string) bool {
	for _, r := range w {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}
