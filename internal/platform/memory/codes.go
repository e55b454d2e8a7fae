package memory

import (
	"context"
	"sync"
	"time"
)

// MaxCodeAttempts is how many wrong guesses invalidate a stored code.
const MaxCodeAttempts = 5

type codeEntry struct {
	code     string
	expires  time.Time
	failures int
}

// CodeStore keeps one-time codes in process memory. It is used when Redis is
// not configured.
type CodeStore struct {
	mu    sync.Mutex
	codes map[string]codeEntry
	now   func() time.Time
}

// NewCodeStore creates an empty code store.
func NewCodeStore() *CodeStore {
	return &CodeStore{codes: make(map[string]codeEntry), now: time.Now}
}

// Save stores code for subject, replacing any previous code for the same purpose.
func (s *CodeStore) Save(_ context.Context, purpose, subject, code string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, e := range s.codes {
		if !now.Before(e.expires) {
			delete(s.codes, k)
		}
	}
	s.codes[purpose+":"+subject] = codeEntry{code: code, expires: now.Add(ttl)}
	return nil
}

// Consume reports whether code matches the stored one and deletes it on a
// match or after MaxCodeAttempts wrong guesses.
func (s *CodeStore) Consume(_ context.Context, purpose, subject, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := purpose + ":" + subject
	e, ok := s.codes[key]
	if !ok {
		return false, nil
	}
	if !s.now().Before(e.expires) {
		delete(s.codes, key)
		return false, nil
	}
	if e.code != code {
		e.failures++
		if e.failures >= MaxCodeAttempts {
			delete(s.codes, key)
		} else {
			s.codes[key] = e
		}
		return false, nil
	}
	delete(s.codes, key)
	return true, nil
}
