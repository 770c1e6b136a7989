package funcs

import (
	"container/list"
	"context"
	"regexp"
	"sync"
	"time"

	"github.com/fhirpath-go/fhirpath/pkg/fhirpath/eval"
)

// inlineMatchThreshold is the string length below which matching/replacing
// runs inline rather than on a goroutine watched against ctx — below this,
// the regex engine itself finishes faster than spinning up and selecting on
// a channel would.
const inlineMatchThreshold = 1000

// RegexCache compiles and caches regexes used by matches()/replaceMatches(),
// bounding both cache size (LRU) and pattern complexity (ReDoS protection)
// since patterns in a FHIRPath expression are not necessarily trusted input.
type RegexCache struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List // front = most recently used
	limit   int
	maxLen  int
	timeout time.Duration
}

type regexEntry struct {
	pattern string
	re      *regexp.Regexp
}

// DefaultRegexCache backs funcs that don't construct their own RegexCache.
var DefaultRegexCache = NewRegexCache(500, 1000, 100*time.Millisecond)

// NewRegexCache builds a cache holding at most limit compiled patterns, each
// no longer than maxLen characters, with timeout bounding how long a single
// match/replace may run against untrusted input strings.
func NewRegexCache(limit, maxLen int, timeout time.Duration) *RegexCache {
	return &RegexCache{
		entries: make(map[string]*list.Element),
		order:   list.New(),
		limit:   limit,
		maxLen:  maxLen,
		timeout: timeout,
	}
}

// Compile validates pattern, then returns its cached *regexp.Regexp,
// compiling and inserting on a miss.
func (c *RegexCache) Compile(pattern string) (*regexp.Regexp, error) {
	if len(pattern) > c.maxLen {
		return nil, eval.NewEvalError(eval.ErrInvalidExpression,
			"regex pattern too long (max %d characters)", c.maxLen)
	}
	if err := validateRegexComplexity(pattern); err != nil {
		return nil, err
	}

	c.mu.Lock()
	if el, ok := c.entries[pattern]; ok {
		c.order.MoveToFront(el)
		re := el.Value.(*regexEntry).re
		c.mu.Unlock()
		return re, nil
	}
	c.mu.Unlock()

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, eval.NewEvalError(eval.ErrInvalidExpression, "invalid regex: %s", err.Error())
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[pattern]; ok {
		c.order.MoveToFront(el)
		return el.Value.(*regexEntry).re, nil
	}
	if c.limit > 0 && len(c.entries) >= c.limit {
		c.evictLRU()
	}
	el := c.order.PushFront(&regexEntry{pattern: pattern, re: re})
	c.entries[pattern] = el
	return re, nil
}

// evictLRU drops the least-recently-used pattern. Caller must hold c.mu.
func (c *RegexCache) evictLRU() {
	oldest := c.order.Back()
	if oldest == nil {
		return
	}
	c.order.Remove(oldest)
	delete(c.entries, oldest.Value.(*regexEntry).pattern)
}

func (c *RegexCache) MatchWithTimeout(ctx context.Context, pattern, s string) (bool, error) {
	re, err := c.Compile(pattern)
	if err != nil {
		return false, err
	}
	return c.boundedRun(ctx, s, re.MatchString)
}

func (c *RegexCache) ReplaceWithTimeout(ctx context.Context, pattern, s, replacement string) (string, error) {
	re, err := c.Compile(pattern)
	if err != nil {
		return "", err
	}
	replaced, err := c.boundedRunString(ctx, s, func(s string) string {
		return re.ReplaceAllString(s, replacement)
	})
	return replaced, err
}

// boundedRun runs fn(s) inline for short strings, or on a watched goroutine
// for long ones so a pathological pattern can't block the caller past
// c.timeout (or ctx's own deadline, whichever is sooner).
func (c *RegexCache) boundedRun(ctx context.Context, s string, fn func(string) bool) (bool, error) {
	if len(s) < inlineMatchThreshold {
		return fn(s), nil
	}
	done := make(chan bool, 1)
	go func() { done <- fn(s) }()
	select {
	case result := <-done:
		return result, nil
	case <-ctx.Done():
		return false, ctx.Err()
	case <-time.After(c.effectiveTimeout(ctx)):
		return false, eval.NewEvalError(eval.ErrTimeout, "regex match timeout exceeded")
	}
}

func (c *RegexCache) boundedRunString(ctx context.Context, s string, fn func(string) string) (string, error) {
	if len(s) < inlineMatchThreshold {
		return fn(s), nil
	}
	done := make(chan string, 1)
	go func() { done <- fn(s) }()
	select {
	case result := <-done:
		return result, nil
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(c.effectiveTimeout(ctx)):
		return "", eval.NewEvalError(eval.ErrTimeout, "regex replace timeout exceeded")
	}
}

func (c *RegexCache) effectiveTimeout(ctx context.Context) time.Duration {
	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	return timeout
}

func (c *RegexCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.order = list.New()
}

func (c *RegexCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// validateRegexComplexity rejects patterns with hallmark ReDoS shapes:
// consecutive quantifiers (`a**`, `a*+`) and deeply nested groups, both of
// which can make a regex engine's backtracking blow up on crafted input.
func validateRegexComplexity(pattern string) error {
	const maxGroupDepth = 5

	var groupDepth, maxDepthSeen int
	var prevWasQuantifier bool

	for _, ch := range pattern {
		switch ch {
		case '(':
			groupDepth++
			if groupDepth > maxDepthSeen {
				maxDepthSeen = groupDepth
			}
			prevWasQuantifier = false
		case ')':
			if groupDepth > 0 {
				groupDepth--
			}
			prevWasQuantifier = false
		case '*', '+', '?', '{':
			if prevWasQuantifier {
				return eval.NewEvalError(eval.ErrInvalidExpression,
					"potentially dangerous regex: consecutive quantifiers")
			}
			prevWasQuantifier = true
		default:
			prevWasQuantifier = false
		}
	}

	if maxDepthSeen > maxGroupDepth {
		return eval.NewEvalError(eval.ErrInvalidExpression,
			"regex has too much nesting (max depth %d)", maxGroupDepth)
	}
	return nil
}
