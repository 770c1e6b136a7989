package types

import "sync"

// This file holds the small allocation-avoidance helpers the evaluator
// reaches for on its hot paths: building a Collection per AST node visited
// and wrapping/unwrapping Boolean and small Integer values is otherwise one
// of the biggest allocation sources in a tree walk over a large resource.

var collectionPool = sync.Pool{
	New: func() interface{} {
		c := make(Collection, 0, 4) // 4 covers most navigation results
		return &c
	},
}

// GetCollection borrows a zero-length Collection with spare capacity from
// the pool; pair with PutCollection once the caller is done with it.
func GetCollection() *Collection {
	return collectionPool.Get().(*Collection)
}

// PutCollection returns c to the pool, truncating it to length 0 first so
// the next borrower doesn't see stale elements.
func PutCollection(c *Collection) {
	if c == nil {
		return
	}
	*c = (*c)[:0]
	collectionPool.Put(c)
}

// NewCollectionWithCap preallocates for a known-size result (e.g. a
// fixed-length array field) to skip the slice's own growth reallocations.
func NewCollectionWithCap(capacity int) Collection {
	return make(Collection, 0, capacity)
}

// SingletonCollection wraps one Value as a length-1 Collection.
func SingletonCollection(v Value) Collection {
	return Collection{v}
}

// EmptyCollection is a shared, never-mutated Empty result; callers must
// treat it as read-only since every caller sees the same backing slice.
var EmptyCollection = Collection{}

var (
	trueBoolean  = Boolean{value: true}
	falseBoolean = Boolean{value: false}
)

// GetBoolean returns one of two shared Boolean values rather than
// constructing a fresh struct each time.
func GetBoolean(b bool) Boolean {
	if b {
		return trueBoolean
	}
	return falseBoolean
}

// TrueCollection and FalseCollection are the singleton-Boolean results that
// where()/exists()/comparison operators produce constantly.
var (
	TrueCollection  = Collection{trueBoolean}
	FalseCollection = Collection{falseBoolean}
)

// integerCache covers the [-128, 127] range the way small-int caches
// typically do, since loop counters, $index, and small field values
// concentrate there.
var integerCache [256]Integer

func init() {
	for n := -128; n <= 127; n++ {
		integerCache[n+128] = Integer{value: int64(n)}
	}
}

// GetInteger returns a cached Integer within the cache's range, or
// allocates a fresh one outside it.
func GetInteger(n int64) Integer {
	if n >= -128 && n <= 127 {
		return integerCache[n+128]
	}
	return Integer{value: n}
}
