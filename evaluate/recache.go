package evaluate

import (
	"regexp"
	"sync"
)

// reCache caches ad-hoc compilations for kinds whose patterns live in list
// payloads and so are not precompiled per architecture. Insert-if-absent is
// idempotent, same as the resolver cache.
var reCache sync.Map // pattern → *regexp.Regexp

func compileCached(pattern string) (*regexp.Regexp, error) {
	if cached, ok := reCache.Load(pattern); ok {
		return cached.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	actual, _ := reCache.LoadOrStore(pattern, re)
	return actual.(*regexp.Regexp), nil
}
