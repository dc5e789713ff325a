package ast

import "sync"

// The kind registry maps backend-specific node kinds onto canonical kinds so
// that different parsers for one logical format share a signature
// vocabulary. Registration may race with merges reading the table.
var kinds = struct {
	sync.RWMutex
	m map[kindKey]string
}{m: make(map[kindKey]string)}

type kindKey struct {
	format string
	raw    string
}

// RegisterKind records that raw, as produced by the named format's parser,
// means canonical.
func RegisterKind(format, raw, canonical string) {
	kinds.Lock()
	defer kinds.Unlock()
	kinds.m[kindKey{format, raw}] = canonical
}

// RegisterKinds registers every raw->canonical pair in m for format.
func RegisterKinds(format string, m map[string]string) {
	kinds.Lock()
	defer kinds.Unlock()
	for raw, canonical := range m {
		kinds.m[kindKey{format, raw}] = canonical
	}
}

// CanonicalKind returns the canonical kind registered for raw, or raw itself.
func CanonicalKind(format, raw string) string {
	kinds.RLock()
	defer kinds.RUnlock()
	if c, ok := kinds.m[kindKey{format, raw}]; ok {
		return c
	}
	return raw
}
