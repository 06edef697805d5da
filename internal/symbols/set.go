package symbols

// Set is an unordered set of symbol IDs. The analyses treat nil as the
// empty set, so a freshly declared Set is usable without allocation.
type Set map[SymbolID]struct{}

func (s Set) Has(id SymbolID) bool {
	_, ok := s[id]
	return ok
}

func (s Set) Add(id SymbolID) {
	if !id.IsValid() {
		return
	}
	s[id] = struct{}{}
}

func (s Set) Remove(id SymbolID) {
	delete(s, id)
}

func (s Set) Len() int { return len(s) }

// Clone creates a copy of s. Nil stays nil.
func (s Set) Clone() Set {
	if len(s) == 0 {
		return nil
	}
	out := make(Set, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// Union merges src into dst and returns dst, allocating when dst is nil.
func Union(dst, src Set) Set {
	if dst == nil && len(src) > 0 {
		dst = make(Set, len(src))
	}
	for id := range src {
		dst[id] = struct{}{}
	}
	return dst
}

// Subtract returns src minus sub.
func Subtract(src, sub Set) Set {
	if len(src) == 0 {
		return nil
	}
	out := make(Set, len(src))
	for id := range src {
		if sub.Has(id) {
			continue
		}
		out[id] = struct{}{}
	}
	return out
}

// SetEqual checks if two sets contain the same elements.
func SetEqual(a, b Set) bool {
	if len(a) != len(b) {
		return false
	}
	for id := range a {
		if !b.Has(id) {
			return false
		}
	}
	return true
}
