package stream

// HashSet is a set of transaction hashes.
type HashSet map[string]struct{}

// NewHashSet builds a set from hashes.
func NewHashSet(hashes ...string) HashSet {
	set := make(HashSet, len(hashes))
	for _, h := range hashes {
		set.Add(h)
	}
	return set
}

func (s HashSet) Add(hash string) {
	s[hash] = struct{}{}
}

func (s HashSet) Has(hash string) bool {
	_, ok := s[hash]
	return ok
}

func (s HashSet) Len() int {
	return len(s)
}
