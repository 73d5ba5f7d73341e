package anomaly

// Set is an ordered collection of anomalies keyed by observable name. The
// read methods treat a nil *Set as empty.
type Set struct {
	items []Anomaly
	index map[string]int
}

// NewSet builds a set from anomalies. A repeated observable replaces the
// earlier entry and keeps its position.
func NewSet(anomalies ...Anomaly) *Set {
	s := &Set{index: make(map[string]int)}
	for _, a := range anomalies {
		s.add(a)
	}
	return s
}

func (s *Set) add(a Anomaly) {
	if i, ok := s.index[a.Observable]; ok {
		s.items[i] = a
		return
	}
	s.index[a.Observable] = len(s.items)
	s.items = append(s.items, a)
}

// Len returns the number of anomalies
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// Has reports whether the observable is anomalous
func (s *Set) Has(observable string) bool {
	if s == nil {
		return false
	}
	_, ok := s.index[observable]
	return ok
}

// Get returns the anomaly for an observable
func (s *Set) Get(observable string) (Anomaly, bool) {
	if s == nil {
		return Anomaly{}, false
	}
	i, ok := s.index[observable]
	if !ok {
		return Anomaly{}, false
	}
	return s.items[i], true
}

// All returns the anomalies in detection order
func (s *Set) All() []Anomaly {
	if s == nil {
		return nil
	}
	out := make([]Anomaly, len(s.items))
	copy(out, s.items)
	return out
}

// Names returns the anomalous observable names in detection order
func (s *Set) Names() []string {
	if s == nil {
		return []string{}
	}
	names := make([]string, 0, len(s.items))
	for _, a := range s.items {
		names = append(names, a.Observable)
	}
	return names
}
