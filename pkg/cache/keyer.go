package cache

// AllocationKeyOpts holds the run options that change an allocation result.
type AllocationKeyOpts struct {
	BasicUnitSize float64 `json:"basic_unit_size"`
	Margin        float64 `json:"margin"`
	EdgeRule      string  `json:"edge_rule"`
}

// Keyer builds cache keys.
type Keyer interface {
	// AllocationKey identifies the result of allocating the projects hashed
	// into demandHash onto the floor plan hashed into floorPlanHash.
	AllocationKey(floorPlanHash, demandHash string, opts AllocationKeyOpts) string
}

// DefaultKeyer produces keys of the form "alloc:<sha256>".
type DefaultKeyer struct{}

// NewDefaultKeyer returns the keyer used when none is configured.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

func (DefaultKeyer) AllocationKey(floorPlanHash, demandHash string, opts AllocationKeyOpts) string {
	return hashKey("alloc", floorPlanHash, demandHash, opts)
}

// ScopedKeyer prepends a fixed prefix to every key of an inner Keyer, so
// several tenants can share one Redis without seeing each other's results.
//
//	keyer := cache.NewScopedKeyer(cache.NewDefaultKeyer(), "event:2024:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer wraps inner. A nil inner means DefaultKeyer.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

func (k *ScopedKeyer) AllocationKey(floorPlanHash, demandHash string, opts AllocationKeyOpts) string {
	return k.prefix + k.inner.AllocationKey(floorPlanHash, demandHash, opts)
}
