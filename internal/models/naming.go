package models

import "strings"

// Prefixes are the naming conventions used when a node is not found in any
// catalog. Reservoir and hydro-group prefixes match case-sensitively; the
// inflow prefix matches case-insensitively.
type Prefixes struct {
	Reservoir  string `yaml:"reservoir" json:"reservoir"`
	HydroGroup string `yaml:"hydro_group" json:"hydro_group"`
	Inflow     string `yaml:"inflow" json:"inflow"`
}

// DefaultPrefixes returns the conventional Emb_/HG_/Afl_ prefixes.
func DefaultPrefixes() Prefixes {
	return Prefixes{Reservoir: "Emb_", HydroGroup: "HG_", Inflow: "Afl_"}
}

// NameClassifier resolves node names to a NodeKind once. Reservoir and
// hydro-group names registered from the catalogs take precedence over
// prefixes; other registered kinds apply only when no prefix matches.
type NameClassifier struct {
	prefixes Prefixes
	registry map[string]NodeKind
	cache    map[string]NodeKind
}

// NewNameClassifier creates a classifier for the given prefixes.
func NewNameClassifier(p Prefixes) *NameClassifier {
	return &NameClassifier{
		prefixes: p,
		registry: make(map[string]NodeKind),
		cache:    make(map[string]NodeKind),
	}
}

// Register records names of a known kind. The first registration of a name
// wins, so catalogs should be registered before derived node sets.
func (c *NameClassifier) Register(kind NodeKind, names ...string) {
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, ok := c.registry[n]; ok {
			continue
		}
		c.registry[n] = kind
		delete(c.cache, n)
	}
}

// Classify returns the kind of a node name.
func (c *NameClassifier) Classify(name string) NodeKind {
	name = strings.TrimSpace(name)
	if k, ok := c.cache[name]; ok {
		return k
	}
	k := c.classify(name)
	c.cache[name] = k
	return k
}

// Ref returns the name with its resolved kind.
func (c *NameClassifier) Ref(name string) NodeRef {
	name = strings.TrimSpace(name)
	return NodeRef{Name: name, Kind: c.Classify(name)}
}

func (c *NameClassifier) classify(name string) NodeKind {
	if name == "" {
		return KindOther
	}
	registered, known := c.registry[name]
	if known && (registered == KindReservoir || registered == KindHydroGroup) {
		return registered
	}
	p := c.prefixes
	switch {
	case p.Inflow != "" && strings.HasPrefix(strings.ToLower(name), strings.ToLower(p.Inflow)):
		return KindInflow
	case p.Reservoir != "" && strings.HasPrefix(name, p.Reservoir):
		return KindReservoir
	case p.HydroGroup != "" && strings.HasPrefix(name, p.HydroGroup):
		return KindHydroGroup
	case known:
		return registered
	default:
		return KindOther
	}
}
