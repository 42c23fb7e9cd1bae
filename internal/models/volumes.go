package models

import "sort"

// BlockKey is the composite (entity, stage, block) key of an aggregate.
type BlockKey struct {
	Name  string `json:"name"`
	Stage int    `json:"stage"`
	Block int    `json:"block"`
}

// NewBlockKey builds a key from a name and a time index.
func NewBlockKey(name string, ti TimeIndex) BlockKey {
	return BlockKey{Name: name, Stage: ti.Stage, Block: ti.Block}
}

// TimeIndex returns the (stage, block) part of the key.
func (k BlockKey) TimeIndex() TimeIndex {
	return TimeIndex{Stage: k.Stage, Block: k.Block}
}

// BlockVolumes maps (entity, stage, block) to a volume in hm3.
type BlockVolumes map[BlockKey]float64

// Add accumulates v into the entry for key.
func (b BlockVolumes) Add(key BlockKey, v float64) {
	b[key] += v
}

// Get returns the volume for name at ti, zero when absent.
func (b BlockVolumes) Get(name string, ti TimeIndex) float64 {
	return b[NewBlockKey(name, ti)]
}

// Total sums every entry.
func (b BlockVolumes) Total() float64 {
	var sum float64
	for _, v := range b {
		sum += v
	}
	return sum
}

// Names returns the distinct entity names in sorted order.
func (b BlockVolumes) Names() []string {
	seen := make(map[string]struct{})
	for k := range b {
		seen[k.Name] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Keys returns every key ordered by name, stage and block.
func (b BlockVolumes) Keys() []BlockKey {
	out := make([]BlockKey, 0, len(b))
	for k := range b {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].TimeIndex().Less(out[j].TimeIndex())
	})
	return out
}

// Clone returns an independent copy.
func (b BlockVolumes) Clone() BlockVolumes {
	out := make(BlockVolumes, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// BlockEntry is one aggregate entry in list form.
type BlockEntry struct {
	Name   string  `json:"name"`
	Stage  int     `json:"stage"`
	Block  int     `json:"block"`
	Volume float64 `json:"volume_hm3"`
}

// Entries returns the aggregate as an ordered list, optionally filtered by
// name. Names are compared after normalization.
func (b BlockVolumes) Entries(name string) []BlockEntry {
	want := NormalizeNodeName(name)
	out := make([]BlockEntry, 0)
	for _, k := range b.Keys() {
		if want != "" && NormalizeNodeName(k.Name) != want {
			continue
		}
		out = append(out, BlockEntry{Name: k.Name, Stage: k.Stage, Block: k.Block, Volume: b[k]})
	}
	return out
}

// BlockAggregates groups the three block-keyed volume maps.
type BlockAggregates struct {
	NaturalReservoir  BlockVolumes
	NaturalHydroGroup BlockVolumes
	Irrigation        BlockVolumes
}

// NewBlockAggregates allocates empty aggregates.
func NewBlockAggregates() *BlockAggregates {
	return &BlockAggregates{
		NaturalReservoir:  make(BlockVolumes),
		NaturalHydroGroup: make(BlockVolumes),
		Irrigation:        make(BlockVolumes),
	}
}
