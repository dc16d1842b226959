package models

import (
	"fmt"
	"strings"
)

// Shard identifies an article partition. The zero value is the global shard.
type Shard string

const (
	GlobalShard  Shard = ""
	Africa       Shard = "Africa"
	Antarctica   Shard = "Antarctica"
	Asia         Shard = "Asia"
	Europe       Shard = "Europe"
	NorthAmerica Shard = "NorthAmerica"
	Australia    Shard = "Australia"
	SouthAmerica Shard = "SouthAmerica"
)

// Continents lists every regional shard in a stable order.
var Continents = []Shard{Africa, Antarctica, Asia, Europe, NorthAmerica, Australia, SouthAmerica}

// AllShards returns the global shard followed by every regional shard.
func AllShards() []Shard {
	out := make([]Shard, 0, len(Continents)+1)
	out = append(out, GlobalShard)
	return append(out, Continents...)
}

// IsGlobal reports whether s is the global shard.
func (s Shard) IsGlobal() bool { return s == GlobalShard }

// Name is the lower-case label used in cache keys, DSN templates and metrics.
func (s Shard) Name() string {
	if s.IsGlobal() {
		return "global"
	}
	return strings.ToLower(string(s))
}

func (s Shard) String() string {
	if s.IsGlobal() {
		return "Global"
	}
	return string(s)
}

// ParseShard accepts a region name in any case; "" and "global" select the global shard.
func ParseShard(v string) (Shard, error) {
	v = strings.TrimSpace(v)
	if v == "" || strings.EqualFold(v, "global") {
		return GlobalShard, nil
	}
	for _, c := range Continents {
		if strings.EqualFold(v, string(c)) {
			return c, nil
		}
	}
	return GlobalShard, fmt.Errorf("unknown shard: %q", v)
}
