// merge.go: combines tier outcomes into one complete resolution map.
package imagefinder

import (
	"maps"
	"slices"
	"strings"

	"github.com/seedpix/seedpix-go/internal/errors"
)

// Precedence ranks per identifier; higher wins regardless of completion order.
const (
	rankNone = iota
	rankCommon
	rankScientific
	rankConfirmed
	rankPreresolved
)

// Merge combines direct probe and fallback outcomes into a ResolutionMap with
// exactly one entry per distinct input identifier, sorted by identifier.
// Precedence per identifier: pre-resolved input > Confirmed > Found(scientific)
// > Found(common) > unresolved. An outcome naming an identifier absent from
// the input set is a hard error; it indicates a partitioning bug upstream.
func Merge(entries []CatalogEntry, probes []ProbeResult, fallbacks []FallbackResult) (ResolutionMap, error) {
	resolved := make(map[string]string, len(entries))
	rank := make(map[string]int, len(entries))

	for i := range entries {
		id := strings.TrimSpace(entries[i].ID)
		if id == "" {
			// Invalid entries were rejected per-entry before any tier ran.
			continue
		}
		if _, exists := resolved[id]; !exists {
			resolved[id] = ""
		}
		if entries[i].ImageURL != "" && rank[id] < rankPreresolved {
			resolved[id] = entries[i].ImageURL
			rank[id] = rankPreresolved
		}
	}

	apply := func(id, url string, r int) error {
		if _, known := resolved[id]; !known {
			return errors.Newf("outcome for identifier %q not present in input set", id).
				Component("imagefinder").
				Category(errors.CategoryMerge).
				Context("identifier", id).
				Build()
		}
		if url != "" && r > rank[id] {
			resolved[id] = url
			rank[id] = r
		}
		return nil
	}

	for i := range probes {
		p := &probes[i]
		url := ""
		if p.Confirmed {
			url = p.URL
		}
		if err := apply(p.ID, url, rankConfirmed); err != nil {
			return nil, err
		}
	}

	for i := range fallbacks {
		f := &fallbacks[i]
		r := rankCommon
		if f.Tier == TierScientific {
			r = rankScientific
		}
		url := ""
		if f.Found {
			url = f.URL
		}
		if err := apply(f.ID, url, r); err != nil {
			return nil, err
		}
	}

	ids := slices.Sorted(maps.Keys(resolved))
	out := make(ResolutionMap, 0, len(ids))
	for _, id := range ids {
		out = append(out, Resolution{ID: id, URL: resolved[id]})
	}
	return out, nil
}
