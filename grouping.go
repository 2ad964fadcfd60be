package taxcalc

import (
	"fmt"
	"sort"
)

// groupKey identifies one matchable unit's worth of trades.
type groupKey struct {
	asset     string
	date      Date
	direction Direction
}

// groupTrades bundles same-asset, same-day, same-direction trades into
// matchable units, stamped with identifiers in deterministic order.
func groupTrades(seq *sequence, class AssetClass, trades []Trade) ([]*MatchableUnit, error) {
	groups := make(map[groupKey][]Trade)
	for _, t := range trades {
		k := groupKey{asset: t.Name, date: t.Date, direction: t.Direction}
		groups[k] = append(groups[k], t)
	}

	keys := make([]groupKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].asset != keys[j].asset {
			return keys[i].asset < keys[j].asset
		}
		if keys[i].date != keys[j].date {
			return keys[i].date.Before(keys[j].date)
		}
		return keys[i].direction < keys[j].direction
	})

	units := make([]*MatchableUnit, 0, len(keys))
	for _, k := range keys {
		u, err := newMatchableUnit(class, groups[k]...)
		if err != nil {
			return nil, fmt.Errorf("grouping %s trades: %w", k.asset, err)
		}
		u.id = seq.Next()
		units = append(units, u)
	}
	return units, nil
}

// byAsset partitions units by asset name, preserving chronological order
// within each asset.
func byAsset(units []*MatchableUnit) map[string][]*MatchableUnit {
	out := make(map[string][]*MatchableUnit)
	for _, u := range units {
		out[u.asset] = append(out[u.asset], u)
	}
	for _, list := range out {
		sort.SliceStable(list, func(i, j int) bool { return list[i].date.Before(list[j].date) })
	}
	return out
}

// actionsByAsset partitions corporate actions by asset name in chronological
// order.
func actionsByAsset(actions []CorporateAction) map[string][]CorporateAction {
	out := make(map[string][]CorporateAction)
	for _, a := range actions {
		out[a.Asset()] = append(out[a.Asset()], a)
	}
	for _, list := range out {
		sort.SliceStable(list, func(i, j int) bool { return list[i].When().Before(list[j].When()) })
	}
	return out
}
