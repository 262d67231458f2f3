package ttp

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"slotwatch/internal/slot"
	logx "slotwatch/pkg/logx"
)

// LocationInfo is one entry of the locations endpoint.
type LocationInfo struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"shortName"`
	City      string `json:"city"`
	State     string `json:"state"`
	TZData    string `json:"tzData"`
}

func (li LocationInfo) Location() slot.Location {
	name := strings.TrimSpace(li.City)
	if name == "" {
		name = strings.TrimSpace(li.Name)
	}
	return slot.Location{ID: li.ID, Name: name}
}

// Locations returns the operational locations, served from an in-memory
// cache while it is fresh.
func (c *Client) Locations(ctx context.Context) ([]LocationInfo, error) {
	now := c.now()

	c.mu.Lock()
	if c.locs != nil && now.Before(c.locsUpTo) {
		out := append([]LocationInfo(nil), c.locs...)
		c.mu.Unlock()
		return out, nil
	}
	c.mu.Unlock()

	body, err := c.get(ctx, c.cfg.LocationsURL)
	if err != nil {
		return nil, fmt.Errorf("%w: locations: %w", ErrFetch, err)
	}
	var locs []LocationInfo
	if err := json.Unmarshal(body, &locs); err != nil {
		return nil, fmt.Errorf("%w: locations: decode: %w", ErrFetch, err)
	}

	c.mu.Lock()
	c.locs = locs
	c.locsUpTo = now.Add(c.cfg.LocationTTL)
	c.mu.Unlock()

	c.log.Debug("locations fetched", logx.Int("count", len(locs)))
	return append([]LocationInfo(nil), locs...), nil
}

// Cities returns the sorted, de-duplicated city names of all locations.
func (c *Client) Cities(ctx context.Context) ([]string, error) {
	locs, err := c.Locations(ctx)
	if err != nil {
		return nil, err
	}
	seen := map[string]struct{}{}
	out := make([]string, 0, len(locs))
	for _, l := range locs {
		city := strings.TrimSpace(l.City)
		if city == "" {
			continue
		}
		k := strings.ToLower(city)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, city)
	}
	sort.Strings(out)
	return out, nil
}

// LookupCity resolves a city name (case-insensitive, surrounding whitespace
// ignored) to a location. When several locations share a city the first one
// in API order wins.
func (c *Client) LookupCity(ctx context.Context, city string) (slot.Location, error) {
	want := strings.ToLower(strings.TrimSpace(city))
	if want == "" {
		return slot.Location{}, fmt.Errorf("%w: empty name", ErrUnknownCity)
	}
	locs, err := c.Locations(ctx)
	if err != nil {
		return slot.Location{}, err
	}
	names := make([]string, 0, len(locs))
	for _, l := range locs {
		if strings.ToLower(strings.TrimSpace(l.City)) == want {
			return l.Location(), nil
		}
		names = append(names, strings.TrimSpace(l.City))
	}
	if near := ClosestCities(names, city, 3); len(near) > 0 {
		return slot.Location{}, fmt.Errorf("%w: %q (did you mean %s?)", ErrUnknownCity, city, strings.Join(near, ", "))
	}
	return slot.Location{}, fmt.Errorf("%w: %q", ErrUnknownCity, city)
}

// ClosestCities returns up to n names that contain name or are within two
// edits of it, closest first.
func ClosestCities(names []string, name string, n int) []string {
	want := strings.ToLower(strings.TrimSpace(name))
	if want == "" || n <= 0 {
		return nil
	}
	type match struct {
		name string
		dist int
	}
	var matches []match
	seen := map[string]struct{}{}
	for _, c := range names {
		k := strings.ToLower(strings.TrimSpace(c))
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		d := editDistance(want, k)
		if d > 2 && !strings.Contains(k, want) {
			continue
		}
		matches = append(matches, match{name: strings.TrimSpace(c), dist: d})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].dist != matches[j].dist {
			return matches[i].dist < matches[j].dist
		}
		return matches[i].name < matches[j].name
	})
	if len(matches) > n {
		matches = matches[:n]
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.name)
	}
	return out
}

// editDistance is the Levenshtein distance over runes.
func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}
