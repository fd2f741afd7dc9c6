// Package catalog loads and queries the Little Alchemy 2 element data the
// visualizer validates targets against.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/alchviz/alchviz/tree"
)

// ErrNotFound is returned when a requested element is not in the catalog.
var ErrNotFound = errors.New("element not found in catalog")

// DefaultDataFile is where Scrape writes and Load reads the element data.
const DefaultDataFile = "little_alchemy_elements.json"

// Prohibited elements never appear in usable recipes.
var prohibitedElements = map[string]bool{
	"Time": true,
}

// ElementData is one scraped element with its raw "A + B" recipe strings.
type ElementData struct {
	Element string   `json:"element"`
	Recipes []string `json:"recipes"`
}

// Catalog holds the parsed element data: every known element, the parsed
// recipe combinations that produce it, and its wiki tier.
type Catalog struct {
	recipes map[string][][]string
	tiers   map[string]int
}

// Load reads a scraped data file (elements keyed by tier heading) and builds
// the recipe and tier maps.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog data: %w", err)
	}
	defer f.Close()

	var raw map[string][]ElementData
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse catalog data: %w", err)
	}
	return build(raw), nil
}

func build(raw map[string][]ElementData) *Catalog {
	c := &Catalog{
		recipes: make(map[string][][]string),
		tiers:   make(map[string]int),
	}
	for tierName, elements := range raw {
		level := parseTierName(tierName)
		for _, elem := range elements {
			if elem.Element == "" {
				continue
			}
			c.tiers[elem.Element] = level
			for _, recipeStr := range elem.Recipes {
				if combo := parseCombination(recipeStr); len(combo) >= 2 {
					c.recipes[elem.Element] = append(c.recipes[elem.Element], combo)
				}
			}
		}
	}
	for elem := range tree.BaseElements {
		c.tiers[elem] = 0
	}
	return c
}

// parseTierName maps a wiki section heading to a tier level. "Starting
// elements" is tier 0; unrecognized headings (DLC, event elements) get 999
// so they sort after everything real.
func parseTierName(name string) int {
	if strings.HasPrefix(name, "Starting ") {
		return 0
	}
	if strings.HasPrefix(name, "Tier ") {
		var level int
		if _, err := fmt.Sscanf(name, "Tier %d", &level); err == nil {
			return level
		}
	}
	return 999
}

// parseCombination splits an "A + B" recipe string into trimmed ingredient
// names, dropping combinations that use prohibited elements.
func parseCombination(s string) []string {
	parts := strings.Split(s, "+")
	combo := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if prohibitedElements[part] {
			return nil
		}
		combo = append(combo, part)
	}
	return combo
}

// Has reports whether the element exists in the catalog.
func (c *Catalog) Has(element string) bool {
	_, ok := c.tiers[element]
	return ok
}

// Recipes returns the ingredient combinations that produce the element.
func (c *Catalog) Recipes(element string) ([][]string, error) {
	if !c.Has(element) {
		return nil, fmt.Errorf("%q: %w", element, ErrNotFound)
	}
	return c.recipes[element], nil
}

// Tier returns the element's wiki tier; base elements are tier 0.
func (c *Catalog) Tier(element string) (int, error) {
	tier, ok := c.tiers[element]
	if !ok {
		return 0, fmt.Errorf("%q: %w", element, ErrNotFound)
	}
	return tier, nil
}

// Elements lists every catalog element in sorted order.
func (c *Catalog) Elements() []string {
	out := make([]string, 0, len(c.tiers))
	for elem := range c.tiers {
		out = append(out, elem)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of known elements.
func (c *Catalog) Len() int {
	return len(c.tiers)
}
