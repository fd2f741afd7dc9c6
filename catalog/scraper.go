package catalog

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// sourceURL is the wiki page listing every element grouped by tier.
const sourceURL = "https://little-alchemy.fandom.com/wiki/Elements_(Little_Alchemy_2)"

var whitespaceRe = regexp.MustCompile(`\s+`)

func cleanText(text string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}

// parseRecipeCell extracts the recipe strings from a table cell, one per
// list item, falling back to the cell text when the wiki markup has no list.
func parseRecipeCell(cell *goquery.Selection) []string {
	var recipes []string
	cell.Find("li").Each(func(_ int, li *goquery.Selection) {
		if text := cleanText(li.Text()); text != "" {
			recipes = append(recipes, text)
		}
	})
	if len(recipes) == 0 {
		if text := cleanText(cell.Text()); text != "" {
			recipes = append(recipes, text)
		}
	}
	return recipes
}

// Scrape fetches the element list from the wiki and writes it to path as the
// tier-keyed JSON file Load expects. The fetch retries with exponential
// backoff; wiki hiccups are common and transient.
func Scrape(path string, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	var doc *goquery.Document
	fetch := func() error {
		res, err := http.Get(sourceURL)
		if err != nil {
			return fmt.Errorf("fetch %s: %w", sourceURL, err)
		}
		defer res.Body.Close()

		if res.StatusCode != http.StatusOK {
			return fmt.Errorf("fetch %s: status %d %s", sourceURL, res.StatusCode, res.Status)
		}
		doc, err = goquery.NewDocumentFromReader(res.Body)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("parse HTML: %w", err))
		}
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = 2 * time.Minute
	if err := backoff.RetryNotify(fetch, policy, func(err error, wait time.Duration) {
		logger.Warn("scrape attempt failed, retrying",
			zap.Error(err), zap.Duration("wait", wait))
	}); err != nil {
		return err
	}

	data := make(map[string][]ElementData)
	doc.Find("h3").Each(func(_ int, s *goquery.Selection) {
		header := s.Find("span.mw-headline")
		if header.Length() == 0 {
			return
		}
		tierName := cleanText(header.Text())
		data[tierName] = []ElementData{}

		table := s.Next()
		for table != nil && goquery.NodeName(table) != "table" {
			table = table.Next()
		}
		if table == nil {
			return
		}

		table.Find("tr").Each(func(i int, row *goquery.Selection) {
			if i == 0 {
				return
			}
			cells := row.Find("td")
			if cells.Length() >= 2 {
				data[tierName] = append(data[tierName], ElementData{
					Element: cleanText(cells.Eq(0).Text()),
					Recipes: parseRecipeCell(cells.Eq(1)),
				})
			}
		})
	})

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	logger.Info("scraped element catalog",
		zap.String("path", path), zap.Int("tiers", len(data)))
	return nil
}
