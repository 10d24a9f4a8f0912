// internal/navigator/extract.go
package navigator

import (
	"context"
	"fmt"
	"strings"

	"github.com/antchfx/htmlquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/LabsAtivai/boaventura/internal/config"
)

// Extractor maps the stabilized result list into Records. It is a pure read:
// one OuterHTML capture, parsed locally, no navigation side effects. Callers
// must not invoke it before the Stabilizer has certified the list.
type Extractor struct {
	page   Page
	sel    config.SelectorsConfig
	logger *zap.Logger
}

// NewExtractor wires the mapper against a page facade.
func NewExtractor(page Page, sel config.SelectorsConfig, logger *zap.Logger) *Extractor {
	return &Extractor{
		page:   page,
		sel:    sel,
		logger: logger.Named("extractor"),
	}
}

// Records reads every entry of the result list. Entries missing the process
// identifier are kept with an empty string: the output must stay 1:1 with the
// visible list, rows are never dropped.
func (e *Extractor) Records(ctx context.Context) ([]Record, error) {
	listHTML, err := e.page.OuterHTML(ctx, e.sel.ResultList)
	if err != nil {
		return nil, fmt.Errorf("failed to capture result list: %w", err)
	}

	doc, err := htmlquery.Parse(strings.NewReader(listHTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse result list html: %w", err)
	}

	entries, err := htmlquery.QueryAll(doc, e.sel.EntryXPath)
	if err != nil {
		return nil, fmt.Errorf("bad entry xpath %q: %w", e.sel.EntryXPath, err)
	}

	records := make([]Record, 0, len(entries))
	for _, entry := range entries {
		records = append(records, e.mapEntry(entry))
	}

	e.logger.Debug("Extracted records from result list.", zap.Int("count", len(records)))
	return records, nil
}

// mapEntry reads one list entry by structural position: the time+status
// field, the bolded process identifier, and the first three description
// fields taken as judge, claimant and respondent in that order. This is a
// positional contract with the markup, not a named lookup.
func (e *Extractor) mapEntry(entry *html.Node) Record {
	rec := Record{
		SessionLabel: e.queryText(entry, e.sel.EntrySessionXPath),
		ProcessID:    e.queryText(entry, e.sel.EntryProcessXPath),
	}

	descriptions, err := htmlquery.QueryAll(entry, e.sel.EntryDescriptionXPath)
	if err != nil {
		return rec
	}

	fields := make([]string, 0, 3)
	for _, d := range descriptions {
		fields = append(fields, cleanText(htmlquery.InnerText(d)))
		if len(fields) == 3 {
			break
		}
	}

	if len(fields) > 0 {
		rec.Judge = fields[0]
	}
	if len(fields) > 1 {
		rec.Claimant = fields[1]
	}
	if len(fields) > 2 {
		rec.Respondent = fields[2]
	}
	return rec
}

// queryText evaluates an XPath under entry and returns its cleaned inner
// text, or "" when the node is absent.
func (e *Extractor) queryText(entry *html.Node, xpath string) string {
	node, err := htmlquery.Query(entry, xpath)
	if err != nil || node == nil {
		return ""
	}
	return cleanText(htmlquery.InnerText(node))
}

// cleanText normalizes non-breaking spaces and trims the result.
func cleanText(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, " ", " "))
}
