package collector

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"SP500Tracker/internal/model"
)

// DefaultUniverseURL lists the S&P 500 constituents.
const DefaultUniverseURL = "https://en.wikipedia.org/wiki/List_of_S%26P_500_companies"

// Universe supplies the ordered list of instruments to track.
type Universe interface {
	Constituents(ctx context.Context) ([]model.Constituent, error)
}

// FallbackUniverse is used when the listing cannot be fetched.
func FallbackUniverse() []model.Constituent {
	symbols := []string{"AAPL", "MSFT", "GOOGL", "AMZN", "NVDA", "META", "TSLA", "BRK-B", "UNH", "JNJ"}
	out := make([]model.Constituent, len(symbols))
	for i, s := range symbols {
		out[i] = model.Constituent{Symbol: s}
	}
	return out
}

// StaticUniverse is a fixed list of constituents.
type StaticUniverse []model.Constituent

func (u StaticUniverse) Constituents(context.Context) ([]model.Constituent, error) {
	if len(u) == 0 {
		return nil, fmt.Errorf("static universe is empty")
	}
	out := make([]model.Constituent, len(u))
	copy(out, u)
	return out, nil
}

// WikipediaUniverse scrapes the constituents table of the S&P 500 list page.
type WikipediaUniverse struct {
	URL    string
	client *resty.Client
}

// NewWikipediaUniverse creates a scraper for url, or the default list page when empty.
func NewWikipediaUniverse(url, proxyURL string) *WikipediaUniverse {
	if url == "" {
		url = DefaultUniverseURL
	}
	client := resty.New().
		SetTimeout(30*time.Second).
		SetHeader("User-Agent", "SP500Tracker/1.0 (constituent listing)")
	if proxyURL != "" {
		client.SetProxy(proxyURL)
	}
	return &WikipediaUniverse{URL: url, client: client}
}

func (w *WikipediaUniverse) Constituents(ctx context.Context) ([]model.Constituent, error) {
	resp, err := w.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(w.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch universe: %w", err)
	}
	body := resp.RawBody()
	defer body.Close()
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("fetch universe: status %d", resp.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parse universe: %w", err)
	}
	return parseConstituents(doc)
}

func parseConstituents(doc *goquery.Document) ([]model.Constituent, error) {
	table := doc.Find("table#constituents").First()
	if table.Length() == 0 {
		table = doc.Find("table.wikitable").First()
	}
	if table.Length() == 0 {
		return nil, fmt.Errorf("parse universe: constituents table not found")
	}

	symbolIdx, nameIdx := -1, -1
	table.Find("tr").First().Find("th").Each(func(i int, th *goquery.Selection) {
		switch strings.TrimSpace(th.Text()) {
		case "Symbol", "Ticker symbol", "Ticker":
			symbolIdx = i
		case "Security", "Company":
			nameIdx = i
		}
	})
	if symbolIdx < 0 {
		return nil, fmt.Errorf("parse universe: symbol column not found")
	}

	var out []model.Constituent
	seen := make(map[string]bool)
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() <= symbolIdx {
			return
		}
		symbol := model.NormalizeSymbol(cells.Eq(symbolIdx).Text())
		if symbol == "" || seen[symbol] {
			return
		}
		seen[symbol] = true
		c := model.Constituent{Symbol: symbol}
		if nameIdx >= 0 && cells.Length() > nameIdx {
			c.Name = strings.TrimSpace(cells.Eq(nameIdx).Text())
		}
		out = append(out, c)
	})
	if len(out) == 0 {
		return nil, fmt.Errorf("parse universe: no constituents found")
	}
	return out, nil
}
