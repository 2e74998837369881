package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

const constituentsHTML = `<html><body>
<table class="wikitable" id="other"><tr><th>Date</th></tr><tr><td>2024</td></tr></table>
<table class="wikitable sortable" id="constituents">
<tr><th>Symbol</th><th>Security</th><th>GICS Sector</th></tr>
<tr><td><a href="#">MMM</a></td><td>3M</td><td>Industrials</td></tr>
<tr><td>BRK.B</td><td>Berkshire Hathaway</td><td>Financials</td></tr>
<tr><td> AAPL </td><td>Apple Inc.</td><td>Information Technology</td></tr>
<tr><td>MMM</td><td>3M duplicate</td><td>Industrials</td></tr>
</table></body></html>`

func TestWikipediaUniverse_Constituents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(constituentsHTML))
	}))
	defer srv.Close()

	list, err := NewWikipediaUniverse(srv.URL, "").Constituents(context.Background())
	if err != nil {
		t.Fatalf("Constituents: %v", err)
	}
	want := []string{"MMM", "BRK-B", "AAPL"}
	if len(list) != len(want) {
		t.Fatalf("got %d constituents, want %d: %+v", len(list), len(want), list)
	}
	for i, s := range want {
		if list[i].Symbol != s {
			t.Errorf("list[%d]=%q, want %q", i, list[i].Symbol, s)
		}
	}
	if list[1].Name != "Berkshire Hathaway" {
		t.Errorf("Name=%q", list[1].Name)
	}
}

func TestWikipediaUniverse_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if _, err := NewWikipediaUniverse(srv.URL, "").Constituents(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestParseConstituents_FirstWikitable(t *testing.T) {
	html := `<table class="wikitable"><tr><th>Company</th><th>Ticker</th></tr>
<tr><td>Microsoft</td><td>MSFT</td></tr></table>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatal(err)
	}
	list, err := parseConstituents(doc)
	if err != nil {
		t.Fatalf("parseConstituents: %v", err)
	}
	if len(list) != 1 || list[0].Symbol != "MSFT" || list[0].Name != "Microsoft" {
		t.Fatalf("list=%+v", list)
	}
}

func TestParseConstituents_NoTable(t *testing.T) {
	doc, _ := goquery.NewDocumentFromReader(strings.NewReader(`<p>nothing here</p>`))
	if _, err := parseConstituents(doc); err == nil {
		t.Fatal("expected error")
	}
}

func TestStaticUniverse(t *testing.T) {
	u := StaticUniverse{{Symbol: "AAPL"}}
	list, err := u.Constituents(context.Background())
	if err != nil || len(list) != 1 {
		t.Fatalf("list=%v err=%v", list, err)
	}
	list[0].Symbol = "CHANGED"
	if u[0].Symbol != "AAPL" {
		t.Fatal("Constituents must return a copy")
	}
	if _, err := (StaticUniverse{}).Constituents(context.Background()); err == nil {
		t.Fatal("expected error for empty universe")
	}
}
