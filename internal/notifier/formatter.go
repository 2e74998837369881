package notifier

import (
	"fmt"
	"html"
	"strings"

	"SP500Tracker/internal/model"
	"SP500Tracker/internal/report"
)

// RegimeChanged reports whether cur moved to a different known regime than prev.
func RegimeChanged(prev, cur *model.Snapshot) bool {
	if prev == nil || cur == nil {
		return false
	}
	if cur.Regime == model.RegimeUnknown || prev.Regime == model.RegimeUnknown {
		return false
	}
	return prev.Regime != cur.Regime
}

// FormatRegimeChange formats the alert sent when the market regime flips.
func FormatRegimeChange(prev, cur *model.Snapshot, top int) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("<b>Market regime changed: %s → %s</b>\n", prev.Regime, cur.Regime))
	b.WriteString(html.EscapeString(report.Headline(cur.Regime)))
	b.WriteString("\n\n")

	sum := cur.Summary()
	b.WriteString(fmt.Sprintf("Processed: %d | Up: %d | Down: %d | Avg: %s\n",
		sum.Processed, sum.Up, sum.Down, report.Percent(sum.AverageChange)))

	if top > len(cur.Rows) {
		top = len(cur.Rows)
	}
	if top > 0 {
		b.WriteString("\n<b>Top 20-week rate of change:</b>\n")
		for i, r := range cur.Rows[:top] {
			b.WriteString(fmt.Sprintf("%d. %s (%s) %s, today %s\n",
				i+1, r.Symbol, html.EscapeString(r.CompanyName), report.Percent(r.WindowRateOfChange), report.Percent(r.PercentChangeDaily)))
		}
	}
	b.WriteString("\n" + report.StatusLine(cur))
	return b.String()
}
