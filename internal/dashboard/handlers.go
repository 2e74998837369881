package dashboard

import (
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"SP500Tracker/internal/config"
	"SP500Tracker/internal/model"
	"SP500Tracker/internal/recorder"
	"SP500Tracker/internal/report"
)

const maxHistoryLimit = 500

var funcMap = template.FuncMap{
	"signClass": func(v float64) string {
		switch {
		case v > 0:
			return "pos"
		case v < 0:
			return "neg"
		}
		return ""
	},
	"percent": report.Percent,
	"regimeClass": func(r model.Regime) string {
		switch r {
		case model.RegimeUp:
			return "up"
		case model.RegimeDown:
			return "down"
		case model.RegimeFlat:
			return "flat"
		}
		return "unknown"
	},
}

func metricsHandler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

func (s *Server) index(c *gin.Context) {
	snap := s.ctrl.Latest()
	data := gin.H{
		"Loaded":         snap != nil,
		"Running":        s.ctrl.Running(),
		"AutoRefresh":    s.ctrl.AutoRefresh(),
		"RefreshSeconds": int(s.opts.PageRefresh / time.Second),
		"StockCount":     s.ctrl.StockCount(),
		"MinCount":       config.MinStockCount,
		"MaxCount":       config.MaxStockCount,
		"EmptyMessage":   report.EmptyMessage,
	}
	if snap != nil {
		data["Regime"] = snap.Regime
		data["Headline"] = report.Headline(snap.Regime)
		data["Summary"] = snap.Summary()
		data["Rows"] = report.Rows(snap)
		data["Empty"] = snap.Empty()
		data["Status"] = report.StatusLine(snap)
	}
	c.HTML(http.StatusOK, "index.tmpl", data)
}

type rowView struct {
	Symbol             string       `json:"symbol"`
	Company            string       `json:"company"`
	CurrentPrice       float64      `json:"current_price"`
	PercentChangeDaily float64      `json:"percent_change"`
	WindowHigh         float64      `json:"window_high"`
	WindowRateOfChange float64      `json:"window_rate_of_change"`
	Regime             model.Regime `json:"regime"`
	Display            struct {
		Price        string `json:"price"`
		Change       string `json:"change"`
		High         string `json:"high"`
		RateOfChange string `json:"rate_of_change"`
	} `json:"display"`
}

type snapshotView struct {
	ID                   string       `json:"id"`
	Regime               model.Regime `json:"regime"`
	Headline             string       `json:"headline"`
	StartedAt            time.Time    `json:"started_at"`
	FinishedAt           time.Time    `json:"finished_at"`
	Requested            int          `json:"requested"`
	Failed               int          `json:"failed"`
	Processed            int          `json:"processed"`
	Up                   int          `json:"up"`
	Down                 int          `json:"down"`
	AverageChange        float64      `json:"average_change"`
	AverageChangeDisplay string       `json:"average_change_display"`
	Status               string       `json:"status"`
	Rows                 []rowView    `json:"rows"`
}

func newSnapshotView(snap *model.Snapshot) snapshotView {
	sum := snap.Summary()
	v := snapshotView{
		ID:                   snap.ID,
		Regime:               snap.Regime,
		Headline:             report.Headline(snap.Regime),
		StartedAt:            snap.StartedAt,
		FinishedAt:           snap.FinishedAt,
		Requested:            snap.Requested,
		Failed:               snap.Failed,
		Processed:            sum.Processed,
		Up:                   sum.Up,
		Down:                 sum.Down,
		AverageChange:        sum.AverageChange,
		AverageChangeDisplay: report.Percent(sum.AverageChange),
		Status:               report.StatusLine(snap),
		Rows:                 make([]rowView, 0, len(snap.Rows)),
	}
	for _, r := range report.Rows(snap) {
		rv := rowView{
			Symbol:             r.Symbol,
			Company:            r.CompanyName,
			CurrentPrice:       r.CurrentPrice,
			PercentChangeDaily: r.PercentChangeDaily,
			WindowHigh:         r.WindowHigh,
			WindowRateOfChange: r.WindowRateOfChange,
			Regime:             r.Regime,
		}
		rv.Display.Price = r.Price
		rv.Display.Change = r.Change
		rv.Display.High = r.High
		rv.Display.RateOfChange = r.RateOfChange
		v.Rows = append(v.Rows, rv)
	}
	return v
}

func (s *Server) snapshot(c *gin.Context) {
	snap := s.ctrl.Latest()
	state := gin.H{
		"running":      s.ctrl.Running(),
		"auto_refresh": s.ctrl.AutoRefresh(),
		"stock_count":  s.ctrl.StockCount(),
	}
	if snap == nil {
		state["snapshot"] = nil
		state["message"] = "no refresh has completed yet"
		c.JSON(http.StatusOK, state)
		return
	}
	state["snapshot"] = newSnapshotView(snap)
	if snap.Empty() {
		state["message"] = report.EmptyMessage
	}
	c.JSON(http.StatusOK, state)
}

func (s *Server) history(c *gin.Context) {
	limit := recorder.DefaultHistoryLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxHistoryLimit)
	}
	hist, err := s.rec.History(limit)
	if err != nil {
		s.log.Error().Err(err).Msg("load history")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "history unavailable"})
		return
	}
	if hist == nil {
		hist = []model.RefreshSummary{}
	}
	c.JSON(http.StatusOK, gin.H{"cycles": hist})
}

func (s *Server) exportCSV(c *gin.Context) {
	snap := s.ctrl.Latest()
	if snap.Empty() {
		c.JSON(http.StatusNotFound, gin.H{"error": report.EmptyMessage})
		return
	}
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="`+report.FileName(snap.FinishedAt)+`"`)
	c.Status(http.StatusOK)
	if err := report.WriteCSV(c.Writer, snap); err != nil {
		s.log.Error().Err(err).Msg("write csv export")
	}
}

func (s *Server) refresh(c *gin.Context) {
	count := 0
	if v := c.PostForm("count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "count must be an integer"})
			return
		}
		count = n
	}
	if err := s.ctrl.RefreshNow(count); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.respond(c, gin.H{"status": "refreshing", "stock_count": s.ctrl.StockCount()})
}

func (s *Server) toggleAutoRefresh(c *gin.Context) {
	on, err := strconv.ParseBool(c.PostForm("enabled"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "enabled must be true or false"})
		return
	}
	s.ctrl.SetAutoRefresh(on)
	s.respond(c, gin.H{"auto_refresh": on})
}

// respond redirects browser form posts back to the page and answers API clients with JSON.
func (s *Server) respond(c *gin.Context, body gin.H) {
	if c.NegotiateFormat(gin.MIMEHTML, gin.MIMEJSON) == gin.MIMEJSON {
		c.JSON(http.StatusAccepted, body)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
