package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/shipdash-backend/internal/data/repos"
	types "github.com/yungbote/shipdash-backend/internal/domain"
	"github.com/yungbote/shipdash-backend/internal/domain/records"
	"github.com/yungbote/shipdash-backend/internal/domain/shipments"
	"github.com/yungbote/shipdash-backend/internal/pkg/logger"
)

type ShipmentListParams struct {
	Page     int
	Limit    int
	Search   string
	Severity shipments.Severity
}

type ShipmentQueryService interface {
	List(ctx context.Context, p ShipmentListParams) (*types.Page, error)
	Stats(ctx context.Context, search string, severity shipments.Severity) (*shipments.Stats, error)
}

type shipmentQueryService struct {
	log     *logger.Logger
	delayed repos.CollectionRepo
	now     func() time.Time
}

func NewShipmentQueryService(baseLog *logger.Logger, delayed repos.CollectionRepo, now func() time.Time) ShipmentQueryService {
	if now == nil {
		now = time.Now
	}
	return &shipmentQueryService{
		log:     baseLog.With("service", "ShipmentQueryService"),
		delayed: delayed,
		now:     now,
	}
}

// ShipmentFilter matches search across the shipment search fields and, unless
// severity is all, requires that severity in any letter case.
func ShipmentFilter(search string, severity shipments.Severity) records.Filter {
	f := records.Filter{Search: search, SearchFields: shipments.SearchFields}
	if severity != "" && severity != shipments.SeverityAll {
		f.Equals = map[string]string{shipments.FieldSeverity: string(severity)}
	}
	return f
}

func (s *shipmentQueryService) List(ctx context.Context, p ShipmentListParams) (*types.Page, error) {
	q := records.Query{
		Filter:  ShipmentFilter(p.Search, p.Severity),
		Sort:    []records.SortField{{Field: shipments.FieldCreatedAt, Desc: true}},
		Exclude: []string{records.IDField, shipments.FieldThreadID},
	}
	page, err := fetchPage(ctx, s.delayed, q, p.Page, p.Limit)
	if err != nil {
		s.log.Error("List delayed shipments failed", "error", err)
		return nil, err
	}
	return page, nil
}

// fetchPage runs the count and the page fetch concurrently. A page whose offset
// does not fit in an int64 is past any collection, so only the count runs.
func fetchPage(ctx context.Context, repo repos.CollectionRepo, q records.Query, page, limit int) (*types.Page, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		return nil, fmt.Errorf("limit must be positive")
	}
	skip, reachable := pageSkip(page, limit)
	q.Skip = skip
	q.Limit = int64(limit)

	var (
		total int64
		data  []records.Record
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := repo.Count(gctx, q.Filter)
		if err != nil {
			return fmt.Errorf("count %s: %w", repo.Name(), err)
		}
		total = n
		return nil
	})
	if reachable {
		g.Go(func() error {
			out, err := repo.Find(gctx, q)
			if err != nil {
				return fmt.Errorf("find %s: %w", repo.Name(), err)
			}
			data = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if data == nil {
		data = []records.Record{}
	}
	return &types.Page{
		Data:       data,
		Page:       page,
		TotalPages: records.TotalPages(total, limit),
		Total:      total,
	}, nil
}

// pageSkip returns (page-1)*limit, or false when the product overflows int64.
func pageSkip(page, limit int) (int64, bool) {
	n := int64(page - 1)
	if n > math.MaxInt64/int64(limit) {
		return 0, false
	}
	return n * int64(limit), true
}

func (s *shipmentQueryService) Stats(ctx context.Context, search string, severity shipments.Severity) (*shipments.Stats, error) {
	docs, err := s.delayed.Find(ctx, records.Query{
		Filter:  ShipmentFilter(search, severity),
		Only:    []string{shipments.FieldSeverity, shipments.FieldDelay, shipments.FieldEDD},
		Exclude: []string{records.IDField},
	})
	if err != nil {
		s.log.Error("Shipment stats scan failed", "error", err)
		return nil, fmt.Errorf("scan %s: %w", s.delayed.Name(), err)
	}
	stats := ComputeStats(docs, s.now())
	return &stats, nil
}

// ComputeStats summarizes delayed-shipment records as of now.
func ComputeStats(docs []records.Record, now time.Time) shipments.Stats {
	var (
		st       shipments.Stats
		delaySum int64
	)
	st.Total = int64(len(docs))
	for _, d := range docs {
		if sev, ok := d[shipments.FieldSeverity].(string); ok {
			switch shipments.Severity(strings.ToLower(strings.TrimSpace(sev))) {
			case shipments.SeverityLow:
				st.SeverityCounts.Low++
			case shipments.SeverityMedium:
				st.SeverityCounts.Medium++
			case shipments.SeverityHigh:
				st.SeverityCounts.High++
			}
		}
		delaySum += ParseDelay(d[shipments.FieldDelay])
		if edd, ok := ParseEDD(d[shipments.FieldEDD]); ok && edd.Before(now) {
			st.DelayedShipments++
		}
	}
	if st.Total > 0 {
		st.AvgDelay = round2(float64(delaySum) / float64(st.Total))
	}
	return st
}

// ParseDelay reads a day count with integer truncation. Strings are read up to
// the first non-digit; anything unreadable counts as 0.
func ParseDelay(v any) int64 {
	switch t := v.(type) {
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case int64:
		return t
	case float32:
		return truncFloat(float64(t))
	case float64:
		return truncFloat(t)
	case string:
		return leadingInt(t)
	default:
		return 0
	}
}

func truncFloat(f float64) int64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int64(math.Trunc(f))
}

func leadingInt(s string) int64 {
	s = strings.TrimSpace(s)
	neg := false
	if s != "" && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}
	var n int64
	digits := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			break
		}
		if n > (math.MaxInt64-9)/10 {
			break
		}
		n = n*10 + int64(r-'0')
		digits++
	}
	if digits == 0 {
		return 0
	}
	if neg {
		return -n
	}
	return n
}

var eddLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006",
	"2/1/2006",
}

// ParseEDD reads an estimated delivery date. Slash dates are day-first, as the
// normalizer writes them.
func ParseEDD(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range eddLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts, true
			}
		}
	}
	return time.Time{}, false
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
