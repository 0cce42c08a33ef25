// Package query answers free-text specialist questions against a snapshot.
//
// A query is matched loosely (alias expansion, transliteration, word-wise
// prefix and stem matching), refined by ordered intent rules, and summarized
// into exactly one verdict.
package query

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/slot-watch/internal/slots"
	"github.com/wolfman30/slot-watch/pkg/logging"
)

var queryTracer = otel.Tracer("slot-watch.query")

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// Result is the complete response to one query.
type Result struct {
	Query             string  `json:"query"`
	Total             int     `json:"total"`
	ChildIntent       bool    `json:"childIntent"`
	PediatricFiltered bool    `json:"pediatricFiltered"`
	SourceReportDate  string  `json:"sourceReportDate"`
	SourceReportURL   string  `json:"sourceReportUrl"`
	Answer            Answer  `json:"answer"`
	Items             []Item  `json:"items"`
	RelatedItems      []Item  `json:"relatedItems"`
	RelatedTitle      *string `json:"relatedTitle"`
}

// Recorder receives one observation per answered query.
type Recorder interface {
	ObserveQuery(kind string, cached bool)
}

// Engine evaluates queries. Results are cached per snapshot generation, so a
// new snapshot naturally invalidates old entries.
type Engine struct {
	cache    *lru.Cache[string, Result]
	recorder Recorder
	logger   *logging.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithLogger sets the engine logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine builds an engine with an LRU result cache of the given size.
// A size below one disables caching.
func NewEngine(cacheSize int, opts ...Option) (*Engine, error) {
	e := &Engine{logger: logging.Default()}
	if cacheSize > 0 {
		cache, err := lru.New[string, Result](cacheSize)
		if err != nil {
			return nil, fmt.Errorf("query: create cache: %w", err)
		}
		e.cache = cache
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// ToSafeLimit parses a requested result limit, falling back to DefaultLimit
// and clamping to [1, MaxLimit].
func ToSafeLimit(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultLimit
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return DefaultLimit
	}
	v = math.Floor(v)
	if v < 1 {
		return 1
	}
	if v > MaxLimit {
		return MaxLimit
	}
	return int(v)
}

func clampLimit(n int) int {
	if n < 1 {
		return 1
	}
	if n > MaxLimit {
		return MaxLimit
	}
	return n
}

// Answer evaluates rawQuery against snap. A nil snapshot is treated as empty.
func (e *Engine) Answer(ctx context.Context, snap *slots.Snapshot, rawQuery string, limit int) Result {
	_, span := queryTracer.Start(ctx, "query.Answer")
	defer span.End()

	limit = clampLimit(limit)
	q := strings.TrimSpace(rawQuery)
	span.SetAttributes(attribute.String("query.text", q), attribute.Int("query.limit", limit))

	if snap == nil {
		snap = &slots.Snapshot{}
	}
	cacheKey := snap.GeneratedAt.UTC().Format("2006-01-02T15:04:05.000000000Z") + "|" + snap.SourceReportURL + "|" + strconv.Itoa(limit) + "|" + q
	if e.cache != nil {
		if res, ok := e.cache.Get(cacheKey); ok {
			e.observe(res.Answer.Kind, true)
			return res
		}
	}

	res := Evaluate(snap, q, limit)
	span.SetAttributes(attribute.String("query.answer_kind", string(res.Answer.Kind)), attribute.Int("query.total", res.Total))
	e.logger.Debug("query answered", "query", q, "kind", res.Answer.Kind, "total", res.Total)

	if e.cache != nil {
		e.cache.Add(cacheKey, res)
	}
	e.observe(res.Answer.Kind, false)
	return res
}

func (e *Engine) observe(kind AnswerKind, cached bool) {
	if e.recorder != nil {
		e.recorder.ObserveQuery(string(kind), cached)
	}
}

// Evaluate runs the full query pipeline without caching.
func Evaluate(snap *slots.Snapshot, rawQuery string, limit int) Result {
	in := Classify(rawQuery)
	m := newMatcher(in.Raw)

	all := make([]Item, 0, len(snap.BySpecialist))
	for _, s := range snap.BySpecialist {
		all = append(all, newItem(s))
	}
	searchable := all
	if !in.Child {
		searchable = filter(all, func(it Item) bool { return !isPediatricItem(it) })
	}
	visible := filter(searchable, func(it Item) bool { return !isExcludedAdministrativeItem(it) })

	ev := &evaluation{
		intent:  in,
		match:   m,
		visible: visible,
		items:   sortItems(filter(visible, m.matches)),
	}
	for _, r := range intentRules {
		if !r.applies(in) {
			continue
		}
		r.apply(ev)
		if ev.answer != nil {
			break
		}
	}

	items := ev.items
	if len(items) > limit {
		items = items[:limit]
	}
	answer := ev.answer
	if answer == nil {
		a := buildAnswer(in, items, visible)
		answer = &a
	}
	related := ev.related
	if related == nil {
		related = []Item{}
	}
	if items == nil {
		items = []Item{}
	}

	return Result{
		Query:             in.Raw,
		Total:             len(items),
		ChildIntent:       in.Child,
		PediatricFiltered: !in.Child,
		SourceReportDate:  snap.SourceReportDate,
		SourceReportURL:   snap.SourceReportURL,
		Answer:            *answer,
		Items:             items,
		RelatedItems:      related,
		RelatedTitle:      ev.relatedTitle,
	}
}

func filter(items []Item, keep func(Item) bool) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}

func sortItems(items []Item) []Item {
	sort.SliceStable(items, func(i, j int) bool {
		return slots.Less(items[i].asSpecialist(), items[j].asSpecialist())
	})
	return items
}

// earliest returns the HAS_SLOTS item with the earliest date. Ties resolve in
// canonical order.
func earliest(items []Item) (Item, bool) {
	sorted := sortItems(append([]Item(nil), items...))
	specs := make([]slots.Specialist, len(sorted))
	for i, it := range sorted {
		specs[i] = it.asSpecialist()
	}
	best, ok := slots.Earliest(specs)
	if !ok {
		return Item{}, false
	}
	for _, it := range sorted {
		if it.Key == best.Key {
			return it, true
		}
	}
	return Item{}, false
}
