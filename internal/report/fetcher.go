package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/html"

	"github.com/wolfman30/slot-watch/internal/slots"
	"github.com/wolfman30/slot-watch/pkg/logging"
)

var fetchTracer = otel.Tracer("slotwatch.internal.report.fetcher")

// ErrReportNotFound is returned when the homepage carries no link to the daily report.
var ErrReportNotFound = errors.New("report: daily report link not found on homepage")

const (
	DefaultHomeURL      = "https://www.kccg.me/"
	DefaultExtractorURL = "https://r.jina.ai/"
	DefaultUserAgent    = "kccg-slots-app/1.0"

	maxBodyBytes = 16 << 20
)

var (
	reportLink = regexp.MustCompile(`(?i)^https://www\.kccg\.me/wp-content/uploads/.*prvi-slobodan-termin.*\.pdf$`)
	reportDate = regexp.MustCompile(`^\d{2}\.\d{2}\.\d{4}$`)
)

// Report is the extracted text of one published report plus its provenance.
type Report struct {
	Text string
	Meta slots.ReportMeta
}

// Fetcher discovers the latest report on the publisher homepage and pulls its
// text through a document-to-text extraction service.
type Fetcher struct {
	homeURL      string
	extractorURL string
	userAgent    string
	httpClient   *http.Client
	breaker      *gobreaker.CircuitBreaker
	now          func() time.Time
	logger       *logging.Logger
}

// FetcherOption customizes a Fetcher.
type FetcherOption func(*Fetcher)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *Fetcher) {
		if c != nil {
			f.httpClient = c
		}
	}
}

// WithHomeURL overrides the publisher homepage used for discovery.
func WithHomeURL(u string) FetcherOption {
	return func(f *Fetcher) {
		if u != "" {
			f.homeURL = u
		}
	}
}

// WithExtractorURL overrides the extraction service prefix.
func WithExtractorURL(u string) FetcherOption {
	return func(f *Fetcher) {
		if u != "" {
			f.extractorURL = u
		}
	}
}

// WithUserAgent overrides the user agent sent to both upstreams.
func WithUserAgent(ua string) FetcherOption {
	return func(f *Fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithClock overrides the time source used for the fallback report date.
func WithClock(now func() time.Time) FetcherOption {
	return func(f *Fetcher) {
		if now != nil {
			f.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) FetcherOption {
	return func(f *Fetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// NewFetcher builds a Fetcher. Both upstream calls share one circuit breaker so
// a dead upstream fails fast instead of stalling every sync attempt.
func NewFetcher(timeout time.Duration, opts ...FetcherOption) *Fetcher {
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	f := &Fetcher{
		homeURL:      DefaultHomeURL,
		extractorURL: DefaultExtractorURL,
		userAgent:    DefaultUserAgent,
		httpClient:   &http.Client{Timeout: timeout},
		now:          time.Now,
		logger:       logging.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "report-upstream",
		MaxRequests: 1,
		Interval:    10 * time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			f.logger.Warn("report: circuit breaker state changed",
				"breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return f
}

// Fetch discovers the latest report and extracts its text.
func (f *Fetcher) Fetch(ctx context.Context) (*Report, error) {
	ctx, span := fetchTracer.Start(ctx, "report.fetch", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	meta, err := f.Discover(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(
		attribute.String("slotwatch.report_date", meta.Date),
		attribute.String("slotwatch.report_url", meta.URL),
	)

	text, err := f.Extract(ctx, meta)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return &Report{Text: text, Meta: meta}, nil
}

// Discover locates the daily report link and its published date on the homepage.
// Without a dated heading the report date falls back to today (yyyy-mm-dd).
func (f *Fetcher) Discover(ctx context.Context) (slots.ReportMeta, error) {
	body, err := f.get(ctx, f.homeURL)
	if err != nil {
		return slots.ReportMeta{}, fmt.Errorf("report: home fetch: %w", err)
	}
	meta, ok := findReportMeta(body)
	if !ok {
		return slots.ReportMeta{}, ErrReportNotFound
	}
	if meta.Date == "" {
		meta.Date = f.now().UTC().Format("2006-01-02")
	}
	return meta, nil
}

// Extract fetches the report document as line-oriented text.
func (f *Fetcher) Extract(ctx context.Context, meta slots.ReportMeta) (string, error) {
	target := f.extractorURL + "http://" + meta.URL
	body, err := f.get(ctx, target)
	if err != nil {
		return "", fmt.Errorf("report: extract: %w", err)
	}
	return body, nil
}

func (f *Fetcher) get(ctx context.Context, url string) (string, error) {
	result, err := f.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", f.userAgent)

		resp, err := f.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
		}
		data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return nil, err
		}
		return string(data), nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

// findReportMeta walks the homepage HTML for the first report anchor and the
// first <h6> whose whole text is a dd.mm.yyyy date.
func findReportMeta(body string) (slots.ReportMeta, bool) {
	var meta slots.ReportMeta
	z := html.NewTokenizer(strings.NewReader(body))
	inH6 := false
	var h6Text strings.Builder

	for {
		switch z.Next() {
		case html.ErrorToken:
			return meta, meta.URL != ""
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			switch tok.Data {
			case "a":
				if meta.URL != "" {
					continue
				}
				for _, attr := range tok.Attr {
					if attr.Key == "href" && reportLink.MatchString(attr.Val) {
						meta.URL = attr.Val
						break
					}
				}
			case "h6":
				inH6 = true
				h6Text.Reset()
			}
		case html.TextToken:
			if inH6 {
				h6Text.Write(z.Text())
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if string(name) == "h6" && inH6 {
				inH6 = false
				if meta.Date == "" && reportDate.MatchString(h6Text.String()) {
					meta.Date = h6Text.String()
				}
			}
		}
	}
}

// Snapshot parses and aggregates an extracted report.
func Snapshot(r *Report, generatedAt time.Time) *slots.Snapshot {
	records := Parse(ExtractMarkdown(r.Text), r.Meta)
	return Aggregate(records, r.Meta, generatedAt)
}
