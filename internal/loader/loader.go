package loader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/kaledh4/daily-alpha-loop/internal/utils"
	metrics "github.com/rcrowley/go-metrics"
)

// Snapshot is one parsed dashboard document. The payload shape is
// resource specific; the loader only requires the timestamp.
type Snapshot struct {
	GeneratedAt time.Time
	Source      string // the candidate that produced it
	Document    map[string]interface{}
}

// Loader retrieves the latest snapshot for one resource by walking a
// fixed, ordered candidate list: local or preferred locations first,
// remote fallbacks last. The first candidate that yields a valid
// document wins; the rest are never touched.
type Loader struct {
	candidates []string
	client     *http.Client
	now        func() time.Time
	failures   metrics.Counter
}

// New builds a Loader. An empty candidate list is a configuration bug
// and fails immediately.
func New(candidates []string, timeout time.Duration) (*Loader, error) {
	if len(candidates) == 0 {
		return nil, errors.New("loader: candidate list is empty")
	}
	return &Loader{
		candidates: candidates,
		client:     &http.Client{Timeout: timeout},
		now:        time.Now,
		failures:   utils.NewCounter("loader.failures"),
	}, nil
}

// Load tries each candidate in order and returns the first valid
// snapshot. ok is false when every candidate failed; Load never returns
// an error across this boundary.
func (l *Loader) Load(ctx context.Context) (Snapshot, bool) {
	for _, candidate := range l.candidates {
		snap, err := l.attempt(ctx, candidate)
		if err != nil {
			l.failures.Inc(1)
			if utils.Debug {
				utils.Logger.Printf("candidate %q failed: %v", candidate, err)
			}
			continue
		}
		return snap, true
	}
	return Snapshot{}, false
}

// Candidates returns the configured candidate list.
func (l *Loader) Candidates() []string {
	return l.candidates
}

func (l *Loader) attempt(ctx context.Context, candidate string) (Snapshot, error) {
	var body []byte
	var err error
	if isRemote(candidate) {
		body, err = l.fetchRemote(ctx, candidate)
	} else {
		body, err = os.ReadFile(candidate)
	}
	if err != nil {
		return Snapshot{}, err
	}
	return parseSnapshot(candidate, body)
}

func (l *Loader) fetchRemote(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cacheBust(rawURL, l.now()), nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func parseSnapshot(source string, body []byte) (Snapshot, error) {
	var doc map[string]interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return Snapshot{}, err
	}
	ts, err := documentTimestamp(doc)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{GeneratedAt: ts, Source: source, Document: doc}, nil
}

// documentTimestamp enforces the snapshot contract: a document without a
// parseable timestamp is not a snapshot, whatever else it contains.
func documentTimestamp(doc map[string]interface{}) (time.Time, error) {
	for _, field := range []string{"generatedAt", "timestamp"} {
		raw, ok := doc[field].(string)
		if !ok {
			continue
		}
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			return ts, nil
		}
		if ts, err := time.Parse("2006-01-02 15:04:05 UTC", raw); err == nil {
			return ts, nil
		}
		return time.Time{}, fmt.Errorf("unparseable timestamp %q", raw)
	}
	return time.Time{}, errors.New("document has no timestamp")
}

// cacheBust appends ?t=<epochMillis> so intermediate caches cannot serve
// a previous refresh cycle.
func cacheBust(rawURL string, now time.Time) string {
	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}
	return rawURL + sep + "t=" + url.QueryEscape(fmt.Sprintf("%d", now.UnixMilli()))
}

func isRemote(candidate string) bool {
	return strings.HasPrefix(candidate, "http://") || strings.HasPrefix(candidate, "https://")
}
