package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kaledh4/daily-alpha-loop/internal/ai"
	"github.com/kaledh4/daily-alpha-loop/internal/config"
	"github.com/kaledh4/daily-alpha-loop/internal/filter"
	"github.com/kaledh4/daily-alpha-loop/internal/loader"
	"github.com/kaledh4/daily-alpha-loop/internal/persist"
	"github.com/kaledh4/daily-alpha-loop/internal/sources"
	"github.com/kaledh4/daily-alpha-loop/internal/utils"
)

// Dashboards lists every dashboard this pipeline can generate, in build
// order. The synthesis dashboards come last because they read the
// others' snapshots.
var Dashboards = []string{
	"the-shield",
	"the-coin",
	"the-library",
	"the-strategy",
	"the-commander",
}

const unavailableAnalysis = "AI analysis unavailable"

// Pipeline runs one fetch cycle: gather upstream data once, make one
// orchestrated model call for every dashboard, then write each selected
// dashboard's latest.json.
type Pipeline struct {
	cfg      *config.FetcherConfig
	src      *sources.Client
	orch     *ai.Orchestrator // nil when model calls are disabled
	selector *filter.Selector
	store    persist.Store // last-known-good snapshots; may be nil
	request  ai.Request
	now      func() time.Time
}

func New(cfg *config.Config, src *sources.Client, orch *ai.Orchestrator, selector *filter.Selector, store persist.Store) *Pipeline {
	return &Pipeline{
		cfg:      cfg.Fetcher,
		src:      src,
		orch:     orch,
		selector: selector,
		store:    store,
		request: ai.Request{
			System:      "You are a master financial analyst. Return ONLY valid JSON, no markdown.",
			Temperature: cfg.AI.Temperature,
			MaxTokens:   cfg.AI.MaxTokens,
			WantJSON:    true,
		},
		now: time.Now,
	}
}

// gathered is the upstream data for one cycle. Missing pieces stay nil;
// a feed being down must not abort the run.
type gathered struct {
	fearGreed *sources.FearGreed
	treasury  *sources.TreasuryAuction
	news      []sources.Article
}

// analysisSection is one dashboard's slice of the unified model reply.
type analysisSection struct {
	Analysis  string `json:"analysis"`
	RiskLevel string `json:"risk_level"`
	Momentum  string `json:"momentum"`
	Stance    string `json:"stance"`
	Mindset   string `json:"mindset"`
}

// Run executes one full cycle for every selected dashboard.
func (p *Pipeline) Run(ctx context.Context) error {
	data := p.gather(ctx)

	if p.cfg.PacingDelay > 0 {
		// Spread independent call groups so unrelated call-sites do
		// not burst a shared quota.
		time.Sleep(p.cfg.PacingDelay)
	}

	analysis := p.analyze(ctx, data)

	for _, name := range Dashboards {
		if !p.selector.Match(name) {
			continue
		}
		doc := p.build(ctx, name, data, analysis)
		if err := p.write(ctx, name, doc); err != nil {
			return fmt.Errorf("pipeline: writing %s: %w", name, err)
		}
		utils.Logger.Printf("saved %s", name)
	}
	return nil
}

func (p *Pipeline) gather(ctx context.Context) gathered {
	var data gathered

	if fng, err := p.src.FearGreed(ctx); err != nil {
		utils.Logger.Printf("fear & greed unavailable: %v", err)
	} else {
		data.fearGreed = &fng
	}
	if auction, err := p.src.TreasuryAuction(ctx); err != nil {
		utils.Logger.Printf("treasury data unavailable: %v", err)
	} else {
		data.treasury = &auction
	}
	if news, err := p.src.News(ctx, 10); err != nil {
		utils.Logger.Printf("news unavailable: %v", err)
	} else {
		data.news = news
	}
	return data
}

// analyze makes the single unified model call and splits the reply per
// dashboard. Any failure yields an empty map; dashboards then carry the
// documented placeholder instead of fabricated content.
func (p *Pipeline) analyze(ctx context.Context, data gathered) map[string]analysisSection {
	if p.orch == nil {
		return nil
	}

	req := p.request
	req.Prompt = buildPrompt(data)

	payload, err := p.orch.Generate(ctx, req)
	if err != nil {
		utils.Logger.Printf("model call failed: %v", err)
		return nil
	}

	var sections map[string]analysisSection
	if err := json.Unmarshal([]byte(payload), &sections); err != nil {
		utils.Logger.Printf("model reply did not match the expected shape: %v", err)
		return nil
	}
	return sections
}

func buildPrompt(data gathered) string {
	var b strings.Builder
	b.WriteString("Analyze the following market data and generate briefings for the dashboards ")
	b.WriteString("the_shield, the_coin, the_library, the_strategy and the_commander.\n\n")

	if data.treasury != nil {
		fmt.Fprintf(&b, "10Y Treasury bid-to-cover: %.2f (auction %s)\n", data.treasury.BidToCover, data.treasury.AuctionDate)
	}
	if data.fearGreed != nil {
		fmt.Fprintf(&b, "Crypto Fear & Greed: %d (%s)\n", data.fearGreed.Value, data.fearGreed.Classification)
	}
	if len(data.news) > 0 {
		b.WriteString("Headlines:\n")
		for _, article := range data.news {
			fmt.Fprintf(&b, "- %s\n", article.Title)
		}
	}

	b.WriteString("\nReturn ONLY a JSON object keyed by dashboard name. Each value has ")
	b.WriteString(`an "analysis" string plus "risk_level" (the_shield), "momentum" (the_coin), `)
	b.WriteString(`or "stance" and "mindset" (the_strategy, the_commander).`)
	return b.String()
}

func (p *Pipeline) build(ctx context.Context, name string, data gathered, analysis map[string]analysisSection) map[string]interface{} {
	section := analysis[strings.ReplaceAll(name, "-", "_")]
	if section.Analysis == "" {
		section.Analysis = unavailableAnalysis
	}

	doc := map[string]interface{}{
		"dashboard":   name,
		"generatedAt": p.now().UTC().Format(time.RFC3339),
		"ai_analysis": section.Analysis,
	}

	switch name {
	case "the-shield":
		level := section.RiskLevel
		if data.treasury != nil {
			doc["bid_to_cover"] = data.treasury.BidToCover
			doc["auction_date"] = data.treasury.AuctionDate
			if level == "" {
				level = bidToCoverSignal(data.treasury.BidToCover)
			}
		}
		if level == "" {
			level = "UNKNOWN"
		}
		doc["risk_level"] = level
	case "the-coin":
		momentum := section.Momentum
		if momentum == "" {
			momentum = "Neutral"
		}
		doc["momentum"] = momentum
		if data.fearGreed != nil {
			doc["fear_and_greed"] = map[string]interface{}{
				"value":          data.fearGreed.Value,
				"classification": data.fearGreed.Classification,
			}
		}
	case "the-library":
		doc["articles"] = data.news
	case "the-strategy":
		stance := section.Stance
		if stance == "" {
			stance = "Neutral"
		}
		doc["stance"] = stance
		doc["inputs"] = p.upstreamInputs(ctx, "the-shield", "the-coin")
	case "the-commander":
		stance := section.Stance
		if stance == "" {
			stance = "Neutral"
		}
		mindset := section.Mindset
		if mindset == "" {
			mindset = "Data feeds active. AI synthesis pending next scheduled run."
		}
		doc["action_stance"] = stance
		doc["summary_sentence"] = mindset
		doc["inputs"] = p.upstreamInputs(ctx, "the-shield", "the-coin", "the-strategy")
	}
	return doc
}

// upstreamInputs reads other dashboards' snapshots through the waterfall
// loader, so the synthesis dashboards degrade gracefully when a local
// file is missing but a remote copy exists.
func (p *Pipeline) upstreamInputs(ctx context.Context, names ...string) map[string]interface{} {
	inputs := make(map[string]interface{})
	for _, name := range names {
		l, err := loader.New(p.snapshotCandidates(name), p.cfg.FetchTimeout)
		if err != nil {
			continue
		}
		snap, ok := l.Load(ctx)
		if !ok {
			inputs[name] = "unavailable"
			continue
		}
		summary := map[string]interface{}{"generatedAt": snap.GeneratedAt.Format(time.RFC3339)}
		for _, field := range []string{"risk_level", "momentum", "stance"} {
			if v, exists := snap.Document[field]; exists {
				summary[field] = v
			}
		}
		inputs[name] = summary
	}
	return inputs
}

func (p *Pipeline) snapshotCandidates(name string) []string {
	candidates := []string{filepath.Join(p.cfg.DataDir, name, "latest.json")}
	for _, base := range p.cfg.SnapshotBaseURLs {
		candidates = append(candidates, strings.TrimRight(base, "/")+"/"+name+"/latest.json")
	}
	return candidates
}

func (p *Pipeline) write(ctx context.Context, name string, doc map[string]interface{}) error {
	dir := filepath.Join(p.cfg.DataDir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, "latest.json"), data, 0o644); err != nil {
		return err
	}
	if p.store != nil {
		if err := p.store.Set(ctx, name, doc); err != nil {
			utils.Logger.Printf("last-known-good store rejected %s: %v", name, err)
		}
	}
	return nil
}

func bidToCoverSignal(ratio float64) string {
	switch {
	case ratio < 2.0:
		return "CRITICAL"
	case ratio < 2.3:
		return "ELEVATED"
	default:
		return "LOW"
	}
}
