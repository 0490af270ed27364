package demo

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

// generator synthesizes demo-type-appropriate payloads, one per simulator
// tick. Each generator owns its rand source so concurrent simulators never
// contend on a shared one.
type generator struct {
	demoType Type
	rng      *rand.Rand

	// payment-processing: current step of the matching cycle
	step int

	// data-pipeline: current batch progress
	processed    int
	totalRecords int
	batch        int

	// dashboards: drifting baseline values
	revenue float64
	margin  float64
	dso     float64
}

var paymentSteps = []struct {
	step        string
	description string
}{
	{"validation", "Validating payment details"},
	{"matching", "Finding invoice matches"},
	{"scoring", "Calculating confidence scores"},
	{"applying", "Applying payment to invoices"},
	{"updating", "Updating AR ledger"},
	{"completed", "Payment processing complete"},
}

var pipelineStages = []struct {
	stage string
	until float64 // cumulative fraction of records at stage end
}{
	{"extraction", 0.30},
	{"transformation", 0.70},
	{"validation", 0.90},
	{"loading", 1.0},
}

func newGenerator(demoType Type, seed int64) *generator {
	g := &generator{
		demoType: demoType,
		rng:      rand.New(rand.NewSource(seed)),
		revenue:  2_500_000,
		margin:   40.5,
		dso:      42.5,
	}
	g.resetBatch()
	return g
}

func (g *generator) resetBatch() {
	g.batch++
	g.processed = 0
	g.totalRecords = 50 + g.rng.Intn(451)
}

// next produces the payload for one tick.
func (g *generator) next(now time.Time) (kind string, data any) {
	switch g.demoType {
	case TypePaymentProcessing:
		return g.nextPayment()
	case TypeDataPipeline:
		return g.nextPipeline()
	case TypeCollectionsDashboard:
		return g.nextCollections()
	default:
		return g.nextSales(now)
	}
}

func (g *generator) nextPayment() (string, any) {
	current := paymentSteps[g.step]
	data := map[string]any{
		"step":        current.step,
		"description": current.description,
		"status":      "completed",
	}
	if current.step == "scoring" {
		data["confidence_score"] = round2(0.5 + g.rng.Float64()*0.45)
	}
	if current.step == "completed" {
		data["matched_invoices"] = 1 + g.rng.Intn(3)
		data["amount_applied"] = round2(5_000 + g.rng.Float64()*45_000)
	}
	g.step = (g.step + 1) % len(paymentSteps)
	return "payment_processing_update", data
}

func (g *generator) nextPipeline() (string, any) {
	if g.processed >= g.totalRecords {
		g.resetBatch()
	}

	chunk := g.totalRecords/10 + g.rng.Intn(20)
	g.processed = min(g.processed+chunk, g.totalRecords)
	progress := float64(g.processed) / float64(g.totalRecords)

	stage := pipelineStages[len(pipelineStages)-1].stage
	for _, s := range pipelineStages {
		if progress <= s.until {
			stage = s.stage
			break
		}
	}

	status := "processing"
	if g.processed == g.totalRecords {
		status = "completed"
	}

	return "pipeline_progress", map[string]any{
		"batch_id":          fmt.Sprintf("BATCH-%04d", g.batch),
		"stage":             stage,
		"status":            status,
		"progress":          round2(progress * 100),
		"processed_records": g.processed,
		"total_records":     g.totalRecords,
	}
}

func (g *generator) nextSales(now time.Time) (string, any) {
	g.revenue += -5_000 + g.rng.Float64()*20_000
	g.margin = clamp(g.margin+(-0.5+g.rng.Float64()*1.7), 30, 50)

	return "dashboard_update", map[string]any{
		"kpis": []map[string]any{
			{"name": "Total Revenue", "value": round2(g.revenue), "unit": "$", "trend": trend(g.rng)},
			{"name": "Gross Margin", "value": round2(g.margin), "unit": "%", "trend": trend(g.rng)},
			{"name": "Customer Count", "value": 120 + g.rng.Intn(15), "unit": "", "trend": trend(g.rng)},
			{"name": "Churn Rate", "value": round2(4 + g.rng.Float64()*3), "unit": "%", "trend": trend(g.rng)},
		},
		"as_of": now.UTC(),
	}
}

func (g *generator) nextCollections() (string, any) {
	g.dso = clamp(g.dso+(-0.8+g.rng.Float64()*1.4), 30, 60)

	buckets := []map[string]any{
		{"bucket": "current", "days_range": "0-30 days", "amount": round2(800_000 + g.rng.Float64()*100_000)},
		{"bucket": "30_days", "days_range": "31-60 days", "amount": round2(280_000 + g.rng.Float64()*80_000)},
		{"bucket": "60_days", "days_range": "61-90 days", "amount": round2(150_000 + g.rng.Float64()*60_000)},
		{"bucket": "90_plus", "days_range": "90+ days", "amount": round2(120_000 + g.rng.Float64()*60_000)},
	}

	return "collections_update", map[string]any{
		"dso_metrics": map[string]any{
			"current_dso": round2(g.dso),
			"target_dso":  35.0,
			"trend":       trend(g.rng),
		},
		"aging_analysis":  buckets,
		"collections_mtd": round2(400_000 + g.rng.Float64()*150_000),
	}
}

func trend(rng *rand.Rand) string {
	if rng.Intn(2) == 0 {
		return "up"
	}
	return "down"
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
