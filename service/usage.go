package service

import (
	"sort"
	"sync"
	"time"

	"github.com/clearledger/finsight/model"
)

// operationCosts prices one billable operation in USD.
var operationCosts = map[string]float64{
	"compliance_check":    0.10,
	"document_qa":         0.05,
	"document_extraction": 0.02,
}

// UsageTracker aggregates billable operations per tenant per day.
type UsageTracker struct {
	mu   sync.Mutex
	days map[string]*usageDay // keyed by tenant + "|" + date
}

type usageDay struct {
	tenant     string
	date       string
	operations map[string]int
	totalCost  float64
}

func NewUsageTracker() *UsageTracker {
	return &UsageTracker{days: make(map[string]*usageDay)}
}

// Record counts one operation for the tenant on today's date. Unknown
// operations are counted at zero cost.
func (t *UsageTracker) Record(tenant, operation string) {
	date := time.Now().UTC().Format("2006-01-02")
	key := tenant + "|" + date

	t.mu.Lock()
	defer t.mu.Unlock()

	day, ok := t.days[key]
	if !ok {
		day = &usageDay{
			tenant:     tenant,
			date:       date,
			operations: make(map[string]int),
		}
		t.days[key] = day
	}
	day.operations[operation]++
	day.totalCost += operationCosts[operation]
}

// Report returns the tenant's usage for the last n days, most recent
// first. Days with no activity are omitted.
func (t *UsageTracker) Report(tenant string, days int) []model.UsageDay {
	if days <= 0 {
		days = 30
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days).Format("2006-01-02")

	t.mu.Lock()
	defer t.mu.Unlock()

	var result []model.UsageDay
	for _, day := range t.days {
		if day.tenant != tenant || day.date < cutoff {
			continue
		}
		ops := make(map[string]int, len(day.operations))
		for k, v := range day.operations {
			ops[k] = v
		}
		result = append(result, model.UsageDay{
			Tenant:     day.tenant,
			Date:       day.date,
			Operations: ops,
			TotalCost:  day.totalCost,
		})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Date > result[j].Date
	})
	return result
}
