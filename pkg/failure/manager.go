package failure

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"time"

	"golang.org/x/crypto/blake2s"

	"netgraph/pkg/apperror"
	"netgraph/pkg/domain"
	"netgraph/pkg/logger"
	"netgraph/pkg/metrics"
	"netgraph/pkg/telemetry"
)

// AnalysisFunc runs one analysis iteration against net with the given
// exclusions and returns an opaque, JSON-safe result. Implementations
// must not mutate net — the FailureManager shares it by reference across
// every worker.
type AnalysisFunc func(net *domain.Network, excl Exclusions) (any, error)

// IterationResult is one enriched Monte Carlo result.
type IterationResult struct {
	FailureID       string
	IsBaseline      bool
	FailureState    *Exclusions
	OccurrenceCount int
	Data            any
}

// RunResult is the full output of run_monte_carlo_analysis.
type RunResult struct {
	Baseline        IterationResult
	Results         []IterationResult
	Iterations      int
	Parallelism     int
	UniquePatterns  int
	ExecutionTime   time.Duration
	AnalysisName    string
	PolicyName      string
}

// RunOptions configures run_monte_carlo_analysis.
type RunOptions struct {
	Iterations  int
	Parallelism int // 0 or negative resolves to runtime.NumCPU()
	Seed        int64
	AnalysisName string
	PolicyName   string
	Recorder    *metrics.Recorder
}

// dedupTask is one unique exclusion pattern and the iterations it represents.
type dedupTask struct {
	excl            Exclusions
	firstSeenAt     int
	occurrenceCount int
}

// RunMonteCarloAnalysis is the FailureManager's Monte Carlo driver: it
// always runs exactly one baseline task separately, deduplicates
// per-iteration exclusion sets into unique tasks, and runs the unique
// tasks serially or via a worker pool depending on parallelism and task
// count.
func RunMonteCarloAnalysis(net *domain.Network, policy *Policy, fn AnalysisFunc, opts RunOptions) (result RunResult, err error) {
	start := time.Now()

	iterations := opts.Iterations
	if policy == nil || !policy.HasEffectiveRules() {
		iterations = 0
	}

	_, span := telemetry.StartMonteCarloRun(context.Background(), opts.AnalysisName, opts.PolicyName, iterations)
	defer func() { telemetry.EndWithError(span, err) }()

	baselineData, err := fn(net, Exclusions{Nodes: map[string]struct{}{}, Links: map[string]struct{}{}})
	if err != nil {
		return RunResult{}, apperror.Wrap(err, apperror.CodeInternal, "baseline analysis failed")
	}
	baseline := IterationResult{FailureID: "", IsBaseline: true, OccurrenceCount: 1, Data: baselineData}

	if iterations <= 0 {
		return RunResult{
			Baseline:     baseline,
			Iterations:   0,
			Parallelism:  resolveParallelism(opts.Parallelism),
			AnalysisName: opts.AnalysisName,
			PolicyName:   opts.PolicyName,
			ExecutionTime: time.Since(start),
		}, nil
	}

	tasksByKey := make(map[string]*dedupTask)
	var orderedKeys []string
	for i := 0; i < iterations; i++ {
		seed := opts.Seed + int64(i)
		excl := ComputeExclusions(net, *policy, &seed)
		key := dedupKey(excl)
		if t, ok := tasksByKey[key]; ok {
			t.occurrenceCount++
			continue
		}
		tasksByKey[key] = &dedupTask{excl: excl, firstSeenAt: i, occurrenceCount: 1}
		orderedKeys = append(orderedKeys, key)
	}

	parallelism := resolveParallelism(opts.Parallelism)
	logger.Debug("monte carlo run", "analysis", opts.AnalysisName, "iterations", iterations, "unique_patterns", len(orderedKeys), "parallelism", parallelism)

	resultsByKey := make(map[string]any, len(orderedKeys))
	errsByKey := make(map[string]error, len(orderedKeys))

	if parallelism <= 1 || len(orderedKeys) < 2 {
		for _, key := range orderedKeys {
			t := tasksByKey[key]
			if opts.Recorder != nil {
				timer := metrics.NewTimer(opts.Recorder.IterationDuration)
				data, err := fn(net, t.excl)
				timer.Stop()
				resultsByKey[key], errsByKey[key] = data, err
			} else {
				resultsByKey[key], errsByKey[key] = fn(net, t.excl)
			}
		}
	} else {
		workers := parallelism
		if workers > len(orderedKeys) {
			workers = len(orderedKeys)
		}
		var mu sync.Mutex
		keyCh := make(chan string, len(orderedKeys))
		for _, key := range orderedKeys {
			keyCh <- key
		}
		close(keyCh)

		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if opts.Recorder != nil {
					opts.Recorder.WorkersInFlight.Inc()
					defer opts.Recorder.WorkersInFlight.Dec()
				}
				for key := range keyCh {
					t := tasksByKey[key]
					data, err := fn(net, t.excl)
					mu.Lock()
					resultsByKey[key] = data
					errsByKey[key] = err
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
	}

	for _, err := range errsByKey {
		if err != nil {
			return RunResult{}, apperror.Wrap(err, apperror.CodeInternal, "monte carlo worker failed")
		}
	}

	results := make([]IterationResult, 0, len(orderedKeys))
	for _, key := range orderedKeys {
		t := tasksByKey[key]
		exclCopy := t.excl
		results = append(results, IterationResult{
			FailureID:       failureID(t.excl),
			IsBaseline:      false,
			FailureState:    &exclCopy,
			OccurrenceCount: t.occurrenceCount,
			Data:            resultsByKey[key],
		})
	}

	if opts.Recorder != nil {
		opts.Recorder.IterationsTotal.WithLabelValues(opts.AnalysisName).Add(float64(iterations))
		opts.Recorder.UniquePatternsTotal.Add(float64(len(orderedKeys)))
	}

	return RunResult{
		Baseline:       baseline,
		Results:        results,
		Iterations:     iterations,
		Parallelism:    parallelism,
		UniquePatterns: len(orderedKeys),
		ExecutionTime:  time.Since(start),
		AnalysisName:   opts.AnalysisName,
		PolicyName:     opts.PolicyName,
	}, nil
}

func resolveParallelism(p int) int {
	if p <= 0 {
		return runtime.NumCPU()
	}
	return p
}

// dedupKey builds the dedup key (sorted_nodes, sorted_links) — the
// analysis name and kwargs are constant within one run, so they are
// omitted from this in-run key.
func dedupKey(excl Exclusions) string {
	nodes := excl.SortedNodes()
	links := excl.SortedLinks()
	sort.Strings(nodes)
	sort.Strings(links)
	key := ""
	for _, n := range nodes {
		key += "N:" + n + ","
	}
	key += "|"
	for _, l := range links {
		key += "L:" + l + ","
	}
	return key
}

// failureID is BLAKE2s-8 hex of "sorted(nodes).join(,") + "|" +
// sorted(links).join(",")`.
func failureID(excl Exclusions) string {
	payload := joinWithComma(excl.SortedNodes()) + "|" + joinWithComma(excl.SortedLinks())
	sum := blake2sSum8([]byte(payload))
	const hexDigits = "0123456789abcdef"
	out := make([]byte, 0, len(sum)*2)
	for _, b := range sum {
		out = append(out, hexDigits[b>>4], hexDigits[b&0x0f])
	}
	return string(out)
}

func joinWithComma(items []string) string {
	out := ""
	for i, s := range items {
		if i > 0 {
			out += ","
		}
		out += s
	}
	return out
}

func blake2sSum8(payload []byte) []byte {
	h, err := blake2s.NewXOF(8, nil)
	if err != nil {
		// NewXOF only errors on an invalid key; a nil key is always valid.
		panic(err)
	}
	h.Write(payload)
	sum := make([]byte, 8)
	if _, err := h.Read(sum); err != nil {
		panic(err)
	}
	return sum
}
