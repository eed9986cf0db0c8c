package routerctl

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/model"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/pkg/logger"
)

// LoadConfig drives a burst of routed prompts against the service.
type LoadConfig struct {
	Requests int
	Workers  int
	Prompts  []model.Question
}

// LoadStats summarizes a load run.
type LoadStats struct {
	Sent       int
	Succeeded  int
	Switched   int
	Failed     int
	ModelsUsed map[string]int
	Duration   time.Duration
	P50        time.Duration
	P95        time.Duration
}

// RunLoad sends cfg.Requests prompts through cfg.Workers concurrent workers,
// cycling over cfg.Prompts.
func RunLoad(ctx context.Context, c *Client, cfg LoadConfig) LoadStats {
	var (
		sent, succeeded, switched, failed atomic.Int64
		mu                                sync.Mutex
		latencies                         = make([]time.Duration, 0, cfg.Requests)
		used                              = map[string]int{}
	)
	if len(cfg.Prompts) == 0 || cfg.Requests <= 0 {
		return LoadStats{ModelsUsed: used}
	}
	workers := max(cfg.Workers, 1)

	start := time.Now()
	jobs := make(chan model.Question, workers*2)
	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for q := range jobs {
				if ctx.Err() != nil {
					return
				}
				began := time.Now()
				res, err := c.Chat(ctx, q.Text, nil)
				elapsed := time.Since(began)
				sent.Add(1)
				if err != nil {
					failed.Add(1)
					c.logger.Debug(ctx, "load request failed", logger.Int("worker", workerID), logger.String("question", q.ID), logger.Error(err))
					continue
				}
				succeeded.Add(1)
				if res.Switched {
					switched.Add(1)
				}
				mu.Lock()
				latencies = append(latencies, elapsed)
				used[res.ModelUsed]++
				mu.Unlock()
			}
		}(w)
	}

	go func() {
		defer close(jobs)
		for i := range cfg.Requests {
			select {
			case <-ctx.Done():
				return
			case jobs <- cfg.Prompts[i%len(cfg.Prompts)]:
			}
		}
	}()
	wg.Wait()

	slices.Sort(latencies)
	return LoadStats{
		Sent:       int(sent.Load()),
		Succeeded:  int(succeeded.Load()),
		Switched:   int(switched.Load()),
		Failed:     int(failed.Load()),
		ModelsUsed: used,
		Duration:   time.Since(start),
		P50:        percentile(latencies, 0.50),
		P95:        percentile(latencies, 0.95),
	}
}

// percentile expects sorted input.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(p * float64(len(sorted)-1))
	return sorted[idx]
}
