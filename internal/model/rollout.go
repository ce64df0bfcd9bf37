package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// RolloutJob describes one configuration push to a fleet of hosts.
// The checksum is computed once at creation and never recomputed mid-flight.
// A job is read-only for its whole lifetime and safe to share across workers.
type RolloutJob struct {
	Hosts         []Host        `json:"hosts"`
	ConfigContent string        `json:"config_content"`
	Filename      string        `json:"filename"`
	Checksum      string        `json:"checksum"`
	Parallelism   int           `json:"parallelism"`
	HostTimeout   time.Duration `json:"host_timeout"`
}

// DefaultParallelism bounds concurrent host operations when the caller
// does not specify a limit.
const DefaultParallelism = 10

// DefaultHostTimeout bounds a single transfer or restart call.
const DefaultHostTimeout = 30 * time.Second

// NewRolloutJob creates a job for the given hosts and content. The content
// checksum is calculated here, once.
func NewRolloutJob(hosts []Host, content, filename string) RolloutJob {
	sum := sha256.Sum256([]byte(content))
	return RolloutJob{
		Hosts:         hosts,
		ConfigContent: content,
		Filename:      filename,
		Checksum:      hex.EncodeToString(sum[:]),
		Parallelism:   DefaultParallelism,
		HostTimeout:   DefaultHostTimeout,
	}
}

// NewRolloutJobFromHostnames creates a job from bare hostnames using
// default transport settings for every host.
func NewRolloutJobFromHostnames(hostnames []string, content, filename string) RolloutJob {
	hosts := make([]Host, 0, len(hostnames))
	for _, h := range hostnames {
		hosts = append(hosts, NewHost(h))
	}
	return NewRolloutJob(hosts, content, filename)
}

// HostResult is the outcome of processing a single host. The orchestrator
// only collects results; it never mutates one after creation.
type HostResult struct {
	Hostname   string  `json:"hostname"`
	Success    bool    `json:"success"`
	Message    string  `json:"message"`
	DurationMs float64 `json:"duration_ms"`
}

// RolloutReport summarizes a completed rollout. Results are keyed by
// hostname; completion order across hosts carries no meaning.
type RolloutReport struct {
	SuccessCount int                   `json:"success"`
	FailCount    int                   `json:"fail"`
	DurationS    float64               `json:"duration_s"`
	Results      map[string]HostResult `json:"results"`
}

// NewRolloutReport builds a report from collected host results.
func NewRolloutReport(results map[string]HostResult, duration time.Duration) RolloutReport {
	success := 0
	for _, r := range results {
		if r.Success {
			success++
		}
	}
	return RolloutReport{
		SuccessCount: success,
		FailCount:    len(results) - success,
		DurationS:    duration.Seconds(),
		Results:      results,
	}
}

// SuccessRate returns the fraction of hosts that succeeded, 0 for an
// empty report.
func (r *RolloutReport) SuccessRate() float64 {
	total := r.SuccessCount + r.FailCount
	if total == 0 {
		return 0
	}
	return float64(r.SuccessCount) / float64(total)
}
