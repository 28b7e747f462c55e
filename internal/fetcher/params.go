// Package fetcher invokes the external story fetcher and reads the JSONL file
// it produces.
package fetcher

import (
	"strconv"
	"time"
)

// Config describes the external fetcher executable and its fixed knobs.
type Config struct {
	// Binary is the path of the fetcher executable.
	Binary string
	// Output is where the fetcher writes its JSONL file.
	Output string
	// MinScore excludes items scoring below it.
	MinScore int
	// Stories caps the number of items requested on a fresh run.
	Stories int
	// Timeout bounds a single invocation. Zero means no limit.
	Timeout time.Duration
}

// Params is one invocation's argument set.
type Params struct {
	OutputPath string
	MinScore   int
	Stories    int
	// StopAtID is the last identifier already stored. Zero means none.
	StopAtID int64
}

// Fresh builds parameters for a run without a stored snapshot: fetch up to
// cfg.Stories items scoring at least cfg.MinScore.
func Fresh(cfg Config) Params {
	return Params{
		OutputPath: cfg.Output,
		MinScore:   cfg.MinScore,
		Stories:    cfg.Stories,
	}
}

// Incremental builds parameters that stop once lastID is reached. The item
// cap is zero so the stop condition alone bounds the fetch.
func Incremental(cfg Config, lastID int64) Params {
	return Params{
		OutputPath: cfg.Output,
		MinScore:   cfg.MinScore,
		Stories:    0,
		StopAtID:   lastID,
	}
}

// IsIncremental reports whether the parameters carry a stop boundary.
func (p Params) IsIncremental() bool {
	return p.StopAtID > 0
}

// Mode names the run kind for logs and metrics.
func (p Params) Mode() string {
	if p.IsIncremental() {
		return "incremental"
	}
	return "fresh"
}

// Args renders the fetcher command line, excluding the binary.
func (p Params) Args() []string {
	args := []string{"-output", p.OutputPath}
	if p.IsIncremental() {
		args = append(args, "-stop-at-id", strconv.FormatInt(p.StopAtID, 10))
	}
	return append(args,
		"-min-score", strconv.Itoa(p.MinScore),
		"-stories", strconv.Itoa(p.Stories),
	)
}
