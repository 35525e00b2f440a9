package ggbench

import (
	"time"
)

// Category identifies one benchmark of the suite.
type Category int

const (
	// CategoryCPU is the bubble sort benchmark.
	CategoryCPU Category = iota
	// CategoryMemory is the write-then-read benchmark.
	CategoryMemory
	// CategoryGPU is the offscreen scene rendering benchmark.
	CategoryGPU
)

// Categories lists every category in run order.
var Categories = []Category{CategoryCPU, CategoryMemory, CategoryGPU}

// String returns the display name of the category.
func (c Category) String() string {
	switch c {
	case CategoryCPU:
		return "CPU"
	case CategoryMemory:
		return "Memory"
	case CategoryGPU:
		return "GPU"
	default:
		return "Unknown"
	}
}

// Status tells how a category ended.
type Status int

const (
	// StatusPending means the category has not run yet.
	StatusPending Status = iota
	// StatusOK means the score was measured.
	StatusOK
	// StatusUnavailable means the category failed closed, for example when
	// no graphics context could be created. The score is 0.
	StatusUnavailable
	// StatusError means the category failed while running. The score is 0
	// and must not be shown as a measurement.
	StatusError
	// StatusSkipped means the run was cancelled before the category started.
	StatusSkipped
)

// String returns the display name of the status.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusOK:
		return "OK"
	case StatusUnavailable:
		return "Unavailable"
	case StatusError:
		return "Error"
	case StatusSkipped:
		return "Skipped"
	default:
		return "Unknown"
	}
}

// Result is the outcome of one category.
type Result struct {
	Category Category
	Status   Status

	// Score is the normalized score, higher is better. It is 0 unless
	// Status is StatusOK.
	Score int

	// Size is the workload size: elements for CPU and memory, frames for GPU.
	Size int

	// Duration is the measured time of the workload.
	Duration time.Duration

	// FPS is the measured frame rate of the GPU category.
	FPS float64

	// Device describes the graphics device of the GPU category.
	Device string

	// Err is the failure behind StatusUnavailable, StatusError and
	// StatusSkipped.
	Err error
}

// Done reports whether the result carries a score or an error sentinel.
func (r Result) Done() bool {
	switch r.Status {
	case StatusOK, StatusUnavailable, StatusError:
		return true
	default:
		return false
	}
}

// Report holds one result per category.
type Report struct {
	CPU    Result
	Memory Result
	GPU    Result
}

// newReport returns a report with every category pending.
func newReport() Report {
	return Report{
		CPU:    Result{Category: CategoryCPU},
		Memory: Result{Category: CategoryMemory},
		GPU:    Result{Category: CategoryGPU},
	}
}

// Result returns the result of category c.
func (r Report) Result(c Category) Result {
	switch c {
	case CategoryCPU:
		return r.CPU
	case CategoryMemory:
		return r.Memory
	default:
		return r.GPU
	}
}

func (r *Report) set(res Result) {
	switch res.Category {
	case CategoryCPU:
		r.CPU = res
	case CategoryMemory:
		r.Memory = res
	case CategoryGPU:
		r.GPU = res
	}
}

// Results returns the results in run order.
func (r Report) Results() []Result {
	return []Result{r.CPU, r.Memory, r.GPU}
}

// Scores returns the three integer scores.
func (r Report) Scores() (cpuScore, memoryScore, gpuScore int) {
	return r.CPU.Score, r.Memory.Score, r.GPU.Score
}

// Complete reports whether all three categories produced a result.
func (r Report) Complete() bool {
	return r.CPU.Done() && r.Memory.Done() && r.GPU.Done()
}
