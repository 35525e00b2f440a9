package ggbench

import (
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/text/language"
)

func TestCategoryString(t *testing.T) {
	tests := []struct {
		c    Category
		want string
	}{
		{CategoryCPU, "CPU"},
		{CategoryMemory, "Memory"},
		{CategoryGPU, "GPU"},
		{Category(9), "Unknown"},
	}
	for _, tt := range tests {
		if got := tt.c.String(); got != tt.want {
			t.Errorf("Category(%d).String() = %q, want %q", int(tt.c), got, tt.want)
		}
	}
}

func TestReportComplete(t *testing.T) {
	ok := func(c Category) Result { return Result{Category: c, Status: StatusOK, Score: 1} }

	tests := []struct {
		name string
		rep  Report
		want bool
	}{
		{"new", newReport(), false},
		{"all ok", Report{CPU: ok(CategoryCPU), Memory: ok(CategoryMemory), GPU: ok(CategoryGPU)}, true},
		{"gpu unavailable", Report{CPU: ok(CategoryCPU), Memory: ok(CategoryMemory), GPU: Result{Category: CategoryGPU, Status: StatusUnavailable}}, true},
		{"gpu error", Report{CPU: ok(CategoryCPU), Memory: ok(CategoryMemory), GPU: Result{Category: CategoryGPU, Status: StatusError}}, true},
		{"gpu skipped", Report{CPU: ok(CategoryCPU), Memory: ok(CategoryMemory), GPU: Result{Category: CategoryGPU, Status: StatusSkipped}}, false},
		{"memory pending", Report{CPU: ok(CategoryCPU), GPU: ok(CategoryGPU)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rep.Complete(); got != tt.want {
				t.Errorf("Complete() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReportSetAndLookup(t *testing.T) {
	rep := newReport()
	rep.set(Result{Category: CategoryMemory, Status: StatusOK, Score: 42})
	if got := rep.Result(CategoryMemory).Score; got != 42 {
		t.Errorf("Result(Memory).Score = %d, want 42", got)
	}
	if got := rep.Result(CategoryCPU).Status; got != StatusPending {
		t.Errorf("Result(CPU).Status = %v, want Pending", got)
	}
	if _, mem, _ := rep.Scores(); mem != 42 {
		t.Errorf("Scores() memory = %d, want 42", mem)
	}
}

func sampleReport() Report {
	return Report{
		CPU:    Result{Category: CategoryCPU, Status: StatusOK, Score: 12345, Size: 10000, Duration: 810 * time.Millisecond},
		Memory: Result{Category: CategoryMemory, Status: StatusOK, Score: 1000, Size: 10000, Duration: 10 * time.Millisecond},
		GPU:    Result{Category: CategoryGPU, Status: StatusError, Err: errors.New("gpu: draw failed")},
	}
}

func TestFormat(t *testing.T) {
	got := sampleReport().Format(language.English)
	lines := strings.Split(strings.TrimSuffix(got, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("Format() has %d lines, want 3:\n%s", len(lines), got)
	}

	tests := []struct {
		line int
		want []string
	}{
		{0, []string{"CPU", "12,345", "10,000 elements in 810ms"}},
		{1, []string{"Memory", "1,000", "in 10ms"}},
		{2, []string{"GPU", "Error", "gpu: draw failed"}},
	}
	for _, tt := range tests {
		for _, w := range tt.want {
			if !strings.Contains(lines[tt.line], w) {
				t.Errorf("line %d = %q, missing %q", tt.line, lines[tt.line], w)
			}
		}
	}
}

func TestFormatGPUDetail(t *testing.T) {
	rep := sampleReport()
	rep.GPU = Result{
		Category: CategoryGPU,
		Status:   StatusOK,
		Score:    10000,
		Size:     300,
		Duration: 1500 * time.Millisecond,
		FPS:      200,
		Device:   "Fake Adapter (Software, fake)",
	}
	got := rep.String()
	for _, w := range []string{"10,000", "300 frames in 1.5s", "200.0 fps", "Fake Adapter"} {
		if !strings.Contains(got, w) {
			t.Errorf("String() missing %q:\n%s", w, got)
		}
	}
}

func TestFormatMultilineError(t *testing.T) {
	rep := sampleReport()
	rep.GPU.Err = errors.Join(errors.New("gpu: shader compile failed"), errors.New("missing uniform mvp\n"), errors.New("missing uniform light"))

	got := rep.Format(language.English)
	lines := strings.Split(strings.TrimSuffix(got, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("Format() has %d lines, want 3:\n%s", len(lines), got)
	}
	want := "gpu: shader compile failed; missing uniform mvp; missing uniform light"
	if !strings.HasSuffix(lines[2], want) {
		t.Errorf("gpu line = %q, want suffix %q", lines[2], want)
	}
	if line := rep.GPU.Format(language.English); line != lines[2] {
		t.Errorf("Result.Format() = %q, want %q", line, lines[2])
	}
}

func TestFormatLocalizedGrouping(t *testing.T) {
	got := sampleReport().Format(language.German)
	if !strings.Contains(got, "12.345") {
		t.Errorf("German format does not group with '.':\n%s", got)
	}
}
