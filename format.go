package ggbench

import (
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// String formats the report in English. See Format.
func (r Report) String() string {
	return r.Format(language.English)
}

// Format renders the report as one line per category with numbers grouped
// according to tag. Failed categories show their state instead of a score:
//
//	CPU          12,345  10,000 elements in 810ms
//	Memory        1,000  10,000 elements in 10ms
//	GPU           Error  gpu: draw failed: ...
func (r Report) Format(tag language.Tag) string {
	p := message.NewPrinter(tag)
	var b strings.Builder
	for _, res := range r.Results() {
		b.WriteString(formatResult(p, res))
		b.WriteByte('\n')
	}
	return b.String()
}

// Format renders the result as a single report line. Line breaks in the
// error message are folded into "; ".
func (r Result) Format(tag language.Tag) string {
	return formatResult(message.NewPrinter(tag), r)
}

func formatResult(p *message.Printer, res Result) string {
	var value, detail string
	switch res.Status {
	case StatusOK:
		value = p.Sprintf("%d", res.Score)
		detail = formatDetail(p, res)
	default:
		value = res.Status.String()
		if res.Err != nil {
			detail = oneLine(res.Err.Error())
		}
	}
	return strings.TrimRight(p.Sprintf("%-8s %11s  %s", res.Category, value, detail), " ")
}

func formatDetail(p *message.Printer, res Result) string {
	d := res.Duration.Round(time.Microsecond)
	if res.Category != CategoryGPU {
		return p.Sprintf("%d elements in %v", res.Size, d)
	}
	s := p.Sprintf("%d frames in %v, %.1f fps", res.Size, d, res.FPS)
	if res.Device != "" {
		s += ", " + res.Device
	}
	return s
}

func oneLine(s string) string {
	var parts []string
	for _, l := range strings.Split(s, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			parts = append(parts, l)
		}
	}
	return strings.Join(parts, "; ")
}
