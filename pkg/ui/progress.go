package ui

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

// Progress draws a single-line counter that is redrawn on every Advance
type Progress struct {
	mu        sync.Mutex
	w         io.Writer
	label     string
	total     int
	done      int
	counts    map[string]int
	startTime time.Time
	enabled   bool
}

// NewProgress creates a progress line for total steps. A disabled Progress
// only counts.
func NewProgress(w io.Writer, label string, total int, enabled bool) *Progress {
	return &Progress{
		w:         w,
		label:     label,
		total:     total,
		counts:    make(map[string]int),
		startTime: time.Now(),
		enabled:   enabled,
	}
}

// Advance records one finished step with the given status
func (p *Progress) Advance(status string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done++
	p.counts[status]++
	if p.enabled {
		fmt.Fprintf(p.w, "\r%s\r%s", strings.Repeat(" ", 100), p.line())
	}
}

// Count returns how many steps finished with status
func (p *Progress) Count(status string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.counts[status]
}

// Done returns the number of finished steps
func (p *Progress) Done() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// Complete ends the progress line
func (p *Progress) Complete() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.enabled && p.done > 0 {
		fmt.Fprintln(p.w)
	}
}

func (p *Progress) line() string {
	const barWidth = 20
	filled := 0
	if p.total > 0 {
		filled = p.done * barWidth / p.total
		if filled > barWidth {
			filled = barWidth
		}
	}
	bar := barFilledStyle.Render(strings.Repeat("━", filled)) +
		barEmptyStyle.Render(strings.Repeat("─", barWidth-filled))

	statuses := make([]string, 0, len(p.counts))
	for s := range p.counts {
		statuses = append(statuses, s)
	}
	sort.Strings(statuses)
	parts := make([]string, 0, len(statuses))
	for _, s := range statuses {
		parts = append(parts, fmt.Sprintf("%s %d", s, p.counts[s]))
	}

	return fmt.Sprintf("%s [%s] %d/%d • %s • %s",
		Label(p.label),
		bar,
		p.done,
		p.total,
		Dim(strings.Join(parts, ", ")),
		FormatDuration(time.Since(p.startTime)),
	)
}

// FormatDuration formats a duration in a human-readable way
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}

// FormatBytes formats bytes in a human-readable way
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
