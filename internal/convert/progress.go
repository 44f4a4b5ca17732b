package convert

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"audio-batch-converter/internal/model"
)

// LiveProgress is the single-line batch renderer used when one encoder runs
// at a time. A ticker redraws the current job's telemetry in place; batch
// totals trail the line.
type LiveProgress struct {
	names []string

	mu       sync.Mutex
	current  int
	statuses []string
	pcts     []float64
	infos    []string
	overall  float64

	stop chan struct{}
}

func NewLiveProgress(inputs []string) *LiveProgress {
	return &LiveProgress{
		names:    displayNames(inputs),
		current:  -1,
		statuses: make([]string, len(inputs)),
		pcts:     make([]float64, len(inputs)),
		infos:    make([]string, len(inputs)),
		stop:     make(chan struct{}),
	}
}

func (p *LiveProgress) Start() {
	go func() {
		t := time.NewTicker(700 * time.Millisecond)
		defer t.Stop()
		for {
			select {
			case <-p.stop:
				return
			case <-t.C:
				fmt.Printf("\r\033[2K%s", p.render())
			}
		}
	}()
}

func (p *LiveProgress) Stop(final string) {
	close(p.stop)
	fmt.Printf("\r\033[2K%s\n", final)
}

func (p *LiveProgress) SetStatus(index int, status string) {
	p.mu.Lock()
	p.statuses[index] = status
	if status == model.StatusRunning {
		p.current = index
	}
	p.mu.Unlock()
}

func (p *LiveProgress) SetProgress(index int, percent float64) {
	p.mu.Lock()
	p.pcts[index] = percent
	p.mu.Unlock()
}

func (p *LiveProgress) SetInfo(index int, text string) {
	p.mu.Lock()
	p.infos[index] = text
	p.mu.Unlock()
}

func (p *LiveProgress) SetOverall(percent float64) {
	p.mu.Lock()
	p.overall = percent
	p.mu.Unlock()
}

func (p *LiveProgress) render() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	done := 0
	failed := 0
	for _, st := range p.statuses {
		if model.IsTerminalStatus(st) {
			done++
		}
		if st == model.StatusFailed {
			failed++
		}
	}

	parts := []string{}
	if p.current >= 0 {
		cur := fmt.Sprintf("[%d/%d] %s", p.current+1, len(p.names), truncateName(p.names[p.current], 40))
		parts = append(parts, cur, p.statuses[p.current], fmt.Sprintf("%.1f%%", p.pcts[p.current]))
		if p.infos[p.current] != "" {
			parts = append(parts, p.infos[p.current])
		}
	}
	parts = append(parts, fmt.Sprintf("| done %d/%d", done, len(p.names)))
	if failed > 0 {
		parts = append(parts, fmt.Sprintf("failed %d", failed))
	}
	parts = append(parts, fmt.Sprintf("overall %.1f%%", p.overall))
	return strings.Join(parts, "  ")
}

func displayNames(inputs []string) []string {
	names := make([]string, len(inputs))
	for i, input := range inputs {
		names[i] = filepath.Base(input)
	}
	return names
}

func truncateName(name string, max int) string {
	if len(name) > max {
		return name[:max] + "..."
	}
	return name
}
