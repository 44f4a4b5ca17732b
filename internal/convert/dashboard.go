package convert

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"audio-batch-converter/internal/model"
)

// Dashboard is the full-screen renderer for concurrent batches: one row per
// active encoder, a totals header, and a short feed of recently finished
// jobs.
type Dashboard struct {
	names    []string
	workersN int

	mu       sync.Mutex
	statuses []string
	pcts     []float64
	infos    []string
	overall  float64
	events   []string

	stop chan struct{}
}

func NewDashboard(inputs []string, workers int) *Dashboard {
	return &Dashboard{
		names:    displayNames(inputs),
		workersN: workers,
		statuses: make([]string, len(inputs)),
		pcts:     make([]float64, len(inputs)),
		infos:    make([]string, len(inputs)),
		events:   make([]string, 0, 8),
		stop:     make(chan struct{}),
	}
}

func (d *Dashboard) Start() {
	go func() {
		t := time.NewTicker(700 * time.Millisecond)
		defer t.Stop()
		for {
			select {
			case <-d.stop:
				return
			case <-t.C:
				d.render()
			}
		}
	}()
}

func (d *Dashboard) Stop(final string) {
	close(d.stop)
	d.render()
	if strings.TrimSpace(final) != "" {
		fmt.Println(final)
	}
}

func (d *Dashboard) SetStatus(index int, status string) {
	d.mu.Lock()
	d.statuses[index] = status
	if model.IsTerminalStatus(status) {
		event := fmt.Sprintf("%-9s %s", status, d.names[index])
		d.events = append([]string{event}, d.events...)
		if len(d.events) > 8 {
			d.events = d.events[:8]
		}
	}
	d.mu.Unlock()
}

func (d *Dashboard) SetProgress(index int, percent float64) {
	d.mu.Lock()
	d.pcts[index] = percent
	d.mu.Unlock()
}

func (d *Dashboard) SetInfo(index int, text string) {
	d.mu.Lock()
	d.infos[index] = text
	d.mu.Unlock()
}

func (d *Dashboard) SetOverall(percent float64) {
	d.mu.Lock()
	d.overall = percent
	d.mu.Unlock()
}

func (d *Dashboard) render() {
	d.mu.Lock()
	defer d.mu.Unlock()

	actives := make([]int, 0, d.workersN)
	done := 0
	failed := 0
	skipped := 0
	for i, st := range d.statuses {
		if st == model.StatusRunning {
			actives = append(actives, i)
		}
		if model.IsTerminalStatus(st) {
			done++
		}
		switch st {
		case model.StatusFailed:
			failed++
		case model.StatusSkipped:
			skipped++
		}
	}
	sort.Ints(actives)

	var b strings.Builder
	b.WriteString("\033[H\033[2J")
	b.WriteString(fmt.Sprintf("audio-batch-converter live | active %d/%d | done %d/%d | failed %d | skipped %d | overall %.1f%%\n",
		len(actives), d.workersN, done, len(d.names), failed, skipped, d.overall))
	b.WriteString(strings.Repeat("-", 120) + "\n")

	if len(actives) == 0 {
		b.WriteString("(no active jobs)\n")
	} else {
		for _, i := range actives {
			row := fmt.Sprintf("[%d/%d] %s  %.1f%%", i+1, len(d.names), truncateName(d.names[i], 52), d.pcts[i])
			if d.infos[i] != "" {
				row += "  " + d.infos[i]
			}
			b.WriteString(row + "\n")
		}
	}

	if len(d.events) > 0 {
		b.WriteString(strings.Repeat("-", 120) + "\n")
		for _, e := range d.events {
			b.WriteString(e + "\n")
		}
	}

	fmt.Print(b.String())
}
