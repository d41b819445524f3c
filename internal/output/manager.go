package output

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/tanq16/mediafetch/internal/utils"
)

type FunctionOutput struct {
	ID            int
	Name          string
	Status        string
	Message       string
	ProgressLabel string
	Complete      bool
	StartTime     time.Time
	LastUpdated   time.Time
	Error         error
}

type ErrorReport struct {
	FunctionName string
	Error        error
	Time         time.Time
}

// Manager draws one line per registered function, plus a progress bar read
// from the shared ProgressRegistry. When stdout is not a terminal nothing is
// redrawn; only the final summary is printed.
type Manager struct {
	outputs       map[int]*FunctionOutput
	mutex         sync.RWMutex
	progress      *utils.ProgressRegistry
	out           io.Writer
	interactive   bool
	numLines      int
	errors        []ErrorReport
	doneCh        chan struct{}
	displayTick   time.Duration
	functionCount int
	displayWg     sync.WaitGroup
	stopOnce      sync.Once
}

func NewManager(progress *utils.ProgressRegistry) *Manager {
	return &Manager{
		outputs:     make(map[int]*FunctionOutput),
		progress:    progress,
		out:         os.Stdout,
		interactive: IsTerminal(),
		doneCh:      make(chan struct{}),
		displayTick: 300 * time.Millisecond,
	}
}

// NewPlainManager writes to w without redrawing.
func NewPlainManager(progress *utils.ProgressRegistry, w io.Writer) *Manager {
	m := NewManager(progress)
	m.out = w
	m.interactive = false
	return m
}

func (m *Manager) RegisterFunction(name string) int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.functionCount++
	m.outputs[m.functionCount] = &FunctionOutput{
		ID:          m.functionCount,
		Name:        name,
		Status:      StatusPending,
		StartTime:   time.Now(),
		LastUpdated: time.Now(),
	}
	return m.functionCount
}

func (m *Manager) update(id int, fn func(*FunctionOutput)) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if info, exists := m.outputs[id]; exists {
		fn(info)
		info.LastUpdated = time.Now()
	}
}

func (m *Manager) SetMessage(id int, message string) {
	m.update(id, func(info *FunctionOutput) { info.Message = message })
}

func (m *Manager) SetStatus(id int, status string) {
	m.update(id, func(info *FunctionOutput) { info.Status = status })
}

// BindProgress makes the function's line show the registry entry for label.
func (m *Manager) BindProgress(id int, label string) {
	m.update(id, func(info *FunctionOutput) { info.ProgressLabel = label })
}

func (m *Manager) Complete(id int, message string) {
	m.update(id, func(info *FunctionOutput) {
		if message == "" {
			message = fmt.Sprintf("Completed %s", info.Name)
		}
		info.Message = message
		info.Complete = true
		info.Status = StatusSuccess
		m.printPlain(info)
	})
}

// printPlain writes a finished function's line once when there is no
// redrawing display to show it.
func (m *Manager) printPlain(info *FunctionOutput) {
	if m.interactive {
		return
	}
	message := info.Message
	if info.Error != nil {
		message = fmt.Sprintf("%s: %v", info.Name, info.Error)
	}
	fmt.Fprintf(m.out, "%s%s %s\n", strings.Repeat(" ", 2), m.GetStatusIndicator(info.Status), styleMessage(info.Status, message))
}

func (m *Manager) ReportError(id int, err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if info, exists := m.outputs[id]; exists {
		info.Complete = true
		info.Status = StatusError
		info.Error = err
		info.LastUpdated = time.Now()
		m.errors = append(m.errors, ErrorReport{FunctionName: info.Name, Error: err, Time: time.Now()})
		m.printPlain(info)
	}
}

func (m *Manager) GetStatusIndicator(status string) string {
	switch status {
	case StatusSuccess:
		return successStyle.Render(StyleSymbols["pass"])
	case StatusError:
		return errorStyle.Render(StyleSymbols["fail"])
	case StatusWarning:
		return warningStyle.Render(StyleSymbols["warning"])
	case StatusPending:
		return pendingStyle.Render(StyleSymbols["pending"])
	default:
		return infoStyle.Render(StyleSymbols["bullet"])
	}
}

func styleMessage(status, message string) string {
	switch status {
	case StatusSuccess:
		return successStyle.Render(message)
	case StatusError:
		return errorStyle.Render(message)
	case StatusWarning:
		return warningStyle.Render(message)
	default:
		return pendingStyle.Render(message)
	}
}

func (m *Manager) sortedFunctions() []*FunctionOutput {
	all := make([]*FunctionOutput, 0, len(m.outputs))
	for _, info := range m.outputs {
		all = append(all, info)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all
}

// render returns the display lines, active functions first, then pending,
// then the most recent completed ones that still fit.
func (m *Manager) render(availableLines int) []string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var active, pending, completed []*FunctionOutput
	for _, f := range m.sortedFunctions() {
		switch {
		case f.Complete:
			completed = append(completed, f)
		case f.Status == StatusPending && f.Message == "":
			pending = append(pending, f)
		default:
			active = append(active, f)
		}
	}

	var lines []string
	indent := strings.Repeat(" ", 2)
	barIndent := strings.Repeat(" ", 2+4)
	for _, f := range active {
		elapsed := time.Since(f.StartTime).Round(time.Second)
		lines = append(lines, fmt.Sprintf("%s%s %s %s", indent, m.GetStatusIndicator(f.Status), debugStyle.Render(elapsed.String()), styleMessage(f.Status, f.Message)))
		if f.ProgressLabel != "" {
			if entry, ok := m.progress.Get(f.ProgressLabel); ok {
				lines = append(lines, barIndent+ProgressBar(entry, 30))
			}
		}
	}
	for _, f := range pending {
		lines = append(lines, fmt.Sprintf("%s%s %s", indent, m.GetStatusIndicator(f.Status), pendingStyle.Render("Waiting...")))
	}

	room := max(availableLines-len(lines), 0)
	if len(completed) > room {
		hidden := len(completed) - room
		completed = completed[hidden:]
		if room > 0 {
			completed = completed[1:]
			lines = append(lines, infoStyle.Render(fmt.Sprintf("%s%d finished downloads hidden ...", indent, hidden+1)))
		}
	}
	for _, f := range completed {
		total := f.LastUpdated.Sub(f.StartTime).Round(time.Second)
		lines = append(lines, fmt.Sprintf("%s%s %s %s", indent, m.GetStatusIndicator(f.Status), debugStyle.Render(total.String()), styleMessage(f.Status, f.Message)))
	}
	if len(lines) > availableLines {
		lines = lines[:availableLines]
	}
	return lines
}

func (m *Manager) updateDisplay() {
	_, termHeight := getTerminalSize()
	lines := m.render(termHeight - 3)
	if m.numLines > 0 {
		fmt.Fprintf(m.out, "\033[%dA\033[J", m.numLines)
	}
	for _, line := range lines {
		fmt.Fprintln(m.out, line)
	}
	m.numLines = len(lines)
}

func (m *Manager) StartDisplay() {
	m.displayWg.Add(1)
	go func() {
		defer m.displayWg.Done()
		ticker := time.NewTicker(m.displayTick)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if m.interactive {
					m.updateDisplay()
				}
			case <-m.doneCh:
				if m.interactive {
					m.updateDisplay()
				}
				m.ShowSummary()
				return
			}
		}
	}()
}

func (m *Manager) StopDisplay() {
	m.stopOnce.Do(func() { close(m.doneCh) })
	m.displayWg.Wait()
}

// ShowSummary prints totals, downloaded bytes and every reported error.
func (m *Manager) ShowSummary() {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	var success, failures int
	for _, info := range m.outputs {
		switch info.Status {
		case StatusSuccess:
			success++
		case StatusError:
			failures++
		}
	}
	var downloaded int64
	for _, entry := range m.progress.Snapshot() {
		downloaded += entry.Downloaded
	}

	indent := strings.Repeat(" ", 2)
	fmt.Fprintln(m.out)
	fmt.Fprintln(m.out, indent+success2Style.Render(fmt.Sprintf("Completed %d of %d (%s downloaded)", success, len(m.outputs), humanize.IBytes(uint64(downloaded)))))
	if failures > 0 {
		fmt.Fprintln(m.out, indent+errorStyle.Render(fmt.Sprintf("Failed %d of %d", failures, len(m.outputs))))
	}
	if len(m.errors) > 0 {
		fmt.Fprintln(m.out)
		fmt.Fprintln(m.out, indent+errorStyle.Bold(true).Render("Errors:"))
		for i, report := range m.errors {
			fmt.Fprintf(m.out, "%s%s %s %s\n",
				strings.Repeat(" ", 2+2),
				errorStyle.Render(fmt.Sprintf("%d.", i+1)),
				debugStyle.Render(fmt.Sprintf("[%s]", report.Time.Format("15:04:05"))),
				errorStyle.Render(report.FunctionName))
			fmt.Fprintf(m.out, "%s%s\n", strings.Repeat(" ", 2+4), errorStyle.Render(fmt.Sprintf("Error: %v", report.Error)))
		}
	}
	fmt.Fprintln(m.out)
}
