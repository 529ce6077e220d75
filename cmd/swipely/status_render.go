package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/mattn/go-isatty"

	"swipely/internal/api"
	"swipely/internal/daemonctl"
	"swipely/internal/store"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 20
	statusIndent     = "  "
)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := fmt.Sprintf("[%s]", statusKindLabel(kind))
	if message != "" {
		statusText += " " + message
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + base + ansiReset
		}
	}
	return base
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiBlue
	default:
		return ""
	}
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if colorize {
		line = ansiBlue + line + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	return []string{line, rule}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func writeSection(out io.Writer, title string, colorize bool, lines []string) {
	for _, line := range renderSectionHeader(title, colorize) {
		fmt.Fprintln(out, line)
	}
	for _, line := range lines {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out)
}

func renderSnapshot(out io.Writer, snap *daemonctl.Snapshot, colorize bool) {
	status := snap.Status

	var system []string
	daemonKind, daemonDetail := statusWarn, "not running"
	if status.Running {
		daemonKind, daemonDetail = statusOK, fmt.Sprintf("running (pid %d)", status.PID)
	}
	system = append(system, renderStatusLine("Daemon", daemonKind, daemonDetail, colorize))
	if snap.Live {
		botKind, botDetail := statusInfo, "disabled"
		if status.BotRunning {
			botKind, botDetail = statusOK, "polling"
		}
		system = append(system, renderStatusLine("Telegram bot", botKind, botDetail, colorize))
		wfKind := statusWarn
		if status.Workflow.Running {
			wfKind = statusOK
		}
		system = append(system, renderStatusLine("Workflow", wfKind, "running: "+yesNo(status.Workflow.Running), colorize))
		if status.Workflow.LastError != "" {
			system = append(system, renderStatusLine("Last error", statusError, status.Workflow.LastError, colorize))
		}
	}
	system = append(system, renderStatusLine("Database", statusInfo, status.DatabasePath, colorize))
	writeSection(out, "System Status", colorize, system)

	var checks []string
	for _, check := range snap.Checks {
		kind := statusOK
		if !check.Passed {
			kind = statusError
		}
		checks = append(checks, renderStatusLine(check.Name, kind, check.Detail, colorize))
	}
	for _, stage := range status.Workflow.StageHealth {
		kind := statusOK
		if !stage.Ready {
			kind = statusWarn
		}
		checks = append(checks, renderStatusLine("Stage "+stage.Name, kind, stage.Detail, colorize))
	}
	writeSection(out, "Checks", colorize, checks)

	writeSection(out, "Dependencies", colorize, dependencyLines(status.Dependencies, colorize))

	for _, line := range renderSectionHeader("Jobs", colorize) {
		fmt.Fprintln(out, line)
	}
	rows := buildJobStatusRows(status.Workflow.JobStats)
	if len(rows) == 0 {
		fmt.Fprintln(out, "No jobs")
		return
	}
	fmt.Fprint(out, renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
}

func dependencyLines(deps []api.DependencyStatus, colorize bool) []string {
	lines := make([]string, 0, len(deps))
	for _, dep := range deps {
		if dep.Available {
			message := "Ready"
			if dep.Command != "" {
				message = fmt.Sprintf("Ready (command: %s)", dep.Command)
			}
			lines = append(lines, renderStatusLine(dep.Name, statusOK, message, colorize))
			continue
		}
		kind := statusError
		if dep.Optional {
			kind = statusWarn
		}
		detail := dep.Detail
		if detail == "" {
			detail = "not available"
		}
		lines = append(lines, renderStatusLine(dep.Name, kind, detail, colorize))
	}
	return lines
}

// buildJobStatusRows orders statuses along the pipeline and drops zeros.
func buildJobStatusRows(stats map[string]int) [][]string {
	order := make(map[string]int)
	for i, status := range store.AllStatuses() {
		order[string(status)] = i
	}
	keys := make([]string, 0, len(stats))
	for key, count := range stats {
		if count > 0 {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		oi, iok := order[keys[i]]
		oj, jok := order[keys[j]]
		if iok && jok {
			return oi < oj
		}
		if iok != jok {
			return iok
		}
		return keys[i] < keys[j]
	})
	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, []string{key, fmt.Sprintf("%d", stats[key])})
	}
	return rows
}
