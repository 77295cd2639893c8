package table

import (
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/bacalhau-project/remotectl/pkg/sshutils"
	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"
)

const (
	HostWidth   = 30
	OutputWidth = 60
	ErrorWidth  = 40

	okColor     = "2"
	failedColor = "9"
)

// ResultTable renders one row per remote for a fanned-out command.
type ResultTable struct {
	table  *tablewriter.Table
	rows   int
	ok     lipgloss.Style
	failed lipgloss.Style
}

func NewResultTable(w io.Writer) *ResultTable {
	if w == nil {
		w = os.Stdout
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Host", "Exit", "Stdout", "Stderr"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	table.SetNoWhiteSpace(true)

	// Colour follows w, so piping to a file or buffer stays plain text.
	renderer := lipgloss.NewRenderer(w)
	return &ResultTable{
		table:  table,
		ok:     renderer.NewStyle().Foreground(lipgloss.Color(okColor)),
		failed: renderer.NewStyle().Foreground(lipgloss.Color(failedColor)).Bold(true),
	}
}

// AddResult appends the outcome for host. When err is set it replaces the
// stderr column and the exit column shows "-". The exit column is green for
// 0 and red otherwise.
func (rt *ResultTable) AddResult(host string, result *sshutils.CommandResult, err error) {
	exit := "-"
	stdout, stderr := "", ""
	if result != nil {
		exit = strconv.Itoa(result.ExitCode)
		stdout = firstLine(result.StdoutStr())
		stderr = firstLine(result.StderrStr())
	}
	if err != nil {
		stderr = truncate(firstLine(err.Error()), ErrorWidth)
	}

	style := rt.failed
	if err == nil && result != nil && result.ExitCode == 0 {
		style = rt.ok
	}

	rt.table.Append([]string{
		truncate(host, HostWidth),
		style.Render(exit),
		truncate(stdout, OutputWidth),
		truncate(stderr, OutputWidth),
	})
	rt.rows++
}

func (rt *ResultTable) Rows() int {
	return rt.rows
}

func (rt *ResultTable) Render() {
	rt.table.Render()
}

func firstLine(s string) string {
	line, rest, found := strings.Cut(s, "\n")
	if found && strings.TrimSpace(rest) != "" {
		return line + " ..."
	}
	return line
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
