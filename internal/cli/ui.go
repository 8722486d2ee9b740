package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/boothplan/pkg/alloc"
	"github.com/matzehuels/boothplan/pkg/pipeline"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorBlue   = lipgloss.Color("75")  // Light blue - commands
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Styles
// =============================================================================

var (
	StyleTitle   = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	StyleDim     = lipgloss.NewStyle().Foreground(colorDim)
	StyleValue   = lipgloss.NewStyle().Foreground(colorWhite)
	StyleNumber  = lipgloss.NewStyle().Foreground(colorCyan)
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)
)

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleCached   = lipgloss.NewStyle().Foreground(colorGreen)
	styleComputed = lipgloss.NewStyle().Foreground(colorGray)
	styleFull     = lipgloss.NewStyle().Foreground(colorYellow)

	styleCommand     = lipgloss.NewStyle().Foreground(colorBlue)
	styleTableHeader = lipgloss.NewStyle().Foreground(colorGray).Bold(true).Padding(0, 1)
	styleTableCell   = lipgloss.NewStyle().Padding(0, 1)
)

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
	iconCached  = "cached"
	iconFresh   = "fresh"
)

// =============================================================================
// Status Output
// =============================================================================

func printSuccess(format string, args ...any) {
	fmt.Println(styleIconSuccess.Render(iconSuccess) + " " + fmt.Sprintf(format, args...))
}

func printError(format string, args ...any) {
	fmt.Println(styleIconError.Render(iconError) + " " + fmt.Sprintf(format, args...))
}

func printWarning(format string, args ...any) {
	fmt.Println(styleIconWarning.Render(iconWarning) + " " + StyleWarning.Render(fmt.Sprintf(format, args...)))
}

func printInfo(format string, args ...any) {
	fmt.Println(styleIconInfo.Render(iconInfo) + " " + fmt.Sprintf(format, args...))
}

// printDetail prints an indented, dimmed line.
func printDetail(format string, args ...any) {
	fmt.Println("  " + StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile prints a file output line.
func printFile(path string) {
	fmt.Println("  " + StyleDim.Render(iconArrow) + " " + StyleValue.Render(path))
}

// printKeyValue prints a labeled value.
func printKeyValue(key, value string) {
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(12)
	fmt.Println(keyStyle.Render(key) + " " + StyleValue.Render(value))
}

// printNextStep prints a suggested next command.
func printNextStep(description, cmd string) {
	fmt.Println(StyleDim.Render(description+":") + " " + styleCommand.Render(cmd))
}

// =============================================================================
// Run Summary
// =============================================================================

// runStats formats the counters of a run on one line.
func runStats(res *pipeline.Result) string {
	parts := []string{
		fmt.Sprintf("%d projects", res.Stats.Projects),
		fmt.Sprintf("%d placed", res.Stats.Placed),
		fmt.Sprintf("%d skipped", res.Stats.Skipped),
		fmt.Sprintf("%d clusters", res.Stats.Clusters),
	}
	status := styleComputed.Render(iconFresh)
	if res.CacheHit {
		status = styleCached.Render(iconCached)
	}

	line := "  "
	for i, part := range parts {
		if i > 0 {
			line += StyleDim.Render(" · ")
		}
		line += StyleDim.Render(part)
	}
	return line + StyleDim.Render(" · ") + status
}

// printResult prints the summary, the usage table and the skipped projects.
func printResult(res *pipeline.Result) {
	printSuccess("Allocated run %s", StyleValue.Render(res.RunID))
	fmt.Println(runStats(res))
	fmt.Println()
	fmt.Println(usageTable(res.Usage))
	if len(res.Skipped) > 0 {
		fmt.Println()
		printWarning("%d projects did not fit", len(res.Skipped))
		printDetail("%s", strings.Join(res.Skipped, ", "))
	}
}

// usageTable renders claimed and free units per cluster.
func usageTable(usage []pipeline.ClusterUsage) string {
	rows := make([][]string, len(usage))
	for i, u := range usage {
		rows[i] = []string{
			u.Cluster,
			u.MapID,
			strconv.Itoa(u.Placements),
			fmt.Sprintf("%d/%d", u.ClaimedUnits, u.TotalUnits),
			strconv.Itoa(u.FreeUnits()),
		}
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Cluster", "Map", "Booths", "Units", "Free").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleTableHeader
			}
			if col == 4 && row < len(usage) && usage[row].FreeUnits() == 0 {
				return styleTableCell.Inherit(styleFull)
			}
			return styleTableCell
		}).
		Render()
}

// clusterTable renders the grid derived for each cluster.
func clusterTable(clusters []*alloc.Cluster) string {
	rows := make([][]string, len(clusters))
	for i, c := range clusters {
		rows[i] = []string{
			c.Name(),
			c.Map().ID,
			strconv.FormatFloat(c.InitialScore(), 'f', -1, 64),
			fmt.Sprintf("%dx%d", c.Columns(), c.Rows()),
			strconv.Itoa(c.UnitPx()),
			strconv.Itoa(c.TotalUnits()),
		}
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Cluster", "Map", "Score", "Grid", "Unit px", "Units").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleTableHeader
			}
			return styleTableCell
		}).
		Render()
}
