package ui

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/pterm/pterm"
)

var (
	successStyle = color.New(color.FgGreen, color.Bold)
	errorStyle   = color.New(color.FgRed, color.Bold)
	warningStyle = color.New(color.FgYellow, color.Bold)
	infoStyle    = color.New(color.FgCyan)
	labelStyle   = color.New(color.FgWhite, color.Bold)
)

// PrintSuccess prints a success message
func PrintSuccess(format string, args ...interface{}) {
	successStyle.Println("✓ " + fmt.Sprintf(format, args...))
}

// PrintError prints an error message
func PrintError(format string, args ...interface{}) {
	errorStyle.Fprintln(os.Stderr, "✗ "+fmt.Sprintf(format, args...))
}

// PrintWarning prints a warning message
func PrintWarning(format string, args ...interface{}) {
	warningStyle.Println("⚠ " + fmt.Sprintf(format, args...))
}

// PrintInfo prints an info message
func PrintInfo(format string, args ...interface{}) {
	infoStyle.Println("ℹ " + fmt.Sprintf(format, args...))
}

// PrintLabeled prints a bold label followed by a value
func PrintLabeled(label string, value string) {
	labelStyle.Print(label + ": ")
	fmt.Println(value)
}

// PrintTable prints a table using pterm
func PrintTable(headers []string, rows [][]string) {
	tableData := pterm.TableData{headers}
	tableData = append(tableData, rows...)
	pterm.DefaultTable.WithHasHeader().WithData(tableData).Render()
}
