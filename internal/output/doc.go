// Package output provides exit-coded errors and terminal output for the trajectory CLI.
//
// # Printer
//
// Commands write through a Printer, which switches between human-readable
// and JSON output based on the --json flag:
//
//	printer := output.NewPrinter(cmd.OutOrStdout(), isJSONMode(cmd), output.IsTTY(cmd.OutOrStdout()))
//	printer.Markdown(report)          // trajectory reports
//	printer.Success(map[string]any{"message": status})
//
// Markdown output is passed through unchanged when piped. On a terminal,
// headings and revert markers are highlighted with lipgloss.
//
// # Exit Codes
//
//	output.ExitSuccess     // 0
//	output.ExitUserError   // 1: bad path, missing argument
//	output.ExitSystemError // 2: git failed, I/O error
//	output.ExitBusy        // 3: shadow history locked by another writer
package output
