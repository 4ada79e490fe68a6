// Package message prints operator-facing status lines on stdout. Diagnostics
// go through slog on stderr instead.
package message

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/praetorian-inc/approles/version"
)

var (
	quiet     bool
	noColor   bool
	mutex     sync.RWMutex
	outWriter io.Writer = os.Stdout

	infoColor    = color.New(color.FgCyan)
	successColor = color.New(color.FgGreen)
	warningColor = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
	bannerColor  = color.New(color.FgHiBlue, color.Bold)
	sectionColor = color.New(color.FgHiBlue, color.Bold)
)

const asciiBanner = `
  __ _ _ __  _ __  _ __ ___ | | ___  ___
 / _' | '_ \| '_ \| '__/ _ \| |/ _ \/ __|
| (_| | |_) | |_) | | | (_) | |  __/\__ \
 \__,_| .__/| .__/|_|  \___/|_|\___||___/
      |_|   |_|
`

// SetQuiet suppresses everything except warnings and errors
func SetQuiet(q bool) {
	mutex.Lock()
	defer mutex.Unlock()
	quiet = q
}

// SetNoColor enables/disables colored output
func SetNoColor(nc bool) {
	mutex.Lock()
	defer mutex.Unlock()
	noColor = nc
	color.NoColor = nc
}

// ConfigureColor disables color when forced or when stdout is not a terminal
func ConfigureColor(force bool) {
	fd := os.Stdout.Fd()
	SetNoColor(force || !(isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)))
}

// SetOutput changes the output writer (useful for testing)
func SetOutput(w io.Writer) {
	mutex.Lock()
	defer mutex.Unlock()
	outWriter = w
}

func printf(c *color.Color, prefix, format string, args ...any) {
	mutex.RLock()
	defer mutex.RUnlock()

	msg := fmt.Sprintf(format, args...)
	if noColor {
		fmt.Fprintf(outWriter, "%s%s\n", prefix, msg)
	} else {
		c.Fprintf(outWriter, "%s%s\n", prefix, msg)
	}
}

func isQuiet() bool {
	mutex.RLock()
	defer mutex.RUnlock()
	return quiet
}

// Info prints an informational message unless quiet mode is enabled
func Info(format string, args ...any) {
	if isQuiet() {
		return
	}
	printf(infoColor, "[*] ", format, args...)
}

// Success prints a success message unless quiet mode is enabled
func Success(format string, args ...any) {
	if isQuiet() {
		return
	}
	printf(successColor, "[+] ", format, args...)
}

func Warning(format string, args ...any) {
	printf(warningColor, "[!] ", format, args...)
}

func Error(format string, args ...any) {
	printf(errorColor, "[-] ", format, args...)
}

// Emphasize returns a string with bold formatting
func Emphasize(s string) string {
	mutex.RLock()
	defer mutex.RUnlock()
	if noColor {
		return s
	}
	return color.New(color.Bold).Sprint(s)
}

// Section prints a section header
func Section(format string, args ...any) {
	if isQuiet() {
		return
	}
	printf(sectionColor, "", "\n-=[%s]=-\n", fmt.Sprintf(format, args...))
}

// Banner prints the banner and version
func Banner() {
	if isQuiet() {
		return
	}

	mutex.RLock()
	defer mutex.RUnlock()

	if noColor {
		fmt.Fprint(outWriter, asciiBanner, version.AbbreviatedVersion(), "\n")
	} else {
		bannerColor.Fprint(outWriter, asciiBanner, version.AbbreviatedVersion(), "\n")
	}
}
