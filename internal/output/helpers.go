package output

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/tanq16/mediafetch/internal/utils"
	"golang.org/x/term"
)

// ProgressBar renders a fixed-width bar; an unknown total renders the
// byte count alone.
func ProgressBar(entry utils.ProgressEntry, width int) string {
	if width <= 0 {
		width = 30
	}
	elapsed := time.Since(entry.StartTime).Seconds()
	speed := utils.FormatSpeed(entry.Downloaded, elapsed)
	if !entry.TotalKnown || entry.Total <= 0 {
		return debugStyle.Render(fmt.Sprintf("%s %s %s %s", StyleSymbols["bullet"], utils.FormatBytes(uint64(entry.Downloaded)), StyleSymbols["bullet"], speed))
	}
	current := min(max(entry.Downloaded, 0), entry.Total)
	percent := float64(current) / float64(entry.Total)
	filled := max(0, min(int(percent*float64(width)), width))
	bar := StyleSymbols["bullet"] + strings.Repeat(StyleSymbols["hline"], filled) + strings.Repeat(" ", width-filled) + StyleSymbols["bullet"]
	return debugStyle.Render(fmt.Sprintf("%s %.1f%% %s %s / %s %s %s",
		bar, percent*100, StyleSymbols["bullet"],
		utils.FormatBytes(uint64(current)), utils.FormatBytes(uint64(entry.Total)),
		StyleSymbols["bullet"], speed))
}

func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func getTerminalSize() (int, int) {
	width, height, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 || height <= 0 {
		return 80, 24
	}
	return width, height
}
