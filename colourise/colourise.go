// Package colourise adds ANSI colour to terminal output.
package colourise

import (
	"fmt"
	"hash/crc32"
)

// colours are the 256-colour ansi codes that read well on a dark terminal
var colours = func() []uint8 {
	var c []uint8
	for i := uint8(21); i <= 231; i++ {
		if i == 145 || i == 159 || (i >= 52 && i <= 62) || (i >= 88 && i <= 91) {
			continue
		}
		c = append(c, i)
	}
	return c
}()

// ApplyColour picks a colour from a hash of the value, so the same trace id or span
// name is always drawn in the same colour across runs. The result ends with the
// reset sequence.
func ApplyColour(value string) string {
	i := crc32.ChecksumIEEE([]byte(value)) % uint32(len(colours)) //nolint:gosec
	return fmt.Sprintf("\033[1;38;5;%dm%s\033[0m", colours[i], value)
}

// ErrorHighlight renders s white on red.
func ErrorHighlight(s string) string {
	return fmt.Sprintf("\033[1;37;41m%s\033[0m", s)
}
