package runner

import (
	"fmt"
	"strconv"
	"strings"
)

// parsePorts finds --port and --probe-port in the launch parameters, in either the
// "--port 8000" or "--port=8000" form. The parameters are still passed to the process.
func parsePorts(params []string, port, probePort int) (int, int, error) {
	for i := 0; i < len(params); i++ {
		name, value, hasValue := strings.Cut(params[i], "=")
		var dst *int
		switch name {
		case "--port":
			dst = &port
		case "--probe-port":
			dst = &probePort
		default:
			continue
		}

		if !hasValue {
			if i+1 >= len(params) {
				return 0, 0, fmt.Errorf("%w: %s needs a value", ErrInvalidParameter, name)
			}
			i++
			value = params[i]
		}

		n, err := strconv.Atoi(value)
		if err != nil || n < 1 || n > 65535 {
			return 0, 0, fmt.Errorf("%w: %s %q is not a port", ErrInvalidParameter, name, value)
		}
		*dst = n
	}
	return port, probePort, nil
}
