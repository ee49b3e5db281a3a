package media

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

var versionCommandContext = exec.CommandContext

// probeTimeout bounds how long a capability check may hold up queue startup.
const probeTimeout = 5 * time.Second

// Capability reports the availability of an external binary.
type Capability struct {
	Command   string
	Available bool
	Version   string
	Detail    string
}

// ProbeTool verifies the binary is present and runnable by invoking its
// version flag. Unavailability is reported, never returned as an error, so
// queue construction can proceed and surface the problem at start time.
func ProbeTool(ctx context.Context, binary string) Capability {
	cap := Capability{Command: strings.TrimSpace(binary)}
	if cap.Command == "" {
		cap.Detail = "command not configured"
		return cap
	}

	if _, err := exec.LookPath(cap.Command); err != nil {
		cap.Detail = fmt.Sprintf("binary %q not found", cap.Command)
		return cap
	}

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	cmd := versionCommandContext(probeCtx, cap.Command, "-version")
	output, err := cmd.Output()
	if err != nil {
		cap.Detail = fmt.Sprintf("version probe failed: %v", err)
		return cap
	}

	cap.Available = true
	cap.Version = parseVersionLine(string(output))
	return cap
}

// parseVersionLine extracts the version token from ffmpeg/ffprobe banner
// output ("ffmpeg version 7.1 Copyright ..." yields "7.1").
func parseVersionLine(output string) string {
	line, _, _ := strings.Cut(output, "\n")
	line = strings.TrimSpace(line)
	fields := strings.Fields(line)
	for i, field := range fields {
		if field == "version" && i+1 < len(fields) {
			return fields[i+1]
		}
	}
	return line
}
