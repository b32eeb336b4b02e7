package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// osStdout and osPipe are indirections so tests can capture console output.
var (
	osStdout *os.File = os.Stdout
	osPipe            = os.Pipe
)

// LogFilePath builds a session log file path using OS-appropriate path separators.
func LogFilePath(logsDir, appName string, sessionStart time.Time) string {
	return filepath.Join(
		logsDir,
		fmt.Sprintf("%s.%s.log", appName, sessionStart.Format("20060102_150405")),
	)
}
