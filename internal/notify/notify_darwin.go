//go:build darwin

package notify

import (
	"fmt"
	"os/exec"
)

// Send sends a macOS notification using osascript
func Send(title, message string) error {
	script := fmt.Sprintf(`display notification "%s" with title "%s" sound name "Glass"`, escape(message), escape(title))
	cmd := exec.Command("osascript", "-e", script)
	return cmd.Run()
}
