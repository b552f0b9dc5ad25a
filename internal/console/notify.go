package console

import (
	"fmt"
	"io"
	"os/exec"
)

// Bell is the terminal bell character.
const Bell = "\a"

// Notifier tells the user a watch has finished. It rings the terminal
// bell and, when native notifications are enabled, also posts an
// OS-native notification.
type Notifier struct {
	out    io.Writer
	native bool
}

// NewNotifier creates a Notifier that writes the bell to out.
func NewNotifier(out io.Writer, native bool) *Notifier {
	return &Notifier{out: out, native: native}
}

// Notify rings the bell and posts a native notification if enabled.
// Native notifications are only supported on macOS; elsewhere only the
// bell rings.
func (n *Notifier) Notify(title, message string) error {
	fmt.Fprint(n.out, Bell)
	if !n.native || getRuntime() != "darwin" {
		return nil
	}
	return notifyMacOS(title, message)
}

var notifyMacOS = func(title, message string) error {
	script := fmt.Sprintf(`display notification %q with title %q`, message, title)
	return exec.Command("osascript", "-e", script).Run()
}
