package ui

import (
	"fmt"
	"os/exec"
	"runtime"
)

// NotificationSender delivers one desktop notification
type NotificationSender interface {
	Send(title, message string) error
}

// commandSender runs a platform notification tool
type commandSender struct {
	build func(title, message string) *exec.Cmd
}

func (s commandSender) Send(title, message string) error {
	return s.build(title, message).Run()
}

const windowsToast = `[Windows.UI.Notifications.ToastNotificationManager, Windows.UI.Notifications, ContentType = WindowsRuntime] | Out-Null
$xml = [Windows.UI.Notifications.ToastNotificationManager]::GetTemplateContent([Windows.UI.Notifications.ToastTemplateType]::ToastText02)
$text = $xml.GetElementsByTagName("text")
$text.Item(0).AppendChild($xml.CreateTextNode(%q)) | Out-Null
$text.Item(1).AppendChild($xml.CreateTextNode(%q)) | Out-Null
[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier("flickrpicker").Show([Windows.UI.Notifications.ToastNotification]::new($xml))`

// notifyCommand returns the command that shows a notification on goos, or
// nil when the platform has no supported tool.
func notifyCommand(goos, title, message string) *exec.Cmd {
	switch goos {
	case "linux", "freebsd", "openbsd":
		return exec.Command("notify-send", "--app-name=flickrpicker", title, message)
	case "darwin":
		script := fmt.Sprintf("display notification %q with title %q", message, title)
		return exec.Command("osascript", "-e", script)
	case "windows":
		script := fmt.Sprintf(windowsToast, title, message)
		return exec.Command("powershell", "-NoProfile", "-NonInteractive", "-Command", script)
	}
	return nil
}

// Notifier sends a desktop notification when a long run finishes
type Notifier struct {
	sender NotificationSender
}

// NewNotifier picks the sender for the current platform
func NewNotifier() *Notifier {
	if notifyCommand(runtime.GOOS, "", "") == nil {
		return &Notifier{}
	}
	goos := runtime.GOOS
	return &Notifier{sender: commandSender{build: func(title, message string) *exec.Cmd {
		return notifyCommand(goos, title, message)
	}}}
}

// NewNotifierWithSender uses a specific sender, mostly for tests
func NewNotifierWithSender(sender NotificationSender) *Notifier {
	return &Notifier{sender: sender}
}

// Notify sends title and message. Platforms without a sender are a no-op.
func (n *Notifier) Notify(title, message string) error {
	if n == nil || n.sender == nil {
		return nil
	}
	return n.sender.Send(title, message)
}
