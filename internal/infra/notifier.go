package infra

import (
	"fmt"

	"github.com/godbus/dbus/v5"

	"github.com/eliteGoblin/focusd/screen_time/internal/domain"
)

const (
	notificationsService   = "org.freedesktop.Notifications"
	notificationsPath      = "/org/freedesktop/Notifications"
	notificationsInterface = "org.freedesktop.Notifications"
	notificationTimeoutMs  = 10000
)

// DBusNotifier implements domain.Notifier with freedesktop desktop notifications
// on the current user's session bus.
type DBusNotifier struct {
	appName string
	connect func() (*dbus.Conn, error)
}

// NewDBusNotifier creates a notifier that connects to the session bus per notification.
func NewDBusNotifier() *DBusNotifier {
	return &DBusNotifier{
		appName: "screentime",
		connect: func() (*dbus.Conn, error) { return dbus.ConnectSessionBus() },
	}
}

// Notify shows a desktop notification.
func (n *DBusNotifier) Notify(summary, body string) error {
	conn, err := n.connect()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	defer conn.Close()

	obj := conn.Object(notificationsService, dbus.ObjectPath(notificationsPath))
	call := obj.Call(notificationsInterface+".Notify", 0,
		n.appName,        // app_name
		uint32(0),        // replaces_id
		"dialog-warning", // app_icon
		summary,          // summary
		body,             // body
		[]string{},       // actions
		map[string]dbus.Variant{
			"urgency": dbus.MakeVariant(byte(1)), // normal urgency
		},
		int32(notificationTimeoutMs),
	)
	if call.Err != nil {
		return fmt.Errorf("failed to send notification: %w", call.Err)
	}
	return nil
}

// NopNotifier discards notifications.
type NopNotifier struct{}

func (NopNotifier) Notify(summary, body string) error { return nil }

// Ensure notifiers implement domain.Notifier.
var _ domain.Notifier = (*DBusNotifier)(nil)
var _ domain.Notifier = NopNotifier{}
