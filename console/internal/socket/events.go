package socket

// Channel event names. They are part of the wire contract and must match the server.
const (
	EventSubscribeTracker  = "subscribeTracker"
	EventLiveLocation      = "liveLocation"
	EventRemoteCommand     = "remote-capture-command"
	EventCommandSent       = "command-sent"
	EventCommandError      = "command-error"
	EventCommandStatus     = "command-status-update"
	EventMediaNotification = "media-notification"
	EventAlertNotification = "alertNotification"
)

// Lifecycle events synthesized by the connection manager, never sent on the wire.
const (
	EventConnect      = "connect"
	EventDisconnect   = "disconnect"
	EventConnectError = "connect_error"
	EventError        = "error"
)
