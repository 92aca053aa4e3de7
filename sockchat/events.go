package sockchat

const (
	eventRegister          = "register"
	eventPrivateMessage    = "privateMessage"
	eventGroupMessage      = "groupMessage"
	eventGroupNotification = "groupNotification"
	eventJoinGroup         = "joinGroup"
	eventLeaveGroup        = "leaveGroup"
	eventGetUsers          = "getUsers"
	eventGetGroups         = "getGroups"
)

// PrivateMessageEvent is pushed when a peer sends a direct message.
type PrivateMessageEvent struct {
	From      string `json:"from"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// GroupMessageEvent is pushed when a member posts to a joined group.
type GroupMessageEvent struct {
	From      string `json:"from"`
	Group     string `json:"group"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// GroupNotificationEvent is pushed for membership announcements in a
// joined group (joins, leaves).
type GroupNotificationEvent struct {
	Group     string `json:"group"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}
