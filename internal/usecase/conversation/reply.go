package conversation

import (
	"github.com/kailas-cloud/limitwatch/internal/domain/project"
	domquota "github.com/kailas-cloud/limitwatch/internal/domain/quota"
)

// Menu is the persistent keyboard attached to a message.
type Menu string

// Menus.
const (
	// MenuKeep leaves the current keyboard in place.
	MenuKeep   Menu = ""
	MenuAdmin  Menu = "admin"
	MenuClient Menu = "client"
	MenuCancel Menu = "cancel"
	// MenuRemove hides the keyboard.
	MenuRemove Menu = "remove"
)

// ProjectChoice is one entry of the project picker.
type ProjectChoice struct {
	ID   string
	Name string
}

// QuickPickValues are the preset values offered while awaiting a limit.
var QuickPickValues = []int64{50, 100, 150}

// Message is an outgoing chat message.
type Message struct {
	Text string
	Menu Menu
	// Picker, when set, renders inline project buttons.
	Picker []ProjectChoice
	// QuickPick, when set, renders inline preset buttons for the mode.
	QuickPick domquota.Mode
}

// Response is the transport-agnostic result of handling one event.
type Response struct {
	Messages []Message
	// EditSource replaces the text of the message that carried the inline control.
	EditSource string
	// DeleteSource removes the message that carried the inline control.
	DeleteSource bool
	// Notice is the callback answer text, shown as an alert when Alert is set.
	Notice string
	Alert  bool
}

// Empty reports whether nothing should be sent.
func (r Response) Empty() bool {
	return len(r.Messages) == 0 && r.EditSource == "" && !r.DeleteSource && r.Notice == ""
}

func say(text string, menu Menu) Response {
	return Response{Messages: []Message{{Text: text, Menu: menu}}}
}

func menuFor(role project.Role) Menu {
	if role == project.RoleAdmin {
		return MenuAdmin
	}
	return MenuClient
}
