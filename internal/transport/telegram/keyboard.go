package telegram

import (
	"fmt"
	"strconv"
	"strings"

	domquota "github.com/kailas-cloud/limitwatch/internal/domain/quota"
	"github.com/kailas-cloud/limitwatch/internal/usecase/conversation"
)

// Menu button labels.
const (
	LabelStatus        = "📊 Status"
	LabelSetLimit      = "⚙️ Set limit"
	LabelAddLimit      = "➕ Add to limit"
	LabelHelp          = "ℹ️ Help"
	LabelChangeProject = "↩️ Change project"
	LabelCancel        = "❌ Cancel"
)

const (
	selectPrefix = "select_bot:"
	limitSuffix  = "_limit:"
)

type keyboardButton struct {
	Text string `json:"text"`
}

type replyKeyboardMarkup struct {
	Keyboard       [][]keyboardButton `json:"keyboard"`
	ResizeKeyboard bool               `json:"resize_keyboard"`
}

type replyKeyboardRemove struct {
	RemoveKeyboard bool `json:"remove_keyboard"`
}

type inlineKeyboardButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

type inlineKeyboardMarkup struct {
	InlineKeyboard [][]inlineKeyboardButton `json:"inline_keyboard"`
}

func buttons(labels ...string) []keyboardButton {
	row := make([]keyboardButton, 0, len(labels))
	for _, l := range labels {
		row = append(row, keyboardButton{Text: l})
	}
	return row
}

// replyMarkup renders a persistent menu. MenuKeep returns nil.
func replyMarkup(menu conversation.Menu) any {
	switch menu {
	case conversation.MenuAdmin:
		return replyKeyboardMarkup{ResizeKeyboard: true, Keyboard: [][]keyboardButton{
			buttons(LabelStatus),
			buttons(LabelSetLimit, LabelAddLimit),
			buttons(LabelHelp, LabelChangeProject),
		}}
	case conversation.MenuClient:
		return replyKeyboardMarkup{ResizeKeyboard: true, Keyboard: [][]keyboardButton{
			buttons(LabelStatus),
			buttons(LabelChangeProject),
		}}
	case conversation.MenuCancel:
		return replyKeyboardMarkup{ResizeKeyboard: true, Keyboard: [][]keyboardButton{
			buttons(LabelCancel),
		}}
	case conversation.MenuRemove:
		return replyKeyboardRemove{RemoveKeyboard: true}
	default:
		return nil
	}
}

// markupFor picks the keyboard of an outgoing message. Inline controls win over menus.
func markupFor(m conversation.Message) any {
	switch {
	case len(m.Picker) > 0:
		rows := make([][]inlineKeyboardButton, 0, len(m.Picker))
		for _, c := range m.Picker {
			rows = append(rows, []inlineKeyboardButton{{Text: c.Name, CallbackData: selectPrefix + c.ID}})
		}
		return inlineKeyboardMarkup{InlineKeyboard: rows}
	case m.QuickPick != "":
		row := make([]inlineKeyboardButton, 0, len(conversation.QuickPickValues))
		for _, v := range conversation.QuickPickValues {
			row = append(row, inlineKeyboardButton{Text: strconv.FormatInt(v, 10), CallbackData: quickPickData(m.QuickPick, v)})
		}
		return inlineKeyboardMarkup{InlineKeyboard: [][]inlineKeyboardButton{row}}
	default:
		return replyMarkup(m.Menu)
	}
}

func quickPickData(mode domquota.Mode, value int64) string {
	return fmt.Sprintf("%s%s%d", mode, limitSuffix, value)
}

// parseQuickPick decodes "{set|add}_limit:{n}".
func parseQuickPick(data string) (domquota.Mode, int64, bool) {
	mode, raw, ok := strings.Cut(data, limitSuffix)
	if !ok || !domquota.Mode(mode).IsValid() || raw == "" {
		return "", 0, false
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return "", 0, false
		}
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return "", 0, false
	}
	return domquota.Mode(mode), value, true
}

// parseSelect decodes "select_bot:{id}".
func parseSelect(data string) (string, bool) {
	id, ok := strings.CutPrefix(data, selectPrefix)
	return id, ok && id != ""
}

// Commands is the bot command menu registered at startup.
var Commands = []BotCommand{
	{Command: "start", Description: "Restart or change project"},
	{Command: "status", Description: "Show status"},
	{Command: "setlimit", Description: "Set a new limit"},
	{Command: "add", Description: "Add to the limit"},
	{Command: "help", Description: "Help"},
}

// command identifies a text event.
type command int

const (
	cmdNone command = iota
	cmdStart
	cmdStatus
	cmdSetLimit
	cmdAddLimit
	cmdHelp
	cmdCancel
)

// parseCommand maps slash commands and menu labels to a command.
// "/status@my_bot" is accepted for group chats.
func parseCommand(text string) command {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "/") {
		name, _, _ := strings.Cut(text, " ")
		name, _, _ = strings.Cut(name, "@")
		text = name
	}
	switch text {
	case "/start", LabelChangeProject:
		return cmdStart
	case "/status", LabelStatus:
		return cmdStatus
	case "/setlimit", LabelSetLimit:
		return cmdSetLimit
	case "/add", LabelAddLimit:
		return cmdAddLimit
	case "/help", LabelHelp:
		return cmdHelp
	case LabelCancel, "/cancel":
		return cmdCancel
	default:
		return cmdNone
	}
}
