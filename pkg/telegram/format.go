package telegram

import (
	"strconv"
	"strings"
)

// MessageOptions carries the optional parts of a notification message.
type MessageOptions struct {
	Status string
	Note   string
}

// FormatMessage renders the notification body shown in the chat.
func FormatMessage(senderName, senderEmail, summary, category string, opts MessageOptions) string {
	sender := strings.TrimSpace(senderName)
	if sender == "" {
		sender = senderEmail
	}
	if sender == "" {
		sender = "Unknown Sender"
	}

	lines := []string{
		"📩 From: " + sender,
		"🏷️ Category: " + category,
	}
	if opts.Status != "" {
		lines = append(lines, statusIcon(opts.Status)+" Status: "+opts.Status)
	}
	if opts.Note != "" {
		lines = append(lines, "⚠️ "+opts.Note)
	}
	lines = append(lines, "", "🤖 "+summary)
	return strings.Join(lines, "\n")
}

func statusIcon(status string) string {
	lowered := strings.ToLower(status)
	switch {
	case strings.Contains(lowered, "trash"):
		return "🗑️"
	case strings.Contains(lowered, "archive"):
		return "🗂️"
	case strings.Contains(lowered, "not-interested"):
		return "🚫"
	}
	return "✅"
}

// Callback data grammar: "<op>:<notification-id>[:<arg>]". Kept short because
// Telegram caps callback_data at 64 bytes.
const (
	cbArchive       = "a"
	cbTrashPrompt   = "t"
	cbTrashConfirm  = "tc"
	cbTrashCancel   = "tcan"
	cbNotInterested = "n"
	cbMuteScope     = "ns"
	cbMuteCancel    = "ncan"
	cbSetCategory   = "c"
	cbUndo          = "u"
)

// BuildKeyboard builds the primary action keyboard. When includeCategories is
// set (low-confidence classification) a category picker is appended.
func BuildKeyboard(notificationID, openURL string, includeCategories bool, categories []string) *InlineKeyboardMarkup {
	rows := [][]InlineKeyboardButton{
		{
			{Text: "Open", URL: openURL},
			{Text: "Archive", CallbackData: cbArchive + ":" + notificationID},
			{Text: "Trash", CallbackData: cbTrashPrompt + ":" + notificationID},
			{Text: "Not-Interested", CallbackData: cbNotInterested + ":" + notificationID},
		},
	}
	if includeCategories {
		rows = append(rows, buildCategoryRows(notificationID, categories)...)
	}
	return &InlineKeyboardMarkup{InlineKeyboard: rows}
}

// BuildTrashConfirmKeyboard replaces the action row with an explicit
// confirmation step. Nothing is mutated until Confirm is pressed.
func BuildTrashConfirmKeyboard(notificationID string) *InlineKeyboardMarkup {
	return &InlineKeyboardMarkup{InlineKeyboard: [][]InlineKeyboardButton{
		{
			{Text: "Confirm Trash", CallbackData: cbTrashConfirm + ":" + notificationID},
			{Text: "Cancel", CallbackData: cbTrashCancel + ":" + notificationID},
		},
	}}
}

// BuildNotInterestedPicker offers the mute scopes for a not-interested action.
func BuildNotInterestedPicker(notificationID string) *InlineKeyboardMarkup {
	return &InlineKeyboardMarkup{InlineKeyboard: [][]InlineKeyboardButton{
		{{Text: "Mute sender+category", CallbackData: cbMuteScope + ":" + notificationID + ":sc"}},
		{{Text: "Mute sender (all)", CallbackData: cbMuteScope + ":" + notificationID + ":ss"}},
		{{Text: "Mute domain (all)", CallbackData: cbMuteScope + ":" + notificationID + ":sd"}},
		{{Text: "Cancel", CallbackData: cbMuteCancel + ":" + notificationID}},
	}}
}

// BuildOpenWithUndoKeyboard is the reduced keyboard shown after a terminal
// action: only Open plus an Undo for the action just taken.
func BuildOpenWithUndoKeyboard(openURL, undoData string) *InlineKeyboardMarkup {
	return &InlineKeyboardMarkup{InlineKeyboard: [][]InlineKeyboardButton{
		{
			{Text: "Open", URL: openURL},
			{Text: "Undo", CallbackData: undoData},
		},
	}}
}

// BuildOpenOnlyKeyboard leaves just the Open link.
func BuildOpenOnlyKeyboard(openURL string) *InlineKeyboardMarkup {
	return &InlineKeyboardMarkup{InlineKeyboard: [][]InlineKeyboardButton{
		{{Text: "Open", URL: openURL}},
	}}
}

// UndoData builds the callback payload for undoing a terminal action.
// target is one of "a" (archive), "t" (trash), "n" (not-interested).
func UndoData(notificationID, target string) string {
	return cbUndo + ":" + notificationID + ":" + target
}

func buildCategoryRows(notificationID string, categories []string) [][]InlineKeyboardButton {
	const perRow = 2
	var rows [][]InlineKeyboardButton
	for idx, category := range categories {
		if idx%perRow == 0 {
			rows = append(rows, []InlineKeyboardButton{})
		}
		rows[len(rows)-1] = append(rows[len(rows)-1], InlineKeyboardButton{
			Text:         category,
			CallbackData: cbSetCategory + ":" + notificationID + ":" + strconv.Itoa(idx),
		})
	}
	return rows
}
