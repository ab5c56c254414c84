package keyboard

import tele "gopkg.in/telebot.v4"

// LabelButtons builds an inline keyboard where each button's callback data
// equals its label, for prefix-matched routing.
func LabelButtons(rows ...[]string) *tele.ReplyMarkup {
	inline := make([][]tele.InlineButton, len(rows))
	for i, row := range rows {
		r := make([]tele.InlineButton, len(row))
		for j, label := range row {
			r[j] = tele.InlineButton{Text: label, Data: label}
		}
		inline[i] = r
	}
	return &tele.ReplyMarkup{InlineKeyboard: inline}
}
