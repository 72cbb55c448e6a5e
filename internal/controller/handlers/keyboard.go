package handlers

import "github.com/go-telegram/bot/models"

func button(text, callbackData string) models.InlineKeyboardButton {
	return models.InlineKeyboardButton{Text: text, CallbackData: callbackData}
}

// kindKeyboard asks whether a new transaction is income or expense
func kindKeyboard() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{button("💰 Receita", CallbackNewIncome), button("💸 Despesa", CallbackNewExpense)},
			{button("❌ Cancelar", CallbackNewAbort)},
		},
	}
}
