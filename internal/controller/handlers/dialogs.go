package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Freeeeeet/bizsuite/internal/controller/state"
	"github.com/Freeeeeet/bizsuite/internal/model"
	"github.com/Freeeeeet/bizsuite/internal/money"
	"github.com/Freeeeeet/bizsuite/internal/service"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// NewTransaction starts the /novo dialog
func (h *Handlers) NewTransaction(ctx context.Context, s Sender, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	h.stateManager.Begin(chatID)

	h.sendHTML(ctx, s, chatID, "📝 <b>Novo lançamento</b>\n\nPasso 1 de 3: é uma receita ou uma despesa?", kindKeyboard())
}

// HandleCallbackQuery handles the buttons of the /novo keyboard
func (h *Handlers) HandleCallbackQuery(ctx context.Context, s Sender, update *models.Update) {
	query := update.CallbackQuery
	if query == nil {
		return
	}
	msg := query.Message.Message
	if msg == nil {
		h.answerCallback(ctx, s, query.ID, "Mensagem expirada")
		return
	}
	chatID := msg.Chat.ID

	if h.stateManager.Step(chatID) != state.StepKind {
		h.answerCallback(ctx, s, query.ID, "Use /novo para começar")
		return
	}

	var kind model.Kind
	switch query.Data {
	case CallbackNewIncome:
		kind = model.KindIncome
	case CallbackNewExpense:
		kind = model.KindExpense
	case CallbackNewAbort:
		h.stateManager.Cancel(chatID)
		h.answerCallback(ctx, s, query.ID, "Cancelado")
		h.sendMessage(ctx, s, chatID, "✅ Operação cancelada.")
		return
	default:
		h.logger.Warn("Unknown callback data", zap.String("data", query.Data))
		h.answerCallback(ctx, s, query.ID, "")
		return
	}

	if err := h.stateManager.ChooseKind(chatID, kind); err != nil {
		// the draft expired or moved on between the check and the answer
		h.answerCallback(ctx, s, query.ID, "Use /novo para começar")
		return
	}
	h.answerCallback(ctx, s, query.ID, "")
	h.sendMessage(ctx, s, chatID, fmt.Sprintf("%s\n\nPasso 2 de 3: qual o valor? Exemplo: 150,40\n\nPara cancelar use /cancel", kindLabel(kind)))
}

// HandleTextMessage routes free text to the current dialog step
func (h *Handlers) HandleTextMessage(ctx context.Context, s Sender, update *models.Update) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}
	if strings.HasPrefix(update.Message.Text, "/") {
		return
	}
	chatID := update.Message.Chat.ID

	switch h.stateManager.Step(chatID) {
	case state.StepAmount:
		h.handleAmountStep(ctx, s, chatID, update.Message.Text)
	case state.StepDescription:
		h.handleDescriptionStep(ctx, s, chatID, update.Message.Text)
	case state.StepKind:
		h.sendHTML(ctx, s, chatID, "Escolha uma opção:", kindKeyboard())
	default:
		h.logger.Debug("No active dialog, ignoring message", zap.Int64("chat_id", chatID))
	}
}

func (h *Handlers) handleAmountStep(ctx context.Context, s Sender, chatID int64, text string) {
	amount, err := money.Parse(text)
	if err != nil || !amount.IsPositive() {
		h.sendError(ctx, s, chatID, "❌ Valor inválido. Use um número maior que zero, como 150,40\n\nTente novamente:")
		return
	}

	if err := h.stateManager.SetAmount(chatID, amount); err != nil {
		h.logger.Warn("Amount step rejected", zap.Int64("chat_id", chatID), zap.Error(err))
		h.sendError(ctx, s, chatID, "❌ O lançamento expirou. Comece de novo com /novo")
		return
	}
	h.sendMessage(ctx, s, chatID, fmt.Sprintf("✅ Valor: %s\n\nPasso 3 de 3: descreva o lançamento", money.Format(amount)))
}

func (h *Handlers) handleDescriptionStep(ctx context.Context, s Sender, chatID int64, text string) {
	description := strings.TrimSpace(text)
	n := utf8.RuneCountInString(description)
	if n < DescriptionMinLength || n > DescriptionMaxLength {
		h.sendError(ctx, s, chatID, fmt.Sprintf("❌ A descrição deve ter entre %d e %d caracteres.\n\nTente novamente:",
			DescriptionMinLength, DescriptionMaxLength))
		return
	}

	draft, err := h.stateManager.Finish(chatID)
	if err != nil {
		h.logger.Warn("Draft not ready", zap.Int64("chat_id", chatID), zap.Error(err))
		h.sendError(ctx, s, chatID, "❌ O lançamento expirou. Comece de novo com /novo")
		return
	}

	t, err := h.finance.CreateTransaction(ctx, service.TransactionInput{
		Description: description,
		Amount:      draft.Amount,
		Kind:        draft.Kind,
		Date:        h.now().In(h.loc),
	})
	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			h.sendError(ctx, s, chatID, "❌ "+verr.Error())
		} else {
			h.logger.Error("Failed to create transaction from bot", zap.Int64("chat_id", chatID), zap.Error(err))
			h.sendError(ctx, s, chatID, "❌ Não foi possível salvar o lançamento.")
		}
		return
	}

	h.sendMessage(ctx, s, chatID, fmt.Sprintf("✅ %s registrada: %s, %s (%s)",
		kindLabel(t.Kind), t.Description, money.Format(t.Amount), t.Date.Format("02/01/2006")))
}

func kindLabel(k model.Kind) string {
	if k == model.KindIncome {
		return "💰 Receita"
	}
	return "💸 Despesa"
}

// ExpireDrafts drops /novo drafts nobody answered in time
func (h *Handlers) ExpireDrafts() {
	if n := h.stateManager.Sweep(); n > 0 {
		h.logger.Info("Expired transaction drafts", zap.Int("count", n))
	}
}
