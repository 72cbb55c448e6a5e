package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Freeeeeet/bizsuite/internal/cpf"
	"github.com/Freeeeeet/bizsuite/internal/model"
	"github.com/Freeeeeet/bizsuite/internal/money"
	"github.com/Freeeeeet/bizsuite/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

const helpText = "📚 Comandos:\n\n" +
	"/resumo - Resumo do mês\n" +
	"/semana - Resumo da semana\n" +
	"/parcelas - Contas e parcelas a vencer\n" +
	"/pagar <id> - Marcar parcela como paga\n" +
	"/novo - Registrar receita ou despesa\n" +
	"/grafico - Gráfico dos últimos 6 meses\n" +
	"/backup - Criar backup agora\n" +
	"/cpf <número> - Validar CPF\n" +
	"/cancel - Cancelar operação em andamento"

func (h *Handlers) Start(ctx context.Context, s Sender, update *models.Update) {
	if update.Message == nil {
		return
	}
	name := ""
	if update.Message.From != nil {
		name = update.Message.From.FirstName
	}
	h.sendMessage(ctx, s, update.Message.Chat.ID,
		fmt.Sprintf("👋 Olá, %s!\n\nEu acompanho suas finanças: lançamentos, contas e parcelamentos.\n\n%s", name, helpText))
}

func (h *Handlers) Help(ctx context.Context, s Sender, update *models.Update) {
	if update.Message == nil {
		return
	}
	h.sendMessage(ctx, s, update.Message.Chat.ID, helpText)
}

// Cancel aborts the running dialog
func (h *Handlers) Cancel(ctx context.Context, s Sender, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	if !h.stateManager.Cancel(chatID) {
		h.sendMessage(ctx, s, chatID, "❌ Nenhuma operação em andamento.")
		return
	}
	h.sendMessage(ctx, s, chatID, "✅ Operação cancelada.")
}

// MonthSummary answers /resumo
func (h *Handlers) MonthSummary(ctx context.Context, s Sender, update *models.Update) {
	h.summary(ctx, s, update, model.PeriodMonthly)
}

// WeekSummary answers /semana
func (h *Handlers) WeekSummary(ctx context.Context, s Sender, update *models.Update) {
	h.summary(ctx, s, update, model.PeriodWeekly)
}

func (h *Handlers) summary(ctx context.Context, s Sender, update *models.Update, pt model.PeriodType) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	rep, err := h.reports.Compute(ctx, pt, h.now().In(h.loc))
	if err != nil {
		h.logger.Error("Failed to compute report", zap.String("period_type", string(pt)), zap.Error(err))
		h.sendError(ctx, s, chatID, "❌ Não foi possível calcular o resumo. Tente novamente mais tarde.")
		return
	}
	h.sendHTML(ctx, s, chatID, FormatReport(rep), nil)
}

// Upcoming answers /parcelas
func (h *Handlers) Upcoming(ctx context.Context, s Sender, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	items, err := h.finance.Upcoming(ctx, UpcomingDays)
	if err != nil {
		h.logger.Error("Failed to list upcoming items", zap.Error(err))
		h.sendError(ctx, s, chatID, "❌ Não foi possível carregar as contas a vencer.")
		return
	}
	h.sendHTML(ctx, s, chatID, FormatUpcoming(items, UpcomingDays), nil)
}

// PayItem answers /pagar <itemID>
func (h *Handlers) PayItem(ctx context.Context, s Sender, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	arg := commandArg(update.Message.Text)
	itemID, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || itemID <= 0 {
		h.sendError(ctx, s, chatID, "❌ Informe o número da parcela. Exemplo: /pagar 12\n\nVeja os números em /parcelas")
		return
	}

	item, err := h.finance.PayInstallmentItem(ctx, itemID, nil)
	switch {
	case errors.Is(err, service.ErrNotFound):
		h.sendError(ctx, s, chatID, fmt.Sprintf("❌ Parcela %d não encontrada.", itemID))
		return
	case errors.Is(err, service.ErrInvalidState):
		h.sendError(ctx, s, chatID, fmt.Sprintf("ℹ️ A parcela %d já está paga.", itemID))
		return
	case err != nil:
		h.logger.Error("Failed to pay installment item", zap.Int64("item_id", itemID), zap.Error(err))
		h.sendError(ctx, s, chatID, "❌ Não foi possível registrar o pagamento.")
		return
	}

	h.sendMessage(ctx, s, chatID, fmt.Sprintf("✅ Parcela %d paga: %s (vencimento %s)",
		item.Number, money.Format(item.Amount), item.DueDate.Format("02/01/2006")))
}

// Backup answers /backup
func (h *Handlers) Backup(ctx context.Context, s Sender, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	b, err := h.backups.Create(ctx, model.BackupReasonManual)
	if err != nil {
		h.logger.Error("Failed to create backup from bot", zap.Error(err))
		h.sendError(ctx, s, chatID, "❌ Falha ao criar o backup.")
		return
	}
	h.sendMessage(ctx, s, chatID, FormatBackup(b, h.loc))
}

// Chart answers /grafico with the monthly chart of the last ChartMonths months
func (h *Handlers) Chart(ctx context.Context, s Sender, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	to := h.now().In(h.loc)
	from := to.AddDate(0, -(ChartMonths - 1), 0)
	png, err := h.reports.Chart(ctx, model.PeriodMonthly, from, to)
	if err != nil {
		h.logger.Error("Failed to render chart", zap.Error(err))
		h.sendError(ctx, s, chatID, "❌ Não foi possível gerar o gráfico.")
		return
	}

	_, err = s.SendPhoto(ctx, &bot.SendPhotoParams{
		ChatID:  chatID,
		Photo:   &models.InputFileUpload{Filename: "grafico.png", Data: bytes.NewReader(png)},
		Caption: fmt.Sprintf("📈 Receitas e despesas, últimos %d meses", ChartMonths),
	})
	if err != nil {
		h.logger.Error("Failed to send chart", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// CPF answers /cpf <number>
func (h *Handlers) CPF(ctx context.Context, s Sender, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	raw := commandArg(update.Message.Text)
	if raw == "" {
		h.sendError(ctx, s, chatID, "❌ Informe o CPF. Exemplo: /cpf 529.982.247-25")
		return
	}

	formatted, err := cpf.Format(raw)
	if err != nil {
		h.sendMessage(ctx, s, chatID, "❌ CPF deve ter 11 dígitos.")
		return
	}
	if !cpf.Validate(raw) {
		h.sendMessage(ctx, s, chatID, fmt.Sprintf("❌ CPF inválido: %s", formatted))
		return
	}
	h.sendMessage(ctx, s, chatID, fmt.Sprintf("✅ CPF válido: %s", formatted))
}

// commandArg returns what follows the command word
func commandArg(text string) string {
	_, arg, _ := strings.Cut(strings.TrimSpace(text), " ")
	return strings.TrimSpace(arg)
}
