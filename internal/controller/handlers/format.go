package handlers

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/Freeeeeet/bizsuite/internal/model"
	"github.com/Freeeeeet/bizsuite/internal/money"
)

var monthNames = [...]string{
	"janeiro", "fevereiro", "março", "abril", "maio", "junho",
	"julho", "agosto", "setembro", "outubro", "novembro", "dezembro",
}

// periodTitle renders "março/2024" or "semana de 04/03 a 10/03"
func periodTitle(r *model.Report) string {
	if r.PeriodType == model.PeriodWeekly {
		last := r.PeriodEnd.AddDate(0, 0, -1)
		return fmt.Sprintf("semana de %s a %s", r.PeriodStart.Format("02/01"), last.Format("02/01"))
	}
	return fmt.Sprintf("%s/%d", monthNames[r.PeriodStart.Month()-1], r.PeriodStart.Year())
}

// FormatReport renders a period summary as Telegram HTML
func FormatReport(r *model.Report) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 <b>Resumo: %s</b>\n\n", html.EscapeString(periodTitle(r)))

	fmt.Fprintf(&sb, "💰 Receitas: %s\n", money.Format(r.Income))
	fmt.Fprintf(&sb, "💸 Despesas: %s\n", money.Format(r.Expense))
	fmt.Fprintf(&sb, "🧮 Saldo: <b>%s</b>\n", money.Format(r.Balance))
	if r.Pending.IsPositive() {
		fmt.Fprintf(&sb, "⏳ Pendente: %s (%d)\n", money.Format(r.Pending), r.Counts.PendingItems)
	}

	if len(r.ByCategory) > 0 {
		sb.WriteString("\n<b>Por categoria</b>\n")
		for _, c := range r.ByCategory {
			name := c.Name
			if name == "" {
				name = "Sem categoria"
			}
			fmt.Fprintf(&sb, "• %s: %s\n", html.EscapeString(name), money.Format(c.Amount))
		}
	}

	fmt.Fprintf(&sb, "\n%d lançamentos, %d contas pagas, %d parcelas pagas",
		r.Counts.Transactions, r.Counts.PaymentsPaid, r.Counts.InstallmentItemsPaid)
	if r.Source == model.SourceLocal {
		sb.WriteString("\n\n⚠️ Banco remoto indisponível, dados da cópia local.")
	}
	return sb.String()
}

// FormatUpcoming lists pending bills and installment items, overdue first as given
func FormatUpcoming(items []model.UpcomingItem, days int) string {
	if len(items) == 0 {
		return fmt.Sprintf("✅ Nada a pagar nos próximos %d dias.", days)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🗓 <b>A pagar nos próximos %d dias</b>\n\n", days)
	total := money.Sum()
	for _, it := range items {
		marker := "•"
		if it.Overdue {
			marker = "🔴"
		}
		desc := html.EscapeString(it.Description)
		if it.Source == model.UpcomingSourceInstallment {
			fmt.Fprintf(&sb, "%s %s %s (%d/%d) %s  <code>/pagar %d</code>\n",
				marker, it.DueDate.Format("02/01"), desc, it.Number, it.Count, money.Format(it.Amount), it.ID)
		} else {
			fmt.Fprintf(&sb, "%s %s %s %s\n", marker, it.DueDate.Format("02/01"), desc, money.Format(it.Amount))
		}
		total = total.Add(it.Amount)
	}
	fmt.Fprintf(&sb, "\nTotal: <b>%s</b>", money.Format(total))
	return sb.String()
}

// FormatBackup confirms a finished backup
func FormatBackup(b *model.Backup, loc *time.Location) string {
	where := make([]string, 0, len(b.Locations))
	for _, l := range b.Locations {
		switch l {
		case model.BackupLocationRemote:
			where = append(where, "remoto")
		case model.BackupLocationLocal:
			where = append(where, "local")
		default:
			where = append(where, l)
		}
	}
	return fmt.Sprintf("💾 Backup criado\n\nID: %s\nEm: %s\nLançamentos: %d, contas: %d, parcelamentos: %d\nGuardado em: %s",
		b.ID,
		b.CreatedAt.In(loc).Format("02/01/2006 15:04"),
		b.Counts.Transactions,
		b.Counts.Payments,
		b.Counts.Installments,
		strings.Join(where, ", "),
	)
}
