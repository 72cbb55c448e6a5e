package http_test

import (
	"context"
	"io"
	"time"

	"github.com/Freeeeeet/bizsuite/internal/model"
	"github.com/Freeeeeet/bizsuite/internal/repository"
	"github.com/Freeeeeet/bizsuite/internal/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// result extracts a typed first return value that may be nil
func result[T any](args mock.Arguments) T {
	var zero T
	if v := args.Get(0); v != nil {
		return v.(T)
	}
	return zero
}

type MockFinanceService struct {
	mock.Mock
}

func (m *MockFinanceService) CreateCategory(ctx context.Context, name string, kind model.Kind, color string) (*model.Category, error) {
	args := m.Called(ctx, name, kind, color)
	return result[*model.Category](args), args.Error(1)
}

func (m *MockFinanceService) ListCategories(ctx context.Context) ([]*model.Category, error) {
	args := m.Called(ctx)
	return result[[]*model.Category](args), args.Error(1)
}

func (m *MockFinanceService) DeleteCategory(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockFinanceService) CreateTransaction(ctx context.Context, in service.TransactionInput) (*model.Transaction, error) {
	args := m.Called(ctx, in)
	return result[*model.Transaction](args), args.Error(1)
}

func (m *MockFinanceService) GetTransaction(ctx context.Context, id int64) (*model.Transaction, error) {
	args := m.Called(ctx, id)
	return result[*model.Transaction](args), args.Error(1)
}

func (m *MockFinanceService) ListTransactions(ctx context.Context, f repository.TransactionFilter) ([]*model.Transaction, error) {
	args := m.Called(ctx, f)
	return result[[]*model.Transaction](args), args.Error(1)
}

func (m *MockFinanceService) UpdateTransaction(ctx context.Context, id int64, in service.TransactionInput) (*model.Transaction, error) {
	args := m.Called(ctx, id, in)
	return result[*model.Transaction](args), args.Error(1)
}

func (m *MockFinanceService) DeleteTransaction(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockFinanceService) CreatePayment(ctx context.Context, in service.PaymentInput) (*model.Payment, error) {
	args := m.Called(ctx, in)
	return result[*model.Payment](args), args.Error(1)
}

func (m *MockFinanceService) ListPayments(ctx context.Context, status model.PaymentStatus) ([]*model.Payment, error) {
	args := m.Called(ctx, status)
	return result[[]*model.Payment](args), args.Error(1)
}

func (m *MockFinanceService) PayPayment(ctx context.Context, id int64, paidAt *time.Time) (*model.Payment, error) {
	args := m.Called(ctx, id, paidAt)
	return result[*model.Payment](args), args.Error(1)
}

func (m *MockFinanceService) UnpayPayment(ctx context.Context, id int64) (*model.Payment, error) {
	args := m.Called(ctx, id)
	return result[*model.Payment](args), args.Error(1)
}

func (m *MockFinanceService) DeletePayment(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockFinanceService) CreateInstallment(ctx context.Context, in service.InstallmentInput) (*model.Installment, error) {
	args := m.Called(ctx, in)
	return result[*model.Installment](args), args.Error(1)
}

func (m *MockFinanceService) GetInstallment(ctx context.Context, id int64) (*model.Installment, error) {
	args := m.Called(ctx, id)
	return result[*model.Installment](args), args.Error(1)
}

func (m *MockFinanceService) ListInstallments(ctx context.Context) ([]*model.Installment, error) {
	args := m.Called(ctx)
	return result[[]*model.Installment](args), args.Error(1)
}

func (m *MockFinanceService) DeleteInstallment(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockFinanceService) PayInstallmentItem(ctx context.Context, itemID int64, paidAt *time.Time) (*model.InstallmentItem, error) {
	args := m.Called(ctx, itemID, paidAt)
	return result[*model.InstallmentItem](args), args.Error(1)
}

func (m *MockFinanceService) UnpayInstallmentItem(ctx context.Context, itemID int64) (*model.InstallmentItem, error) {
	args := m.Called(ctx, itemID)
	return result[*model.InstallmentItem](args), args.Error(1)
}

func (m *MockFinanceService) Upcoming(ctx context.Context, days int) ([]model.UpcomingItem, error) {
	args := m.Called(ctx, days)
	return result[[]model.UpcomingItem](args), args.Error(1)
}

type MockReportService struct {
	mock.Mock
}

func (m *MockReportService) Compute(ctx context.Context, pt model.PeriodType, at time.Time) (*model.Report, error) {
	args := m.Called(ctx, pt, at)
	return result[*model.Report](args), args.Error(1)
}

func (m *MockReportService) Generate(ctx context.Context, pt model.PeriodType, at time.Time) (*model.Report, error) {
	args := m.Called(ctx, pt, at)
	return result[*model.Report](args), args.Error(1)
}

func (m *MockReportService) Stored(ctx context.Context, pt model.PeriodType, limit int) ([]*model.Report, error) {
	args := m.Called(ctx, pt, limit)
	return result[[]*model.Report](args), args.Error(1)
}

func (m *MockReportService) Series(ctx context.Context, pt model.PeriodType, from, to time.Time) ([]*model.Report, error) {
	args := m.Called(ctx, pt, from, to)
	return result[[]*model.Report](args), args.Error(1)
}

func (m *MockReportService) Chart(ctx context.Context, pt model.PeriodType, from, to time.Time) ([]byte, error) {
	args := m.Called(ctx, pt, from, to)
	return result[[]byte](args), args.Error(1)
}

func (m *MockReportService) Dashboard(ctx context.Context) (*service.Dashboard, error) {
	args := m.Called(ctx)
	return result[*service.Dashboard](args), args.Error(1)
}

type MockBackupService struct {
	mock.Mock
}

func (m *MockBackupService) Create(ctx context.Context, reason model.BackupReason) (*model.Backup, error) {
	args := m.Called(ctx, reason)
	return result[*model.Backup](args), args.Error(1)
}

func (m *MockBackupService) List(ctx context.Context) ([]*model.Backup, error) {
	args := m.Called(ctx)
	return result[[]*model.Backup](args), args.Error(1)
}

func (m *MockBackupService) Restore(ctx context.Context, id uuid.UUID) (*service.RestoreResult, error) {
	args := m.Called(ctx, id)
	return result[*service.RestoreResult](args), args.Error(1)
}

func (m *MockBackupService) RestoreLatest(ctx context.Context) (*service.RestoreResult, error) {
	args := m.Called(ctx)
	return result[*service.RestoreResult](args), args.Error(1)
}

func (m *MockBackupService) Export(ctx context.Context, id uuid.UUID, w io.Writer) error {
	return m.Called(ctx, id, w).Error(0)
}

func (m *MockBackupService) Import(ctx context.Context, r io.Reader) (*model.Backup, error) {
	args := m.Called(ctx, r)
	return result[*model.Backup](args), args.Error(1)
}

func (m *MockBackupService) Prune(ctx context.Context, keep int) (*service.PruneResult, error) {
	args := m.Called(ctx, keep)
	return result[*service.PruneResult](args), args.Error(1)
}

type MockPosService struct {
	mock.Mock
}

func (m *MockPosService) CreateFiliado(ctx context.Context, in service.FiliadoInput) (*model.Filiado, error) {
	args := m.Called(ctx, in)
	return result[*model.Filiado](args), args.Error(1)
}

func (m *MockPosService) GetFiliado(ctx context.Context, id int64) (*model.Filiado, error) {
	args := m.Called(ctx, id)
	return result[*model.Filiado](args), args.Error(1)
}

func (m *MockPosService) FindFiliadoByCPF(ctx context.Context, raw string) (*model.Filiado, error) {
	args := m.Called(ctx, raw)
	return result[*model.Filiado](args), args.Error(1)
}

func (m *MockPosService) ListFiliados(ctx context.Context, activeOnly bool) ([]*model.Filiado, error) {
	args := m.Called(ctx, activeOnly)
	return result[[]*model.Filiado](args), args.Error(1)
}

func (m *MockPosService) UpdateFiliado(ctx context.Context, id int64, in service.FiliadoInput) (*model.Filiado, error) {
	args := m.Called(ctx, id, in)
	return result[*model.Filiado](args), args.Error(1)
}

func (m *MockPosService) CreateProduto(ctx context.Context, in service.ProdutoInput) (*model.Produto, error) {
	args := m.Called(ctx, in)
	return result[*model.Produto](args), args.Error(1)
}

func (m *MockPosService) ListProdutos(ctx context.Context, activeOnly bool) ([]*model.Produto, error) {
	args := m.Called(ctx, activeOnly)
	return result[[]*model.Produto](args), args.Error(1)
}

func (m *MockPosService) UpdateProduto(ctx context.Context, id int64, in service.ProdutoInput) (*model.Produto, error) {
	args := m.Called(ctx, id, in)
	return result[*model.Produto](args), args.Error(1)
}

func (m *MockPosService) OpenComanda(ctx context.Context, filiadoID *int64, customerName string) (*model.Comanda, error) {
	args := m.Called(ctx, filiadoID, customerName)
	return result[*model.Comanda](args), args.Error(1)
}

func (m *MockPosService) GetComanda(ctx context.Context, id int64) (*model.Comanda, error) {
	args := m.Called(ctx, id)
	return result[*model.Comanda](args), args.Error(1)
}

func (m *MockPosService) ListComandas(ctx context.Context, status model.ComandaStatus) ([]*model.Comanda, error) {
	args := m.Called(ctx, status)
	return result[[]*model.Comanda](args), args.Error(1)
}

func (m *MockPosService) AddItem(ctx context.Context, comandaID, produtoID int64, quantity int) (*model.Comanda, error) {
	args := m.Called(ctx, comandaID, produtoID, quantity)
	return result[*model.Comanda](args), args.Error(1)
}

func (m *MockPosService) RemoveItem(ctx context.Context, comandaID, itemID int64) (*model.Comanda, error) {
	args := m.Called(ctx, comandaID, itemID)
	return result[*model.Comanda](args), args.Error(1)
}

func (m *MockPosService) CloseComanda(ctx context.Context, id int64, method model.PaymentMethod, discount decimal.Decimal) (*model.Comanda, error) {
	args := m.Called(ctx, id, method, discount)
	return result[*model.Comanda](args), args.Error(1)
}

func (m *MockPosService) CancelComanda(ctx context.Context, id int64) (*model.Comanda, error) {
	args := m.Called(ctx, id)
	return result[*model.Comanda](args), args.Error(1)
}

func (m *MockPosService) DailySummary(ctx context.Context, date time.Time) (*model.DailySummary, error) {
	args := m.Called(ctx, date)
	return result[*model.DailySummary](args), args.Error(1)
}

type MockDefenseService struct {
	mock.Mock
}

func (m *MockDefenseService) CreateProfessor(ctx context.Context, in service.ProfessorInput) (*model.Professor, error) {
	args := m.Called(ctx, in)
	return result[*model.Professor](args), args.Error(1)
}

func (m *MockDefenseService) ListProfessors(ctx context.Context, activeOnly bool) ([]*model.Professor, error) {
	args := m.Called(ctx, activeOnly)
	return result[[]*model.Professor](args), args.Error(1)
}

func (m *MockDefenseService) Schedule(ctx context.Context, in service.DefenseInput) (*model.Defense, error) {
	args := m.Called(ctx, in)
	return result[*model.Defense](args), args.Error(1)
}

func (m *MockDefenseService) GetDefense(ctx context.Context, id int64) (*model.Defense, error) {
	args := m.Called(ctx, id)
	return result[*model.Defense](args), args.Error(1)
}

func (m *MockDefenseService) ListDefenses(ctx context.Context, from, to time.Time, status model.DefenseStatus) ([]*model.Defense, error) {
	args := m.Called(ctx, from, to, status)
	return result[[]*model.Defense](args), args.Error(1)
}

func (m *MockDefenseService) Confirm(ctx context.Context, id int64) (*model.Defense, error) {
	args := m.Called(ctx, id)
	return result[*model.Defense](args), args.Error(1)
}

func (m *MockDefenseService) Cancel(ctx context.Context, id int64) (*model.Defense, error) {
	args := m.Called(ctx, id)
	return result[*model.Defense](args), args.Error(1)
}

type MockPinger struct {
	mock.Mock
}

func (m *MockPinger) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
