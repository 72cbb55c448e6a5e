package service

import (
	"context"
	"time"

	"github.com/Freeeeeet/bizsuite/internal/model"
	"github.com/Freeeeeet/bizsuite/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// The interfaces below are implemented by the pgx repositories and the local store.
// Lookups return (nil, nil) when the record does not exist.

type CategoryRepo interface {
	Create(ctx context.Context, c *model.Category) error
	GetByID(ctx context.Context, id int64) (*model.Category, error)
	List(ctx context.Context) ([]*model.Category, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

type TransactionRepo interface {
	Create(ctx context.Context, t *model.Transaction) error
	GetByID(ctx context.Context, id int64) (*model.Transaction, error)
	List(ctx context.Context, f repository.TransactionFilter) ([]*model.Transaction, error)
	Update(ctx context.Context, t *model.Transaction) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

type PaymentRepo interface {
	Create(ctx context.Context, p *model.Payment) error
	GetByID(ctx context.Context, id int64) (*model.Payment, error)
	List(ctx context.Context, status model.PaymentStatus) ([]*model.Payment, error)
	SetStatus(ctx context.Context, id int64, status model.PaymentStatus, paidAt *time.Time) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

type InstallmentRepo interface {
	CreateWithItems(ctx context.Context, inst *model.Installment) error
	GetByID(ctx context.Context, id int64) (*model.Installment, error)
	List(ctx context.Context) ([]*model.Installment, error)
	Delete(ctx context.Context, id int64) (bool, error)
	GetItem(ctx context.Context, itemID int64) (*model.InstallmentItem, error)
	SetItemStatus(ctx context.Context, itemID int64, status model.PaymentStatus, paidAt *time.Time) (bool, error)
}

type ReportRepo interface {
	Upsert(ctx context.Context, rep *model.Report) error
	Get(ctx context.Context, pt model.PeriodType, start time.Time) (*model.Report, error)
	List(ctx context.Context, pt model.PeriodType, limit int) ([]*model.Report, error)
}

type DatasetRepo interface {
	Load(ctx context.Context) (*model.Dataset, error)
	Replace(ctx context.Context, ds *model.Dataset) error
}

type BackupRepo interface {
	Save(ctx context.Context, b *model.Backup) error
	Get(ctx context.Context, id uuid.UUID) (*model.Backup, error)
	List(ctx context.Context) ([]*model.Backup, error)
	Prune(ctx context.Context, keep int) (int, error)
}

// LocalStore is the SQLite fallback: dataset mirror plus backup copies
type LocalStore interface {
	SaveMirror(ctx context.Context, ds *model.Dataset, at time.Time) error
	LoadMirror(ctx context.Context) (*model.Dataset, time.Time, error)
	SaveBackup(ctx context.Context, b *model.Backup) error
	GetBackup(ctx context.Context, id uuid.UUID) (*model.Backup, error)
	ListBackups(ctx context.Context) ([]*model.Backup, error)
	PruneBackups(ctx context.Context, keep int) (int, error)
}

type FiliadoRepo interface {
	Create(ctx context.Context, f *model.Filiado) error
	GetByID(ctx context.Context, id int64) (*model.Filiado, error)
	GetByCPF(ctx context.Context, cpf string) (*model.Filiado, error)
	List(ctx context.Context, activeOnly bool) ([]*model.Filiado, error)
	Update(ctx context.Context, f *model.Filiado) (bool, error)
}

type ProdutoRepo interface {
	Create(ctx context.Context, p *model.Produto) error
	GetByID(ctx context.Context, id int64) (*model.Produto, error)
	List(ctx context.Context, activeOnly bool) ([]*model.Produto, error)
	Update(ctx context.Context, p *model.Produto) (bool, error)
}

type ComandaRepo interface {
	Open(ctx context.Context, c *model.Comanda) error
	GetByID(ctx context.Context, id int64) (*model.Comanda, error)
	List(ctx context.Context, status model.ComandaStatus) ([]*model.Comanda, error)
	ListClosedBetween(ctx context.Context, from, to time.Time) ([]*model.Comanda, error)
	AddItem(ctx context.Context, comandaID, produtoID int64, quantity int) (*model.ItemComanda, error)
	RemoveItem(ctx context.Context, comandaID, itemID int64) (bool, error)
	Close(ctx context.Context, id int64, method model.PaymentMethod, discount decimal.Decimal, at time.Time) error
	Cancel(ctx context.Context, id int64, at time.Time) error
}

type ProfessorRepo interface {
	Create(ctx context.Context, p *model.Professor) error
	GetByIDs(ctx context.Context, ids []int64) (map[int64]*model.Professor, error)
	List(ctx context.Context, activeOnly bool) ([]*model.Professor, error)
}

type DefenseRepo interface {
	Create(ctx context.Context, d *model.Defense) error
	GetByID(ctx context.Context, id int64) (*model.Defense, error)
	List(ctx context.Context, from, to time.Time, status model.DefenseStatus) ([]*model.Defense, error)
	ListActiveOverlapping(ctx context.Context, from, to time.Time) ([]*model.Defense, error)
	UpdateStatus(ctx context.Context, id int64, status model.DefenseStatus, from ...model.DefenseStatus) (bool, error)
}
