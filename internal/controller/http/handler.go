package http

import (
	"context"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/Freeeeeet/bizsuite/internal/cpf"
	"github.com/Freeeeeet/bizsuite/internal/model"
	"github.com/Freeeeeet/bizsuite/internal/repository"
	"github.com/Freeeeeet/bizsuite/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type FinanceService interface {
	CreateCategory(ctx context.Context, name string, kind model.Kind, color string) (*model.Category, error)
	ListCategories(ctx context.Context) ([]*model.Category, error)
	DeleteCategory(ctx context.Context, id int64) error
	CreateTransaction(ctx context.Context, in service.TransactionInput) (*model.Transaction, error)
	GetTransaction(ctx context.Context, id int64) (*model.Transaction, error)
	ListTransactions(ctx context.Context, f repository.TransactionFilter) ([]*model.Transaction, error)
	UpdateTransaction(ctx context.Context, id int64, in service.TransactionInput) (*model.Transaction, error)
	DeleteTransaction(ctx context.Context, id int64) error
	CreatePayment(ctx context.Context, in service.PaymentInput) (*model.Payment, error)
	ListPayments(ctx context.Context, status model.PaymentStatus) ([]*model.Payment, error)
	PayPayment(ctx context.Context, id int64, paidAt *time.Time) (*model.Payment, error)
	UnpayPayment(ctx context.Context, id int64) (*model.Payment, error)
	DeletePayment(ctx context.Context, id int64) error
	CreateInstallment(ctx context.Context, in service.InstallmentInput) (*model.Installment, error)
	GetInstallment(ctx context.Context, id int64) (*model.Installment, error)
	ListInstallments(ctx context.Context) ([]*model.Installment, error)
	DeleteInstallment(ctx context.Context, id int64) error
	PayInstallmentItem(ctx context.Context, itemID int64, paidAt *time.Time) (*model.InstallmentItem, error)
	UnpayInstallmentItem(ctx context.Context, itemID int64) (*model.InstallmentItem, error)
	Upcoming(ctx context.Context, days int) ([]model.UpcomingItem, error)
}

type ReportService interface {
	Compute(ctx context.Context, pt model.PeriodType, at time.Time) (*model.Report, error)
	Generate(ctx context.Context, pt model.PeriodType, at time.Time) (*model.Report, error)
	Stored(ctx context.Context, pt model.PeriodType, limit int) ([]*model.Report, error)
	Series(ctx context.Context, pt model.PeriodType, from, to time.Time) ([]*model.Report, error)
	Chart(ctx context.Context, pt model.PeriodType, from, to time.Time) ([]byte, error)
	Dashboard(ctx context.Context) (*service.Dashboard, error)
}

type BackupService interface {
	Create(ctx context.Context, reason model.BackupReason) (*model.Backup, error)
	List(ctx context.Context) ([]*model.Backup, error)
	Restore(ctx context.Context, id uuid.UUID) (*service.RestoreResult, error)
	RestoreLatest(ctx context.Context) (*service.RestoreResult, error)
	Export(ctx context.Context, id uuid.UUID, w io.Writer) error
	Import(ctx context.Context, r io.Reader) (*model.Backup, error)
	Prune(ctx context.Context, keep int) (*service.PruneResult, error)
}

type PosService interface {
	CreateFiliado(ctx context.Context, in service.FiliadoInput) (*model.Filiado, error)
	GetFiliado(ctx context.Context, id int64) (*model.Filiado, error)
	FindFiliadoByCPF(ctx context.Context, raw string) (*model.Filiado, error)
	ListFiliados(ctx context.Context, activeOnly bool) ([]*model.Filiado, error)
	UpdateFiliado(ctx context.Context, id int64, in service.FiliadoInput) (*model.Filiado, error)
	CreateProduto(ctx context.Context, in service.ProdutoInput) (*model.Produto, error)
	ListProdutos(ctx context.Context, activeOnly bool) ([]*model.Produto, error)
	UpdateProduto(ctx context.Context, id int64, in service.ProdutoInput) (*model.Produto, error)
	OpenComanda(ctx context.Context, filiadoID *int64, customerName string) (*model.Comanda, error)
	GetComanda(ctx context.Context, id int64) (*model.Comanda, error)
	ListComandas(ctx context.Context, status model.ComandaStatus) ([]*model.Comanda, error)
	AddItem(ctx context.Context, comandaID, produtoID int64, quantity int) (*model.Comanda, error)
	RemoveItem(ctx context.Context, comandaID, itemID int64) (*model.Comanda, error)
	CloseComanda(ctx context.Context, id int64, method model.PaymentMethod, discount decimal.Decimal) (*model.Comanda, error)
	CancelComanda(ctx context.Context, id int64) (*model.Comanda, error)
	DailySummary(ctx context.Context, date time.Time) (*model.DailySummary, error)
}

type DefenseService interface {
	CreateProfessor(ctx context.Context, in service.ProfessorInput) (*model.Professor, error)
	ListProfessors(ctx context.Context, activeOnly bool) ([]*model.Professor, error)
	Schedule(ctx context.Context, in service.DefenseInput) (*model.Defense, error)
	GetDefense(ctx context.Context, id int64) (*model.Defense, error)
	ListDefenses(ctx context.Context, from, to time.Time, status model.DefenseStatus) ([]*model.Defense, error)
	Confirm(ctx context.Context, id int64) (*model.Defense, error)
	Cancel(ctx context.Context, id int64) (*model.Defense, error)
}

// Pinger reports whether the remote database answers
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services groups what the API exposes
type Services struct {
	Finance FinanceService
	Reports ReportService
	Backups BackupService
	Pos     PosService
	Defense DefenseService
	DB      Pinger
}

type Handler struct {
	finance  FinanceService
	reports  ReportService
	backups  BackupService
	pos      PosService
	defense  DefenseService
	db       Pinger
	validate *validator.Validate
	loc      *time.Location
	logger   *zap.Logger
	now      func() time.Time
}

func NewHandler(s Services, loc *time.Location, logger *zap.Logger) *Handler {
	return &Handler{
		finance:  s.Finance,
		reports:  s.Reports,
		backups:  s.Backups,
		pos:      s.Pos,
		defense:  s.Defense,
		db:       s.DB,
		validate: newValidator(),
		loc:      loc,
		logger:   logger,
		now:      time.Now,
	}
}

func newValidator() *validator.Validate {
	v := validator.New()
	// report json names in error details
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("cpf", func(fl validator.FieldLevel) bool {
		return cpf.Validate(fl.Field().String())
	})
	return v
}

// Router builds the chi router with middleware and every route mounted under /api/v1
func (h *Handler) Router() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(h.requestLogger)
	router.Use(middleware.Recoverer)

	router.Get("/healthz", h.handleHealth)
	router.Route("/api/v1", h.RegisterRoutes)
	return router
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/cpf/{cpf}", h.handleCPF)

	r.Route("/categories", func(r chi.Router) {
		r.Get("/", h.handleListCategories)
		r.Post("/", h.handleCreateCategory)
		r.Delete("/{id}", h.handleDeleteCategory)
	})
	r.Route("/transactions", func(r chi.Router) {
		r.Get("/", h.handleListTransactions)
		r.Post("/", h.handleCreateTransaction)
		r.Get("/{id}", h.handleGetTransaction)
		r.Put("/{id}", h.handleUpdateTransaction)
		r.Delete("/{id}", h.handleDeleteTransaction)
	})
	r.Route("/payments", func(r chi.Router) {
		r.Get("/", h.handleListPayments)
		r.Post("/", h.handleCreatePayment)
		r.Post("/{id}/pay", h.handlePayPayment)
		r.Post("/{id}/unpay", h.handleUnpayPayment)
		r.Delete("/{id}", h.handleDeletePayment)
	})
	r.Route("/installments", func(r chi.Router) {
		r.Get("/", h.handleListInstallments)
		r.Post("/", h.handleCreateInstallment)
		r.Get("/{id}", h.handleGetInstallment)
		r.Delete("/{id}", h.handleDeleteInstallment)
		r.Post("/items/{itemID}/pay", h.handlePayInstallmentItem)
		r.Post("/items/{itemID}/unpay", h.handleUnpayInstallmentItem)
	})
	r.Get("/upcoming", h.handleUpcoming)
	r.Get("/dashboard", h.handleDashboard)

	r.Route("/reports/{type}", func(r chi.Router) {
		r.Get("/", h.handleComputeReport)
		r.Post("/generate", h.handleGenerateReport)
		r.Get("/stored", h.handleStoredReports)
		r.Get("/series", h.handleReportSeries)
		r.Get("/chart.png", h.handleReportChart)
	})

	r.Route("/backups", func(r chi.Router) {
		r.Get("/", h.handleListBackups)
		r.Post("/", h.handleCreateBackup)
		r.Post("/restore-latest", h.handleRestoreLatest)
		r.Post("/import", h.handleImportBackup)
		r.Post("/prune", h.handlePruneBackups)
		r.Post("/{id}/restore", h.handleRestoreBackup)
		r.Get("/{id}/export", h.handleExportBackup)
	})

	r.Route("/filiados", func(r chi.Router) {
		r.Get("/", h.handleListFiliados)
		r.Post("/", h.handleCreateFiliado)
		r.Get("/{id}", h.handleGetFiliado)
		r.Put("/{id}", h.handleUpdateFiliado)
	})
	r.Route("/produtos", func(r chi.Router) {
		r.Get("/", h.handleListProdutos)
		r.Post("/", h.handleCreateProduto)
		r.Put("/{id}", h.handleUpdateProduto)
	})
	r.Route("/comandas", func(r chi.Router) {
		r.Get("/", h.handleListComandas)
		r.Post("/", h.handleOpenComanda)
		r.Get("/{id}", h.handleGetComanda)
		r.Post("/{id}/itens", h.handleAddItem)
		r.Delete("/{id}/itens/{itemID}", h.handleRemoveItem)
		r.Post("/{id}/fechar", h.handleCloseComanda)
		r.Post("/{id}/cancelar", h.handleCancelComanda)
	})
	r.Get("/pos/resumo", h.handleDailySummary)

	r.Route("/professores", func(r chi.Router) {
		r.Get("/", h.handleListProfessors)
		r.Post("/", h.handleCreateProfessor)
	})
	r.Route("/defesas", func(r chi.Router) {
		r.Get("/", h.handleListDefenses)
		r.Post("/", h.handleScheduleDefense)
		r.Get("/{id}", h.handleGetDefense)
		r.Post("/{id}/confirmar", h.handleConfirmDefense)
		r.Post("/{id}/cancelar", h.handleCancelDefense)
	})
}

// requestLogger logs each request with zap once it completes
func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		h.logger.Debug("HTTP request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Database: "up"}
	if h.db == nil {
		resp.Database = "unconfigured"
	} else {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			// reads still work from the local mirror
			h.logger.Warn("Database ping failed", zap.Error(err))
			resp.Database = "down"
		}
	}
	respondWithJSON(w, http.StatusOK, resp)
}

type cpfResponse struct {
	Valid      bool   `json:"valid"`
	Normalized string `json:"normalized"`
	Formatted  string `json:"formatted,omitempty"`
}

func (h *Handler) handleCPF(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "cpf")
	resp := cpfResponse{
		Valid:      cpf.Validate(raw),
		Normalized: cpf.Normalize(raw),
	}
	if formatted, err := cpf.Format(raw); err == nil {
		resp.Formatted = formatted
	}
	respondWithJSON(w, http.StatusOK, resp)
}
