package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Freeeeeet/bizsuite/internal/cpf"
	"github.com/Freeeeeet/bizsuite/internal/events"
	"github.com/Freeeeeet/bizsuite/internal/model"
	"github.com/Freeeeeet/bizsuite/internal/money"
	"github.com/Freeeeeet/bizsuite/internal/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type FiliadoInput struct {
	Name   string
	CPF    string
	CR     string
	Phone  string
	Email  string
	Active bool
}

type ProdutoInput struct {
	Name       string
	Category   model.ProdutoCategory
	Price      decimal.Decimal
	TrackStock bool
	Stock      int
	Active     bool
}

// PosService runs the point of sale of the shooting range
type PosService struct {
	filiadoRepo FiliadoRepo
	produtoRepo ProdutoRepo
	comandaRepo ComandaRepo
	publisher   events.Publisher
	loc         *time.Location
	logger      *zap.Logger
	now         func() time.Time
}

func NewPosService(
	filiadoRepo FiliadoRepo,
	produtoRepo ProdutoRepo,
	comandaRepo ComandaRepo,
	publisher events.Publisher,
	loc *time.Location,
	logger *zap.Logger,
) *PosService {
	return &PosService{
		filiadoRepo: filiadoRepo,
		produtoRepo: produtoRepo,
		comandaRepo: comandaRepo,
		publisher:   publisher,
		loc:         loc,
		logger:      logger,
		now:         time.Now,
	}
}

// CreateFiliado registers a club member; the CPF must be valid and unused
func (s *PosService) CreateFiliado(ctx context.Context, in FiliadoInput) (*model.Filiado, error) {
	f := validateFiliado(in)
	if err := f.err(); err != nil {
		return nil, err
	}

	fl := &model.Filiado{
		Name:   strings.TrimSpace(in.Name),
		CPF:    cpf.Normalize(in.CPF),
		CR:     strings.TrimSpace(in.CR),
		Phone:  strings.TrimSpace(in.Phone),
		Email:  strings.TrimSpace(in.Email),
		Active: in.Active,
	}
	if err := s.filiadoRepo.Create(ctx, fl); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("cpf %s already registered: %w", cpf.Mask(fl.CPF), ErrConflict)
		}
		return nil, fmt.Errorf("create filiado: %w", err)
	}

	s.logger.Info("Filiado created", zap.Int64("filiado_id", fl.ID), zap.String("cpf", cpf.Mask(fl.CPF)))
	return fl, nil
}

// GetFiliado returns a member
func (s *PosService) GetFiliado(ctx context.Context, id int64) (*model.Filiado, error) {
	fl, err := s.filiadoRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get filiado: %w", err)
	}
	if fl == nil {
		return nil, notFound("filiado", id)
	}
	return fl, nil
}

// FindFiliadoByCPF looks a member up by CPF in any format
func (s *PosService) FindFiliadoByCPF(ctx context.Context, raw string) (*model.Filiado, error) {
	if !cpf.Validate(raw) {
		return nil, &ValidationError{Fields: map[string]string{"cpf": "invalid CPF"}}
	}
	fl, err := s.filiadoRepo.GetByCPF(ctx, cpf.Normalize(raw))
	if err != nil {
		return nil, fmt.Errorf("get filiado by cpf: %w", err)
	}
	if fl == nil {
		return nil, notFound("filiado with cpf", cpf.Mask(raw))
	}
	return fl, nil
}

// ListFiliados returns members
func (s *PosService) ListFiliados(ctx context.Context, activeOnly bool) ([]*model.Filiado, error) {
	list, err := s.filiadoRepo.List(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list filiados: %w", err)
	}
	return list, nil
}

// UpdateFiliado rewrites a member
func (s *PosService) UpdateFiliado(ctx context.Context, id int64, in FiliadoInput) (*model.Filiado, error) {
	fl, err := s.GetFiliado(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := validateFiliado(in).err(); err != nil {
		return nil, err
	}

	fl.Name = strings.TrimSpace(in.Name)
	fl.CPF = cpf.Normalize(in.CPF)
	fl.CR = strings.TrimSpace(in.CR)
	fl.Phone = strings.TrimSpace(in.Phone)
	fl.Email = strings.TrimSpace(in.Email)
	fl.Active = in.Active

	ok, err := s.filiadoRepo.Update(ctx, fl)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("cpf %s already registered: %w", cpf.Mask(fl.CPF), ErrConflict)
		}
		return nil, fmt.Errorf("update filiado: %w", err)
	}
	if !ok {
		return nil, notFound("filiado", id)
	}
	return fl, nil
}

// CreateProduto adds a product to the catalog
func (s *PosService) CreateProduto(ctx context.Context, in ProdutoInput) (*model.Produto, error) {
	if err := validateProduto(in).err(); err != nil {
		return nil, err
	}

	p := &model.Produto{
		Name:       strings.TrimSpace(in.Name),
		Category:   in.Category,
		Price:      money.Round(in.Price),
		TrackStock: in.TrackStock,
		Stock:      in.Stock,
		Active:     in.Active,
	}
	if err := s.produtoRepo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create produto: %w", err)
	}

	s.logger.Info("Produto created", zap.Int64("produto_id", p.ID), zap.String("category", string(p.Category)))
	return p, nil
}

// ListProdutos returns the catalog
func (s *PosService) ListProdutos(ctx context.Context, activeOnly bool) ([]*model.Produto, error) {
	list, err := s.produtoRepo.List(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list produtos: %w", err)
	}
	return list, nil
}

// UpdateProduto rewrites a product, stock included
func (s *PosService) UpdateProduto(ctx context.Context, id int64, in ProdutoInput) (*model.Produto, error) {
	if err := validateProduto(in).err(); err != nil {
		return nil, err
	}

	p := &model.Produto{
		ID:         id,
		Name:       strings.TrimSpace(in.Name),
		Category:   in.Category,
		Price:      money.Round(in.Price),
		TrackStock: in.TrackStock,
		Stock:      in.Stock,
		Active:     in.Active,
	}
	ok, err := s.produtoRepo.Update(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("update produto: %w", err)
	}
	if !ok {
		return nil, notFound("produto", id)
	}
	return p, nil
}

// OpenComanda opens a tab for a member or for a walk-in customer by name.
// A member can have only one open comanda.
func (s *PosService) OpenComanda(ctx context.Context, filiadoID *int64, customerName string) (*model.Comanda, error) {
	customerName = strings.TrimSpace(customerName)
	c := &model.Comanda{CustomerName: customerName}

	if filiadoID != nil {
		fl, err := s.GetFiliado(ctx, *filiadoID)
		if err != nil {
			return nil, err
		}
		if !fl.Active {
			return nil, &ValidationError{Fields: map[string]string{"filiado_id": "filiado is inactive"}}
		}
		c.FiliadoID = &fl.ID
		if c.CustomerName == "" {
			c.CustomerName = fl.Name
		}
	} else if customerName == "" {
		return nil, &ValidationError{Fields: map[string]string{"customer_name": "required when no filiado is given"}}
	}

	if err := s.comandaRepo.Open(ctx, c); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("filiado %d already has an open comanda: %w", *filiadoID, ErrConflict)
		}
		return nil, fmt.Errorf("open comanda: %w", err)
	}

	s.logger.Info("Comanda opened", zap.Int64("comanda_id", c.ID), zap.String("customer", c.CustomerName))
	return c, nil
}

// GetComanda returns a comanda with its items
func (s *PosService) GetComanda(ctx context.Context, id int64) (*model.Comanda, error) {
	c, err := s.comandaRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get comanda: %w", err)
	}
	if c == nil {
		return nil, notFound("comanda", id)
	}
	return c, nil
}

// ListComandas returns comandas, optionally filtered by status
func (s *PosService) ListComandas(ctx context.Context, status model.ComandaStatus) ([]*model.Comanda, error) {
	switch status {
	case "", model.ComandaAberta, model.ComandaFechada, model.ComandaCancelada:
	default:
		return nil, &ValidationError{Fields: map[string]string{"status": "must be aberta, fechada or cancelada"}}
	}
	list, err := s.comandaRepo.List(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("list comandas: %w", err)
	}
	return list, nil
}

// AddItem puts quantity units of a product on an open comanda at the current price
func (s *PosService) AddItem(ctx context.Context, comandaID, produtoID int64, quantity int) (*model.Comanda, error) {
	if quantity <= 0 {
		return nil, &ValidationError{Fields: map[string]string{"quantity": "must be greater than zero"}}
	}

	if _, err := s.openComanda(ctx, comandaID); err != nil {
		return nil, err
	}

	p, err := s.produtoRepo.GetByID(ctx, produtoID)
	if err != nil {
		return nil, fmt.Errorf("get produto: %w", err)
	}
	if p == nil {
		return nil, &ValidationError{Fields: map[string]string{"produto_id": fmt.Sprintf("produto %d not found", produtoID)}}
	}
	if !p.Active {
		return nil, &ValidationError{Fields: map[string]string{"produto_id": fmt.Sprintf("produto %q is inactive", p.Name)}}
	}
	if p.TrackStock && p.Stock < quantity {
		return nil, &ValidationError{Fields: map[string]string{"quantity": fmt.Sprintf("only %d in stock", p.Stock)}}
	}

	item, err := s.comandaRepo.AddItem(ctx, comandaID, produtoID, quantity)
	if err != nil {
		return nil, s.mapComandaErr(err, comandaID, "add item")
	}

	s.logger.Info("Item added to comanda",
		zap.Int64("comanda_id", comandaID),
		zap.Int64("produto_id", produtoID),
		zap.Int("quantity", quantity),
		zap.String("subtotal", item.Subtotal.StringFixed(2)),
	)
	return s.GetComanda(ctx, comandaID)
}

// RemoveItem takes an item off an open comanda and restores its stock
func (s *PosService) RemoveItem(ctx context.Context, comandaID, itemID int64) (*model.Comanda, error) {
	if _, err := s.openComanda(ctx, comandaID); err != nil {
		return nil, err
	}

	ok, err := s.comandaRepo.RemoveItem(ctx, comandaID, itemID)
	if err != nil {
		return nil, s.mapComandaErr(err, comandaID, "remove item")
	}
	if !ok {
		return nil, notFound("comanda item", itemID)
	}

	return s.GetComanda(ctx, comandaID)
}

// CloseComanda settles an open, non-empty comanda. total = subtotal - discount.
func (s *PosService) CloseComanda(ctx context.Context, id int64, method model.PaymentMethod, discount decimal.Decimal) (*model.Comanda, error) {
	f := fields{}
	if !method.Valid() {
		f.add("payment_method", "must be dinheiro, pix, debito or credito")
	}
	discount = money.Round(discount)
	if discount.IsNegative() {
		f.add("discount", "cannot be negative")
	}
	if err := f.err(); err != nil {
		return nil, err
	}

	c, err := s.openComanda(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(c.Items) == 0 {
		return nil, fmt.Errorf("comanda %d has no items: %w", id, ErrInvalidState)
	}
	if discount.GreaterThan(c.Subtotal()) {
		return nil, &ValidationError{Fields: map[string]string{"discount": "cannot exceed the subtotal " + money.Format(c.Subtotal())}}
	}

	if err := s.comandaRepo.Close(ctx, id, method, discount, s.now()); err != nil {
		return nil, s.mapComandaErr(err, id, "close comanda")
	}

	closed, err := s.GetComanda(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Comanda closed",
		zap.Int64("comanda_id", id),
		zap.String("method", string(method)),
		zap.String("total", closed.Total.StringFixed(2)),
	)
	if err := s.publisher.Publish(ctx, events.TypeComandaClosed, closed); err != nil {
		s.logger.Warn("Publish event failed", zap.String("type", events.TypeComandaClosed), zap.Error(err))
	}
	return closed, nil
}

// CancelComanda voids an open comanda and returns its items to stock
func (s *PosService) CancelComanda(ctx context.Context, id int64) (*model.Comanda, error) {
	if _, err := s.openComanda(ctx, id); err != nil {
		return nil, err
	}

	if err := s.comandaRepo.Cancel(ctx, id, s.now()); err != nil {
		return nil, s.mapComandaErr(err, id, "cancel comanda")
	}

	s.logger.Info("Comanda cancelled", zap.Int64("comanda_id", id))
	return s.GetComanda(ctx, id)
}

// DailySummary totals the comandas closed on the calendar day of date
func (s *PosService) DailySummary(ctx context.Context, date time.Time) (*model.DailySummary, error) {
	date = date.In(s.loc)
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, s.loc)

	comandas, err := s.comandaRepo.ListClosedBetween(ctx, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("list closed comandas: %w", err)
	}
	return Summarize(day, comandas), nil
}

// Summarize aggregates closed comandas. Category totals are before discount.
func Summarize(day time.Time, comandas []*model.Comanda) *model.DailySummary {
	sum := &model.DailySummary{
		Date:            day,
		Total:           decimal.Zero,
		Discounts:       decimal.Zero,
		ByPaymentMethod: map[model.PaymentMethod]decimal.Decimal{},
		ByCategory:      map[model.ProdutoCategory]decimal.Decimal{},
	}

	for _, c := range comandas {
		if c.Status != model.ComandaFechada {
			continue
		}
		sum.Comandas++
		sum.Total = sum.Total.Add(c.Total)
		sum.Discounts = sum.Discounts.Add(c.Discount)
		if c.PaymentMethod != nil {
			sum.ByPaymentMethod[*c.PaymentMethod] = sum.ByPaymentMethod[*c.PaymentMethod].Add(c.Total)
		}
		for _, it := range c.Items {
			sum.ByCategory[it.Category] = sum.ByCategory[it.Category].Add(it.Subtotal)
		}
	}
	return sum
}

func (s *PosService) openComanda(ctx context.Context, id int64) (*model.Comanda, error) {
	c, err := s.GetComanda(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.IsOpen() {
		return nil, fmt.Errorf("comanda %d is %s: %w", id, c.Status, ErrInvalidState)
	}
	return c, nil
}

func (s *PosService) mapComandaErr(err error, id int64, op string) error {
	switch {
	case errors.Is(err, repository.ErrComandaNotOpen):
		return fmt.Errorf("comanda %d is no longer open: %w", id, ErrInvalidState)
	case errors.Is(err, repository.ErrInsufficientStock):
		return fmt.Errorf("insufficient stock: %w", ErrConflict)
	case errors.Is(err, repository.ErrDiscountTooHigh):
		return &ValidationError{Fields: map[string]string{"discount": "cannot exceed the subtotal"}}
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func validateFiliado(in FiliadoInput) fields {
	f := fields{}
	n := utf8.RuneCountInString(strings.TrimSpace(in.Name))
	if n == 0 || n > 120 {
		f.add("name", "must have 1 to 120 characters")
	}
	if !cpf.Validate(in.CPF) {
		f.add("cpf", "invalid CPF")
	}
	if e := strings.TrimSpace(in.Email); e != "" && !strings.Contains(e, "@") {
		f.add("email", "invalid e-mail")
	}
	return f
}

func validateProduto(in ProdutoInput) fields {
	f := fields{}
	n := utf8.RuneCountInString(strings.TrimSpace(in.Name))
	if n == 0 || n > 120 {
		f.add("name", "must have 1 to 120 characters")
	}
	if !in.Category.Valid() {
		f.add("category", "must be municao, arma, pista, alvo or outros")
	}
	checkAmount(f, "price", in.Price)
	if in.Stock < 0 {
		f.add("stock", "cannot be negative")
	}
	return f
}
