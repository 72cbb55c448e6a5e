package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Freeeeeet/bizsuite/internal/model"
	"github.com/Freeeeeet/bizsuite/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// In-memory stand-ins for the pgx repositories and the local store.

type memCategories struct {
	items  map[int64]*model.Category
	nextID int64
}

func newMemCategories(cs ...*model.Category) *memCategories {
	m := &memCategories{items: map[int64]*model.Category{}}
	for _, c := range cs {
		m.items[c.ID] = c
		if c.ID > m.nextID {
			m.nextID = c.ID
		}
	}
	return m
}

func (m *memCategories) Create(_ context.Context, c *model.Category) error {
	for _, existing := range m.items {
		if existing.Name == c.Name && existing.Kind == c.Kind {
			return repository.ErrDuplicate
		}
	}
	m.nextID++
	c.ID = m.nextID
	m.items[c.ID] = c
	return nil
}

func (m *memCategories) GetByID(_ context.Context, id int64) (*model.Category, error) {
	return m.items[id], nil
}

func (m *memCategories) List(context.Context) ([]*model.Category, error) {
	var out []*model.Category
	for _, c := range m.items {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memCategories) Delete(_ context.Context, id int64) (bool, error) {
	_, ok := m.items[id]
	delete(m.items, id)
	return ok, nil
}

type memTransactions struct {
	items  map[int64]*model.Transaction
	nextID int64
}

func newMemTransactions() *memTransactions {
	return &memTransactions{items: map[int64]*model.Transaction{}}
}

func (m *memTransactions) Create(_ context.Context, t *model.Transaction) error {
	m.nextID++
	t.ID = m.nextID
	m.items[t.ID] = t
	return nil
}

func (m *memTransactions) GetByID(_ context.Context, id int64) (*model.Transaction, error) {
	t, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (m *memTransactions) List(_ context.Context, f repository.TransactionFilter) ([]*model.Transaction, error) {
	var out []*model.Transaction
	for _, t := range m.items {
		if f.Kind != "" && t.Kind != f.Kind {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (m *memTransactions) Update(_ context.Context, t *model.Transaction) (bool, error) {
	if _, ok := m.items[t.ID]; !ok {
		return false, nil
	}
	cp := *t
	m.items[t.ID] = &cp
	return true, nil
}

func (m *memTransactions) Delete(_ context.Context, id int64) (bool, error) {
	_, ok := m.items[id]
	delete(m.items, id)
	return ok, nil
}

type memPayments struct {
	items  map[int64]*model.Payment
	nextID int64
}

func newMemPayments(ps ...*model.Payment) *memPayments {
	m := &memPayments{items: map[int64]*model.Payment{}}
	for _, p := range ps {
		m.items[p.ID] = p
		if p.ID > m.nextID {
			m.nextID = p.ID
		}
	}
	return m
}

func (m *memPayments) Create(_ context.Context, p *model.Payment) error {
	m.nextID++
	p.ID = m.nextID
	m.items[p.ID] = p
	return nil
}

func (m *memPayments) GetByID(_ context.Context, id int64) (*model.Payment, error) {
	p, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *memPayments) List(_ context.Context, status model.PaymentStatus) ([]*model.Payment, error) {
	var out []*model.Payment
	for _, p := range m.items {
		if status == "" || p.Status == status {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memPayments) SetStatus(_ context.Context, id int64, status model.PaymentStatus, paidAt *time.Time) (bool, error) {
	p, ok := m.items[id]
	if !ok || p.Status == status {
		return false, nil
	}
	p.Status = status
	p.PaidAt = paidAt
	return true, nil
}

func (m *memPayments) Delete(_ context.Context, id int64) (bool, error) {
	_, ok := m.items[id]
	delete(m.items, id)
	return ok, nil
}

type memInstallments struct {
	items      map[int64]*model.Installment
	nextID     int64
	nextItemID int64
}

func newMemInstallments() *memInstallments {
	return &memInstallments{items: map[int64]*model.Installment{}}
}

func (m *memInstallments) CreateWithItems(_ context.Context, inst *model.Installment) error {
	m.nextID++
	inst.ID = m.nextID
	for i := range inst.Items {
		m.nextItemID++
		inst.Items[i].ID = m.nextItemID
		inst.Items[i].InstallmentID = inst.ID
	}
	m.items[inst.ID] = inst
	return nil
}

func (m *memInstallments) GetByID(_ context.Context, id int64) (*model.Installment, error) {
	return m.items[id], nil
}

func (m *memInstallments) List(context.Context) ([]*model.Installment, error) {
	var out []*model.Installment
	for _, inst := range m.items {
		out = append(out, inst)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memInstallments) Delete(_ context.Context, id int64) (bool, error) {
	_, ok := m.items[id]
	delete(m.items, id)
	return ok, nil
}

func (m *memInstallments) findItem(itemID int64) *model.InstallmentItem {
	for _, inst := range m.items {
		for i := range inst.Items {
			if inst.Items[i].ID == itemID {
				return &inst.Items[i]
			}
		}
	}
	return nil
}

func (m *memInstallments) GetItem(_ context.Context, itemID int64) (*model.InstallmentItem, error) {
	it := m.findItem(itemID)
	if it == nil {
		return nil, nil
	}
	cp := *it
	return &cp, nil
}

func (m *memInstallments) SetItemStatus(_ context.Context, itemID int64, status model.PaymentStatus, paidAt *time.Time) (bool, error) {
	it := m.findItem(itemID)
	if it == nil || it.Status == status {
		return false, nil
	}
	it.Status = status
	it.PaidAt = paidAt
	return true, nil
}

type memReports struct {
	stored map[string]*model.Report
	err    error
}

func newMemReports() *memReports {
	return &memReports{stored: map[string]*model.Report{}}
}

func reportKey(pt model.PeriodType, start time.Time) string {
	return string(pt) + "|" + start.UTC().Format(time.RFC3339)
}

func (m *memReports) Upsert(_ context.Context, rep *model.Report) error {
	if m.err != nil {
		return m.err
	}
	rep.ID = int64(len(m.stored) + 1)
	m.stored[reportKey(rep.PeriodType, rep.PeriodStart)] = rep
	return nil
}

func (m *memReports) Get(_ context.Context, pt model.PeriodType, start time.Time) (*model.Report, error) {
	return m.stored[reportKey(pt, start)], nil
}

func (m *memReports) List(_ context.Context, pt model.PeriodType, limit int) ([]*model.Report, error) {
	var out []*model.Report
	for _, r := range m.stored {
		if r.PeriodType == pt {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PeriodStart.After(out[j].PeriodStart) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memDataset struct {
	ds       *model.Dataset
	loadErr  error
	replaced *model.Dataset
}

func (m *memDataset) Load(context.Context) (*model.Dataset, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.ds, nil
}

func (m *memDataset) Replace(_ context.Context, ds *model.Dataset) error {
	m.replaced = ds
	m.ds = ds
	return nil
}

// memBackups backs both the remote repository and the local store in tests
type memBackups struct {
	mu      sync.Mutex
	backups map[uuid.UUID]*model.Backup
	err     error

	mirror   *model.Dataset
	mirrorAt time.Time
}

func newMemBackups() *memBackups {
	return &memBackups{backups: map[uuid.UUID]*model.Backup{}}
}

func (m *memBackups) save(b *model.Backup) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.backups[b.ID]; ok {
		return repository.ErrDuplicate
	}
	cp := *b
	cp.Locations = nil
	m.backups[b.ID] = &cp
	return nil
}

func (m *memBackups) get(id uuid.UUID) (*model.Backup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	b, ok := m.backups[id]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (m *memBackups) list() ([]*model.Backup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []*model.Backup
	for _, b := range m.backups {
		cp := *b
		cp.Data = nil
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memBackups) prune(keep int) (int, error) {
	list, err := m.list()
	if err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for i, b := range list {
		if i >= keep {
			delete(m.backups, b.ID)
			removed++
		}
	}
	return removed, nil
}

func (m *memBackups) Save(_ context.Context, b *model.Backup) error          { return m.save(b) }
func (m *memBackups) Get(_ context.Context, id uuid.UUID) (*model.Backup, error) { return m.get(id) }
func (m *memBackups) List(context.Context) ([]*model.Backup, error)          { return m.list() }
func (m *memBackups) Prune(_ context.Context, keep int) (int, error)          { return m.prune(keep) }

func (m *memBackups) SaveBackup(_ context.Context, b *model.Backup) error { return m.save(b) }
func (m *memBackups) GetBackup(_ context.Context, id uuid.UUID) (*model.Backup, error) {
	return m.get(id)
}
func (m *memBackups) ListBackups(context.Context) ([]*model.Backup, error)   { return m.list() }
func (m *memBackups) PruneBackups(_ context.Context, keep int) (int, error) { return m.prune(keep) }

func (m *memBackups) SaveMirror(_ context.Context, ds *model.Dataset, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.mirror = ds
	m.mirrorAt = at
	return nil
}

func (m *memBackups) LoadMirror(context.Context) (*model.Dataset, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mirror, m.mirrorAt, nil
}

type memFiliados struct {
	items  map[int64]*model.Filiado
	nextID int64
}

func newMemFiliados(fs ...*model.Filiado) *memFiliados {
	m := &memFiliados{items: map[int64]*model.Filiado{}}
	for _, f := range fs {
		m.items[f.ID] = f
		if f.ID > m.nextID {
			m.nextID = f.ID
		}
	}
	return m
}

func (m *memFiliados) Create(_ context.Context, f *model.Filiado) error {
	for _, existing := range m.items {
		if existing.CPF == f.CPF {
			return repository.ErrDuplicate
		}
	}
	m.nextID++
	f.ID = m.nextID
	m.items[f.ID] = f
	return nil
}

func (m *memFiliados) GetByID(_ context.Context, id int64) (*model.Filiado, error) {
	return m.items[id], nil
}

func (m *memFiliados) GetByCPF(_ context.Context, c string) (*model.Filiado, error) {
	for _, f := range m.items {
		if f.CPF == c {
			return f, nil
		}
	}
	return nil, nil
}

func (m *memFiliados) List(_ context.Context, activeOnly bool) ([]*model.Filiado, error) {
	var out []*model.Filiado
	for _, f := range m.items {
		if !activeOnly || f.Active {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *memFiliados) Update(_ context.Context, f *model.Filiado) (bool, error) {
	if _, ok := m.items[f.ID]; !ok {
		return false, nil
	}
	m.items[f.ID] = f
	return true, nil
}

type memProdutos struct {
	items  map[int64]*model.Produto
	nextID int64
}

func newMemProdutos(ps ...*model.Produto) *memProdutos {
	m := &memProdutos{items: map[int64]*model.Produto{}}
	for _, p := range ps {
		m.items[p.ID] = p
		if p.ID > m.nextID {
			m.nextID = p.ID
		}
	}
	return m
}

func (m *memProdutos) Create(_ context.Context, p *model.Produto) error {
	m.nextID++
	p.ID = m.nextID
	m.items[p.ID] = p
	return nil
}

func (m *memProdutos) GetByID(_ context.Context, id int64) (*model.Produto, error) {
	p, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *memProdutos) List(_ context.Context, activeOnly bool) ([]*model.Produto, error) {
	var out []*model.Produto
	for _, p := range m.items {
		if !activeOnly || p.Active {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memProdutos) Update(_ context.Context, p *model.Produto) (bool, error) {
	if _, ok := m.items[p.ID]; !ok {
		return false, nil
	}
	m.items[p.ID] = p
	return true, nil
}

// memComandas mimics the transactional comanda repository, stock included
type memComandas struct {
	produtos   *memProdutos
	items      map[int64]*model.Comanda
	nextID     int64
	nextItemID int64
}

func newMemComandas(produtos *memProdutos) *memComandas {
	return &memComandas{produtos: produtos, items: map[int64]*model.Comanda{}}
}

func (m *memComandas) Open(_ context.Context, c *model.Comanda) error {
	if c.FiliadoID != nil {
		for _, existing := range m.items {
			if existing.IsOpen() && existing.FiliadoID != nil && *existing.FiliadoID == *c.FiliadoID {
				return repository.ErrDuplicate
			}
		}
	}
	m.nextID++
	c.ID = m.nextID
	c.Status = model.ComandaAberta
	c.OpenedAt = time.Now()
	c.Discount = decimal.Zero
	c.Total = decimal.Zero
	m.items[c.ID] = c
	return nil
}

func (m *memComandas) GetByID(_ context.Context, id int64) (*model.Comanda, error) {
	c, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	cp.Items = append([]model.ItemComanda(nil), c.Items...)
	return &cp, nil
}

func (m *memComandas) List(_ context.Context, status model.ComandaStatus) ([]*model.Comanda, error) {
	var out []*model.Comanda
	for _, c := range m.items {
		if status == "" || c.Status == status {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memComandas) ListClosedBetween(_ context.Context, from, to time.Time) ([]*model.Comanda, error) {
	var out []*model.Comanda
	for _, c := range m.items {
		if c.Status == model.ComandaFechada && c.ClosedAt != nil && !c.ClosedAt.Before(from) && c.ClosedAt.Before(to) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memComandas) AddItem(_ context.Context, comandaID, produtoID int64, quantity int) (*model.ItemComanda, error) {
	c := m.items[comandaID]
	if !c.IsOpen() {
		return nil, repository.ErrComandaNotOpen
	}
	p := m.produtos.items[produtoID]
	if p.TrackStock {
		if p.Stock < quantity {
			return nil, repository.ErrInsufficientStock
		}
		p.Stock -= quantity
	}
	m.nextItemID++
	item := model.ItemComanda{
		ID:          m.nextItemID,
		ComandaID:   comandaID,
		ProdutoID:   produtoID,
		ProdutoName: p.Name,
		Category:    p.Category,
		Quantity:    quantity,
		UnitPrice:   p.Price,
		Subtotal:    p.Price.Mul(decimal.NewFromInt(int64(quantity))),
	}
	c.Items = append(c.Items, item)
	return &item, nil
}

func (m *memComandas) RemoveItem(_ context.Context, comandaID, itemID int64) (bool, error) {
	c := m.items[comandaID]
	if !c.IsOpen() {
		return false, repository.ErrComandaNotOpen
	}
	for i, it := range c.Items {
		if it.ID == itemID {
			if p := m.produtos.items[it.ProdutoID]; p.TrackStock {
				p.Stock += it.Quantity
			}
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *memComandas) Close(_ context.Context, id int64, method model.PaymentMethod, discount decimal.Decimal, at time.Time) error {
	c := m.items[id]
	if !c.IsOpen() {
		return repository.ErrComandaNotOpen
	}
	if discount.GreaterThan(c.Subtotal()) {
		return repository.ErrDiscountTooHigh
	}
	c.Status = model.ComandaFechada
	c.ClosedAt = &at
	c.PaymentMethod = &method
	c.Discount = discount
	c.Total = c.Subtotal().Sub(discount)
	return nil
}

func (m *memComandas) Cancel(_ context.Context, id int64, at time.Time) error {
	c := m.items[id]
	if !c.IsOpen() {
		return repository.ErrComandaNotOpen
	}
	for _, it := range c.Items {
		if p := m.produtos.items[it.ProdutoID]; p.TrackStock {
			p.Stock += it.Quantity
		}
	}
	c.Status = model.ComandaCancelada
	c.ClosedAt = &at
	return nil
}

type memProfessors struct {
	items  map[int64]*model.Professor
	nextID int64
}

func newMemProfessors(ps ...*model.Professor) *memProfessors {
	m := &memProfessors{items: map[int64]*model.Professor{}}
	for _, p := range ps {
		m.items[p.ID] = p
		if p.ID > m.nextID {
			m.nextID = p.ID
		}
	}
	return m
}

func (m *memProfessors) Create(_ context.Context, p *model.Professor) error {
	for _, existing := range m.items {
		if existing.CPF == p.CPF {
			return repository.ErrDuplicate
		}
	}
	m.nextID++
	p.ID = m.nextID
	m.items[p.ID] = p
	return nil
}

func (m *memProfessors) GetByIDs(_ context.Context, ids []int64) (map[int64]*model.Professor, error) {
	out := map[int64]*model.Professor{}
	for _, id := range ids {
		if p, ok := m.items[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (m *memProfessors) List(_ context.Context, activeOnly bool) ([]*model.Professor, error) {
	var out []*model.Professor
	for _, p := range m.items {
		if !activeOnly || p.Active {
			out = append(out, p)
		}
	}
	return out, nil
}

type memDefenses struct {
	items  map[int64]*model.Defense
	nextID int64
}

func newMemDefenses(ds ...*model.Defense) *memDefenses {
	m := &memDefenses{items: map[int64]*model.Defense{}}
	for _, d := range ds {
		m.items[d.ID] = d
		if d.ID > m.nextID {
			m.nextID = d.ID
		}
	}
	return m
}

func (m *memDefenses) Create(_ context.Context, d *model.Defense) error {
	m.nextID++
	d.ID = m.nextID
	m.items[d.ID] = d
	return nil
}

func (m *memDefenses) GetByID(_ context.Context, id int64) (*model.Defense, error) {
	d, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (m *memDefenses) List(_ context.Context, from, to time.Time, status model.DefenseStatus) ([]*model.Defense, error) {
	var out []*model.Defense
	for _, d := range m.items {
		if status != "" && d.Status != status {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (m *memDefenses) ListActiveOverlapping(_ context.Context, from, to time.Time) ([]*model.Defense, error) {
	var out []*model.Defense
	for _, d := range m.items {
		if d.IsActive() && d.StartsAt.Before(to) && d.EndsAt().After(from) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memDefenses) UpdateStatus(_ context.Context, id int64, status model.DefenseStatus, from ...model.DefenseStatus) (bool, error) {
	d, ok := m.items[id]
	if !ok {
		return false, nil
	}
	for _, s := range from {
		if d.Status == s {
			d.Status = status
			return true, nil
		}
	}
	return false, nil
}

type publishedEvent struct {
	Type    string
	Payload any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(_ context.Context, eventType string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Type: eventType, Payload: payload})
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
