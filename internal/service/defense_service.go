package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/bizsuite/internal/cpf"
	"github.com/Freeeeeet/bizsuite/internal/events"
	"github.com/Freeeeeet/bizsuite/internal/model"
	"github.com/Freeeeeet/bizsuite/internal/repository"
	"github.com/Freeeeeet/bizsuite/internal/schedule"
	"go.uber.org/zap"
)

type ProfessorInput struct {
	Name       string
	Email      string
	CPF        string
	Department string
	External   bool
}

type DefenseInput struct {
	StudentName  string
	StudentCPF   string
	Registration string
	Program      string
	Kind         model.DefenseKind
	Title        string
	AdvisorID    int64
	MemberIDs    []int64
	StartsAt     time.Time
	Modality     model.DefenseModality
	Room         string
}

// DefenseService schedules thesis defenses and their boards
type DefenseService struct {
	professorRepo ProfessorRepo
	defenseRepo   DefenseRepo
	rules         schedule.Rules
	publisher     events.Publisher
	loc           *time.Location
	logger        *zap.Logger
	now           func() time.Time
}

func NewDefenseService(
	professorRepo ProfessorRepo,
	defenseRepo DefenseRepo,
	rules schedule.Rules,
	publisher events.Publisher,
	loc *time.Location,
	logger *zap.Logger,
) *DefenseService {
	return &DefenseService{
		professorRepo: professorRepo,
		defenseRepo:   defenseRepo,
		rules:         rules,
		publisher:     publisher,
		loc:           loc,
		logger:        logger,
		now:           time.Now,
	}
}

// CreateProfessor registers a professor who can sit on boards
func (s *DefenseService) CreateProfessor(ctx context.Context, in ProfessorInput) (*model.Professor, error) {
	f := fields{}
	if strings.TrimSpace(in.Name) == "" {
		f.add("name", "is required")
	}
	if !cpf.Validate(in.CPF) {
		f.add("cpf", "invalid CPF")
	}
	if e := strings.TrimSpace(in.Email); e != "" && !strings.Contains(e, "@") {
		f.add("email", "invalid e-mail")
	}
	if err := f.err(); err != nil {
		return nil, err
	}

	p := &model.Professor{
		Name:       strings.TrimSpace(in.Name),
		Email:      strings.TrimSpace(in.Email),
		CPF:        cpf.Normalize(in.CPF),
		Department: strings.TrimSpace(in.Department),
		External:   in.External,
		Active:     true,
	}
	if err := s.professorRepo.Create(ctx, p); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("professor with cpf %s exists: %w", cpf.Mask(p.CPF), ErrConflict)
		}
		return nil, fmt.Errorf("create professor: %w", err)
	}

	s.logger.Info("Professor created", zap.Int64("professor_id", p.ID), zap.Bool("external", p.External))
	return p, nil
}

// ListProfessors returns professors, active ones only when asked
func (s *DefenseService) ListProfessors(ctx context.Context, activeOnly bool) ([]*model.Professor, error) {
	list, err := s.professorRepo.List(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list professors: %w", err)
	}
	return list, nil
}

// Schedule validates and stores a defense request.
// Form, date/time and board problems yield a ValidationError; clashes with other defenses
// yield a ValidationError that also matches ErrConflict.
func (s *DefenseService) Schedule(ctx context.Context, in DefenseInput) (*model.Defense, error) {
	d := &model.Defense{
		StudentName:  strings.TrimSpace(in.StudentName),
		StudentCPF:   cpf.Normalize(in.StudentCPF),
		Registration: strings.TrimSpace(in.Registration),
		Program:      strings.TrimSpace(in.Program),
		Kind:         in.Kind,
		Title:        strings.TrimSpace(in.Title),
		AdvisorID:    in.AdvisorID,
		MemberIDs:    in.MemberIDs,
		StartsAt:     in.StartsAt.In(s.loc),
		Modality:     in.Modality,
		Room:         strings.TrimSpace(in.Room),
		Status:       model.DefenseSolicitada,
	}

	f := fields{}
	required := map[string]string{
		"student_name": d.StudentName,
		"registration": d.Registration,
		"program":      d.Program,
		"title":        d.Title,
	}
	for name, v := range required {
		if v == "" {
			f.add(name, "is required")
		}
	}
	if !cpf.Validate(d.StudentCPF) {
		f.add("student_cpf", "invalid CPF")
	}
	switch d.Modality {
	case model.ModalityPresencial:
		if d.Room == "" {
			f.add("room", "is required for presencial defenses")
		}
	case model.ModalityRemota:
	default:
		f.add("modality", "must be presencial or remota")
	}
	if in.StartsAt.IsZero() {
		f.add("starts_at", "is required")
	}

	for k, v := range s.rules.CheckSlot(d.Kind, d.StartsAt, s.now()) {
		f.add(k, v)
	}
	if err := f.err(); err != nil {
		return nil, err
	}

	d.Duration, _ = schedule.Duration(d.Kind)

	professors, err := s.professorRepo.GetByIDs(ctx, d.BoardIDs())
	if err != nil {
		return nil, fmt.Errorf("load board: %w", err)
	}
	if problems := schedule.CheckBoard(d, professors); len(problems) > 0 {
		return nil, &ValidationError{Fields: problems}
	}

	others, err := s.defenseRepo.ListActiveOverlapping(ctx, d.StartsAt, d.EndsAt())
	if err != nil {
		return nil, fmt.Errorf("list overlapping defenses: %w", err)
	}
	if problems := schedule.CheckConflicts(d, others); len(problems) > 0 {
		return nil, &ValidationError{Fields: problems, Err: ErrConflict}
	}

	if err := s.defenseRepo.Create(ctx, d); err != nil {
		return nil, fmt.Errorf("create defense: %w", err)
	}

	s.logger.Info("Defense scheduled",
		zap.Int64("defense_id", d.ID),
		zap.String("kind", string(d.Kind)),
		zap.Time("starts_at", d.StartsAt),
		zap.Int64s("board", d.BoardIDs()),
	)
	if err := s.publisher.Publish(ctx, events.TypeDefenseScheduled, d); err != nil {
		s.logger.Warn("Publish event failed", zap.String("type", events.TypeDefenseScheduled), zap.Error(err))
	}
	return d, nil
}

// GetDefense returns a defense with its board
func (s *DefenseService) GetDefense(ctx context.Context, id int64) (*model.Defense, error) {
	d, err := s.defenseRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get defense: %w", err)
	}
	if d == nil {
		return nil, notFound("defense", id)
	}
	return d, nil
}

// ListDefenses returns defenses starting in [from, to); zero bounds are open
func (s *DefenseService) ListDefenses(ctx context.Context, from, to time.Time, status model.DefenseStatus) ([]*model.Defense, error) {
	switch status {
	case "", model.DefenseSolicitada, model.DefenseConfirmada, model.DefenseCancelada:
	default:
		return nil, &ValidationError{Fields: map[string]string{"status": "must be solicitada, confirmada or cancelada"}}
	}
	list, err := s.defenseRepo.List(ctx, from, to, status)
	if err != nil {
		return nil, fmt.Errorf("list defenses: %w", err)
	}
	return list, nil
}

// Confirm moves a requested defense to confirmada
func (s *DefenseService) Confirm(ctx context.Context, id int64) (*model.Defense, error) {
	return s.transition(ctx, id, model.DefenseConfirmada, model.DefenseSolicitada)
}

// Cancel cancels a requested or confirmed defense
func (s *DefenseService) Cancel(ctx context.Context, id int64) (*model.Defense, error) {
	return s.transition(ctx, id, model.DefenseCancelada, model.DefenseSolicitada, model.DefenseConfirmada)
}

func (s *DefenseService) transition(ctx context.Context, id int64, to model.DefenseStatus, from ...model.DefenseStatus) (*model.Defense, error) {
	d, err := s.GetDefense(ctx, id)
	if err != nil {
		return nil, err
	}

	ok, err := s.defenseRepo.UpdateStatus(ctx, id, to, from...)
	if err != nil {
		return nil, fmt.Errorf("update defense status: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("defense %d is %s, cannot become %s: %w", id, d.Status, to, ErrInvalidState)
	}

	s.logger.Info("Defense status changed", zap.Int64("defense_id", id), zap.String("from", string(d.Status)), zap.String("to", string(to)))
	d.Status = to
	return d, nil
}
