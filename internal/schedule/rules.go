package schedule

import (
	"fmt"
	"time"

	"github.com/Freeeeeet/bizsuite/internal/model"
)

// Rules holds the date/time constraints for defenses. Times of day are minutes after midnight.
type Rules struct {
	MinLeadDays   int
	EarliestStart int
	LatestStart   int
	LatestEnd     int
	SlotMinutes   int
}

// DefaultRules returns the rules used by the secretariat
func DefaultRules() Rules {
	return Rules{
		MinLeadDays:   7,
		EarliestStart: 8 * 60,
		LatestStart:   21 * 60,
		LatestEnd:     22 * 60,
		SlotMinutes:   30,
	}
}

// Duration returns the length of a defense of the given kind in minutes
func Duration(kind model.DefenseKind) (int, error) {
	switch kind {
	case model.DefenseTCC:
		return 60, nil
	case model.DefenseMestrado:
		return 120, nil
	case model.DefenseDoutorado:
		return 180, nil
	default:
		return 0, fmt.Errorf("unknown defense kind %q", kind)
	}
}

// MinBoardSize returns the minimum number of professors (advisor included)
func MinBoardSize(kind model.DefenseKind) int {
	if kind == model.DefenseDoutorado {
		return 5
	}
	return 3
}

// RequiresExternal reports whether the board needs a member from outside the program
func RequiresExternal(kind model.DefenseKind) bool {
	return kind == model.DefenseMestrado || kind == model.DefenseDoutorado
}

// Problems maps a field name to what is wrong with it
type Problems map[string]string

// CheckSlot validates the date and time of a defense starting at startsAt.
// now is the moment of the request; both are compared in startsAt's location.
func (r Rules) CheckSlot(kind model.DefenseKind, startsAt, now time.Time) Problems {
	problems := Problems{}

	duration, err := Duration(kind)
	if err != nil {
		problems["kind"] = err.Error()
		return problems
	}

	loc := startsAt.Location()
	now = now.In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	day := time.Date(startsAt.Year(), startsAt.Month(), startsAt.Day(), 0, 0, 0, 0, loc)

	if day.Before(today.AddDate(0, 0, r.MinLeadDays)) {
		problems["date"] = fmt.Sprintf("must be at least %d days from today", r.MinLeadDays)
	}

	if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
		problems["date"] = "defenses happen on weekdays only"
	}

	minute := startsAt.Hour()*60 + startsAt.Minute()
	switch {
	case startsAt.Second() != 0 || minute%r.SlotMinutes != 0:
		problems["start_time"] = fmt.Sprintf("must be on a %d minute grid", r.SlotMinutes)
	case minute < r.EarliestStart || minute > r.LatestStart:
		problems["start_time"] = fmt.Sprintf("must be between %s and %s", clock(r.EarliestStart), clock(r.LatestStart))
	case minute+duration > r.LatestEnd:
		problems["start_time"] = fmt.Sprintf("a %d minute defense must end by %s", duration, clock(r.LatestEnd))
	}

	return problems
}

// CheckBoard validates the composition of the banca. professors must contain every
// referenced id that exists.
func CheckBoard(d *model.Defense, professors map[int64]*model.Professor) Problems {
	problems := Problems{}

	advisor, ok := professors[d.AdvisorID]
	switch {
	case !ok:
		problems["advisor_id"] = fmt.Sprintf("professor %d not found", d.AdvisorID)
	case !advisor.Active:
		problems["advisor_id"] = fmt.Sprintf("professor %d is inactive", d.AdvisorID)
	}

	seen := map[int64]bool{}
	hasExternal := false
	for _, id := range d.MemberIDs {
		if id == d.AdvisorID {
			problems["member_ids"] = "the advisor cannot also be a member"
			continue
		}
		if seen[id] {
			problems["member_ids"] = fmt.Sprintf("professor %d listed twice", id)
			continue
		}
		seen[id] = true

		p, ok := professors[id]
		if !ok {
			problems["member_ids"] = fmt.Sprintf("professor %d not found", id)
			continue
		}
		if !p.Active {
			problems["member_ids"] = fmt.Sprintf("professor %d is inactive", id)
			continue
		}
		if p.External {
			hasExternal = true
		}
	}

	if size := len(seen) + 1; size < MinBoardSize(d.Kind) {
		if _, exists := problems["member_ids"]; !exists {
			problems["member_ids"] = fmt.Sprintf("a %s board needs at least %d professors, got %d", d.Kind, MinBoardSize(d.Kind), size)
		}
	}

	if RequiresExternal(d.Kind) && !hasExternal {
		if _, exists := problems["member_ids"]; !exists {
			problems["member_ids"] = fmt.Sprintf("a %s board needs an external member", d.Kind)
		}
	}

	return problems
}

// Overlaps reports whether two defenses share any minute
func Overlaps(a, b *model.Defense) bool {
	return a.StartsAt.Before(b.EndsAt()) && b.StartsAt.Before(a.EndsAt())
}

// CheckConflicts compares d against other active defenses of the same day.
func CheckConflicts(d *model.Defense, others []*model.Defense) Problems {
	problems := Problems{}

	board := map[int64]bool{}
	for _, id := range d.BoardIDs() {
		board[id] = true
	}

	for _, o := range others {
		if o.ID == d.ID || !o.IsActive() || !Overlaps(d, o) {
			continue
		}
		for _, id := range o.BoardIDs() {
			if board[id] {
				problems["board"] = fmt.Sprintf("professor %d is already in defense %d at that time", id, o.ID)
				break
			}
		}
		if d.Modality == model.ModalityPresencial && o.Modality == model.ModalityPresencial && d.Room != "" && d.Room == o.Room {
			problems["room"] = fmt.Sprintf("room %s is taken by defense %d", d.Room, o.ID)
		}
	}

	return problems
}

func clock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
