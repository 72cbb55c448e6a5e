package model

import (
	"time"

	"github.com/google/uuid"
)

type BackupReason string

const (
	BackupReasonManual     BackupReason = "manual"
	BackupReasonAuto       BackupReason = "auto"
	BackupReasonPreRestore BackupReason = "pre-restore"
	BackupReasonImport     BackupReason = "import"
)

const (
	BackupLocationRemote = "remote"
	BackupLocationLocal  = "local"
)

// Backup is a versioned copy of the finance dataset.
type Backup struct {
	ID        uuid.UUID    `json:"id"`
	CreatedAt time.Time    `json:"created_at"`
	Reason    BackupReason `json:"reason"`
	Checksum  string       `json:"checksum"`
	Size      int          `json:"size"`
	Counts    Counts       `json:"counts"`
	Data      []byte       `json:"-"` // encoded snapshot

	// Filled in when listing, not persisted
	Locations []string `json:"locations,omitempty"`
}
