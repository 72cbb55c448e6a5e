package backup

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Freeeeeet/bizsuite/internal/model"
	"github.com/google/uuid"
)

// Version of the snapshot format written by Encode
const Version = 1

var (
	ErrChecksumMismatch   = errors.New("backup checksum mismatch")
	ErrUnsupportedVersion = errors.New("unsupported snapshot version")
	ErrCountsMismatch     = errors.New("backup counts do not match its data")
	ErrNoCandidates       = errors.New("no valid backup available")
)

// Snapshot is the serialized form of a finance dataset.
type Snapshot struct {
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	model.Dataset
}

// File is the export format: backup metadata plus the snapshot itself.
type File struct {
	ID        uuid.UUID          `json:"id"`
	CreatedAt time.Time          `json:"created_at"`
	Reason    model.BackupReason `json:"reason"`
	Checksum  string             `json:"checksum"`
	Snapshot  json.RawMessage    `json:"snapshot"`
}

// timePrecision is the resolution of Postgres timestamptz. Both stores keep
// CreatedAt at this precision so copies of one backup compare equal.
const timePrecision = time.Microsecond

// New builds a backup from a dataset. The dataset is copied into a snapshot, sorted by id
// so the same data always produces the same checksum.
func New(ds *model.Dataset, reason model.BackupReason, now time.Time) (*model.Backup, error) {
	snap := Snapshot{
		Version:   Version,
		CreatedAt: now.UTC().Truncate(timePrecision),
		Dataset:   sorted(ds),
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}

	return &model.Backup{
		ID:        uuid.New(),
		CreatedAt: snap.CreatedAt,
		Reason:    reason,
		Checksum:  Checksum(data),
		Size:      len(data),
		Counts:    snap.Dataset.Counts(),
		Data:      data,
	}, nil
}

// Checksum returns the hex SHA-256 of data.
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Decode parses the snapshot carried by b without verifying it.
func Decode(b *model.Backup) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(b.Data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

// Verify checks the checksum, the version and the declared counts, and returns the
// decoded snapshot.
func Verify(b *model.Backup) (*Snapshot, error) {
	if Checksum(b.Data) != b.Checksum {
		return nil, ErrChecksumMismatch
	}

	snap, err := Decode(b)
	if err != nil {
		return nil, err
	}

	if snap.Version < 1 || snap.Version > Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, snap.Version)
	}

	if snap.Dataset.Counts() != b.Counts {
		return nil, ErrCountsMismatch
	}

	return snap, nil
}

// Candidate is a backup found in one of the stores.
type Candidate struct {
	Backup   *model.Backup
	Location string
}

// SelectLatest picks the newest backup that passes Verify. On equal timestamps the remote
// copy wins.
func SelectLatest(candidates []Candidate) (*Candidate, error) {
	var best *Candidate
	for i := range candidates {
		c := &candidates[i]
		if c.Backup == nil {
			continue
		}
		if _, err := Verify(c.Backup); err != nil {
			continue
		}
		if best == nil || newer(c, best) {
			best = c
		}
	}

	if best == nil {
		return nil, ErrNoCandidates
	}
	return best, nil
}

func newer(a, b *Candidate) bool {
	if !a.Backup.CreatedAt.Equal(b.Backup.CreatedAt) {
		return a.Backup.CreatedAt.After(b.Backup.CreatedAt)
	}
	return a.Location == model.BackupLocationRemote && b.Location != model.BackupLocationRemote
}

// ToFile wraps a backup in the export format.
func ToFile(b *model.Backup) *File {
	return &File{
		ID:        b.ID,
		CreatedAt: b.CreatedAt,
		Reason:    b.Reason,
		Checksum:  b.Checksum,
		Snapshot:  json.RawMessage(b.Data),
	}
}

// FromFile converts an export file back to a backup and verifies it.
// The snapshot is compacted first since exports may be indented.
func FromFile(f *File) (*model.Backup, error) {
	var data bytes.Buffer
	if err := json.Compact(&data, f.Snapshot); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	b := &model.Backup{
		ID:        f.ID,
		CreatedAt: f.CreatedAt.UTC().Truncate(timePrecision),
		Reason:    f.Reason,
		Checksum:  f.Checksum,
		Size:      data.Len(),
		Data:      data.Bytes(),
	}

	snap, err := Decode(b)
	if err != nil {
		return nil, err
	}
	b.Counts = snap.Dataset.Counts()

	if _, err := Verify(b); err != nil {
		return nil, err
	}
	return b, nil
}

func sorted(ds *model.Dataset) model.Dataset {
	out := model.Dataset{
		Categories:   append([]*model.Category{}, ds.Categories...),
		Transactions: append([]*model.Transaction{}, ds.Transactions...),
		Payments:     append([]*model.Payment{}, ds.Payments...),
		Installments: append([]*model.Installment{}, ds.Installments...),
	}
	sort.Slice(out.Categories, func(i, j int) bool { return out.Categories[i].ID < out.Categories[j].ID })
	sort.Slice(out.Transactions, func(i, j int) bool { return out.Transactions[i].ID < out.Transactions[j].ID })
	sort.Slice(out.Payments, func(i, j int) bool { return out.Payments[i].ID < out.Payments[j].ID })
	sort.Slice(out.Installments, func(i, j int) bool { return out.Installments[i].ID < out.Installments[j].ID })
	return out
}
