package service

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Freeeeeet/bizsuite/internal/events"
	"github.com/Freeeeeet/bizsuite/internal/localstore"
	"github.com/Freeeeeet/bizsuite/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var errUnreachable = errors.New("connection refused")

func sampleDataset() *model.Dataset {
	return &model.Dataset{
		Categories: []*model.Category{{ID: 1, Name: "Mercado", Kind: model.KindExpense}},
		Transactions: []*model.Transaction{
			{ID: 1, Description: "Feira", Amount: dec("150.40"), Kind: model.KindExpense, CategoryID: ptr(int64(1)), Date: day(2024, 3, 4)},
			{ID: 2, Description: "Salário", Amount: dec("5000"), Kind: model.KindIncome, Date: day(2024, 3, 1)},
		},
		Payments: []*model.Payment{
			{ID: 1, Description: "Luz", Amount: dec("180"), DueDate: day(2024, 3, 10), Status: model.PaymentStatusPending},
		},
		Installments: []*model.Installment{{
			ID: 1, Description: "Notebook", TotalAmount: dec("2000"), Count: 2, FirstDueDate: day(2024, 3, 15),
			Items: []model.InstallmentItem{
				{ID: 1, InstallmentID: 1, Number: 1, DueDate: day(2024, 3, 15), Amount: dec("1000"), Status: model.PaymentStatusPending},
				{ID: 2, InstallmentID: 1, Number: 2, DueDate: day(2024, 4, 15), Amount: dec("1000"), Status: model.PaymentStatusPending},
			},
		}},
	}
}

type backupFixture struct {
	svc       *BackupService
	dataset   *memDataset
	remote    *memBackups
	local     *memBackups
	publisher *recordingPublisher
}

func newBackupFixture() *backupFixture {
	f := &backupFixture{
		dataset:   &memDataset{ds: sampleDataset()},
		remote:    newMemBackups(),
		local:     newMemBackups(),
		publisher: &recordingPublisher{},
	}
	f.svc = NewBackupService(f.dataset, f.remote, f.local, f.publisher, zap.NewNop())
	f.svc.now = fixedClock(time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC))
	return f
}

func (f *backupFixture) at(t time.Time) {
	f.svc.now = fixedClock(t)
}

func TestBackupService_Create(t *testing.T) {
	tests := []struct {
		name          string
		remoteErr     error
		localErr      error
		wantLocations []string
		wantErr       bool
	}{
		{name: "both stores", wantLocations: []string{model.BackupLocationRemote, model.BackupLocationLocal}},
		{name: "remote down", remoteErr: errUnreachable, wantLocations: []string{model.BackupLocationLocal}},
		{name: "local down", localErr: errUnreachable, wantLocations: []string{model.BackupLocationRemote}},
		{name: "both down", remoteErr: errUnreachable, localErr: errUnreachable, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newBackupFixture()
			f.remote.err = tt.remoteErr
			f.local.err = tt.localErr

			b, err := f.svc.Create(context.Background(), model.BackupReasonManual)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, errUnreachable)
				assert.Empty(t, f.publisher.types())
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantLocations, b.Locations)
			assert.Equal(t, model.BackupReasonManual, b.Reason)
			assert.Equal(t, sampleDataset().Counts(), b.Counts)
			assert.Equal(t, []string{events.TypeBackupCreated}, f.publisher.types())
		})
	}
}

func TestBackupService_LoadDatasetFallsBackToMirror(t *testing.T) {
	f := newBackupFixture()
	ctx := context.Background()

	ds, source, err := f.svc.LoadDataset(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.SourceRemote, source)
	assert.Len(t, ds.Transactions, 2)

	f.dataset.loadErr = errUnreachable
	_, _, err = f.svc.LoadDataset(ctx)
	require.Error(t, err, "no mirror yet")

	f.dataset.loadErr = nil
	require.NoError(t, f.svc.SyncMirror(ctx))

	f.dataset.loadErr = errUnreachable
	ds, source, err = f.svc.LoadDataset(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.SourceLocal, source)
	assert.Len(t, ds.Transactions, 2)

	// a backup taken while Postgres is down comes from the mirror and lands locally
	f.remote.err = errUnreachable
	b, err := f.svc.Create(ctx, model.BackupReasonAuto)
	require.NoError(t, err)
	assert.Equal(t, []string{model.BackupLocationLocal}, b.Locations)
}

func TestBackupService_ListMergesStores(t *testing.T) {
	f := newBackupFixture()
	ctx := context.Background()

	f.at(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	both, err := f.svc.Create(ctx, model.BackupReasonManual)
	require.NoError(t, err)

	f.remote.err = errUnreachable
	f.at(time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC))
	localOnly, err := f.svc.Create(ctx, model.BackupReasonAuto)
	require.NoError(t, err)
	f.remote.err = nil

	list, err := f.svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, localOnly.ID, list[0].ID)
	assert.Equal(t, []string{model.BackupLocationLocal}, list[0].Locations)
	assert.Equal(t, both.ID, list[1].ID)
	assert.Equal(t, []string{model.BackupLocationRemote, model.BackupLocationLocal}, list[1].Locations)
	assert.Nil(t, list[0].Data)

	// one store failing still lists the other
	f.local.err = errUnreachable
	list, err = f.svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	f.remote.err = errUnreachable
	_, err = f.svc.List(ctx)
	assert.Error(t, err)
}

func TestBackupService_Restore(t *testing.T) {
	f := newBackupFixture()
	ctx := context.Background()

	f.at(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	b, err := f.svc.Create(ctx, model.BackupReasonManual)
	require.NoError(t, err)

	// data changes after the backup
	f.dataset.ds = &model.Dataset{Categories: []*model.Category{{ID: 9, Name: "Outro", Kind: model.KindIncome}}}

	f.at(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC))
	res, err := f.svc.Restore(ctx, b.ID)
	require.NoError(t, err)

	assert.Equal(t, b.ID, res.Restored.ID)
	assert.Equal(t, model.BackupLocationRemote, res.Location)
	assert.Equal(t, sampleDataset().Counts(), res.Counts)

	require.NotNil(t, res.PreRestore)
	assert.Equal(t, model.BackupReasonPreRestore, res.PreRestore.Reason)
	assert.Equal(t, 1, res.PreRestore.Counts.Categories)

	require.NotNil(t, f.dataset.replaced)
	assert.Len(t, f.dataset.replaced.Transactions, 2)
	assert.True(t, dec("150.40").Equal(f.dataset.replaced.Transactions[0].Amount))

	// the mirror follows the restored data
	mirror, _, err := f.local.LoadMirror(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleDataset().Counts(), mirror.Counts())

	_, err = f.svc.Restore(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBackupService_RestoreRejectsCorruptBackup(t *testing.T) {
	f := newBackupFixture()
	ctx := context.Background()

	b, err := f.svc.Create(ctx, model.BackupReasonManual)
	require.NoError(t, err)

	f.remote.backups[b.ID].Data = bytes.Replace(f.remote.backups[b.ID].Data, []byte("Feira"), []byte("Fe1ra"), 1)

	_, err = f.svc.Restore(ctx, b.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Nil(t, f.dataset.replaced)
}

func TestBackupService_RestoreAbortsWithoutPreRestoreBackup(t *testing.T) {
	f := newBackupFixture()
	ctx := context.Background()

	b, err := f.svc.Create(ctx, model.BackupReasonManual)
	require.NoError(t, err)

	f.at(time.Date(2024, 3, 21, 0, 0, 0, 0, time.UTC))
	f.dataset.loadErr = errUnreachable

	_, err = f.svc.Restore(ctx, b.ID)
	require.Error(t, err)
	assert.Nil(t, f.dataset.replaced)
}

func TestBackupService_RestoreLatest(t *testing.T) {
	f := newBackupFixture()
	ctx := context.Background()

	_, err := f.svc.RestoreLatest(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	f.at(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	_, err = f.svc.Create(ctx, model.BackupReasonManual)
	require.NoError(t, err)

	f.remote.err = errUnreachable
	f.at(time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC))
	newest, err := f.svc.Create(ctx, model.BackupReasonManual)
	require.NoError(t, err)
	f.remote.err = nil

	f.at(time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC))
	corrupt, err := f.svc.Create(ctx, model.BackupReasonManual)
	require.NoError(t, err)
	f.remote.backups[corrupt.ID].Checksum = "deadbeef"
	f.local.backups[corrupt.ID].Checksum = "deadbeef"

	f.at(time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC))
	res, err := f.svc.RestoreLatest(ctx)
	require.NoError(t, err)
	assert.Equal(t, newest.ID, res.Restored.ID)
	assert.Equal(t, model.BackupLocationLocal, res.Location)
}

func TestBackupService_ExportImport(t *testing.T) {
	src := newBackupFixture()
	ctx := context.Background()

	b, err := src.svc.Create(ctx, model.BackupReasonManual)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, src.svc.Export(ctx, b.ID, &buf))
	assert.Contains(t, buf.String(), b.Checksum)

	dst := newBackupFixture()
	imported, err := dst.svc.Import(ctx, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, b.ID, imported.ID)
	assert.Equal(t, model.BackupReasonImport, imported.Reason)
	assert.Equal(t, b.Checksum, imported.Checksum)
	assert.Equal(t, b.Counts, imported.Counts)
	assert.Equal(t, []string{model.BackupLocationRemote, model.BackupLocationLocal}, imported.Locations)

	// importing the same file twice conflicts
	_, err = dst.svc.Import(ctx, bytes.NewReader(buf.Bytes()))
	assert.ErrorIs(t, err, ErrConflict)

	tampered := strings.Replace(buf.String(), b.Checksum, strings.Repeat("0", len(b.Checksum)), 1)
	_, err = dst.svc.Import(ctx, strings.NewReader(tampered))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "file")

	_, err = dst.svc.Import(ctx, strings.NewReader("not json"))
	require.ErrorAs(t, err, &verr)
}

func TestBackupService_ImportTwiceWithSQLiteStore(t *testing.T) {
	ctx := context.Background()
	src := newBackupFixture()
	b, err := src.svc.Create(ctx, model.BackupReasonManual)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, src.svc.Export(ctx, b.ID, &buf))

	local, err := localstore.Open(filepath.Join(t.TempDir(), "bizsuite.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { local.Close() })

	publisher := &recordingPublisher{}
	svc := NewBackupService(&memDataset{ds: sampleDataset()}, newMemBackups(), local, publisher, zap.NewNop())

	imported, err := svc.Import(ctx, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, []string{model.BackupLocationRemote, model.BackupLocationLocal}, imported.Locations)

	_, err = svc.Import(ctx, bytes.NewReader(buf.Bytes()))
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, []string{events.TypeBackupCreated}, publisher.types())
}

func TestBackupService_ImportKnownOnlyLocally(t *testing.T) {
	ctx := context.Background()
	src := newBackupFixture()
	b, err := src.svc.Create(ctx, model.BackupReasonManual)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, src.svc.Export(ctx, b.ID, &buf))

	dst := newBackupFixture()
	dst.remote.err = errUnreachable
	_, err = dst.svc.Import(ctx, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	// remote still down, local already has it
	_, err = dst.svc.Import(ctx, bytes.NewReader(buf.Bytes()))
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, []string{events.TypeBackupCreated}, dst.publisher.types())
}

func TestBackupService_Prune(t *testing.T) {
	f := newBackupFixture()
	ctx := context.Background()

	for d := 1; d <= 3; d++ {
		f.at(time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC))
		_, err := f.svc.Create(ctx, model.BackupReasonAuto)
		require.NoError(t, err)
	}

	_, err := f.svc.Prune(ctx, 0)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	res, err := f.svc.Prune(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, PruneResult{Remote: 1, Local: 1}, *res)

	list, err := f.svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
