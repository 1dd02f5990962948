package audit

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fentz26/archivist/internal/archive"
	"github.com/fentz26/archivist/internal/models"
	"github.com/fentz26/archivist/internal/oracle"
	"github.com/fentz26/archivist/internal/store"
)

// compile-time checks
var (
	_ oracle.Observer  = (*PDRWriter)(nil)
	_ archive.Recorder = (*PDRWriter)(nil)
)

func newWriter(t *testing.T) (*PDRWriter, *store.Store) {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return NewPDRWriter(s, nil), s
}

func TestHashInputs_Stable(t *testing.T) {
	a := hashInputs(map[string]string{"name": "a.txt"})
	b := hashInputs(map[string]string{"name": "a.txt"})
	c := hashInputs(map[string]string{"name": "b.txt"})
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
	assert.Equal(t, "hash_error", hashInputs(make(chan int)))
}

func TestObserveCall(t *testing.T) {
	w, s := newWriter(t)
	ctx := context.Background()

	w.ObserveCall(ctx, oracle.Call{Name: "a.txt", Backend: oracle.BackendDoubao, Response: "永久-办公室", Duration: time.Second})
	w.ObserveCall(ctx, oracle.Call{Name: "b.txt", Backend: oracle.BackendDoubao, Err: errors.New("status 500")})

	recs, err := s.ListPDR(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, models.ActionOracleCall, recs[0].Action)
	assert.Equal(t, models.OutcomeSuccess, recs[0].Outcome)
	assert.Contains(t, recs[0].Details, "永久-办公室")
	assert.Equal(t, models.OutcomeFailure, recs[1].Outcome)
	assert.Contains(t, recs[1].Details, "status 500")
}

func TestRecordEntry(t *testing.T) {
	w, s := newWriter(t)
	ctx := context.Background()

	w.RecordEntry(ctx, "b-1", &models.Entry{
		Name: "a.txt", SourcePath: "/in/a.txt", Kind: models.KindFile,
		TargetPath: "/in/永久/办公室/a.txt", State: models.StateMoved,
	})
	w.RecordEntry(ctx, "b-1", &models.Entry{
		Name: "b.txt", SourcePath: "/in/b.txt", Kind: models.KindFile,
		Failure: models.NewFailure(models.FailureFormat, "no separator"),
		State:   models.StateClassificationFailed,
	})

	recs, err := s.ListPDR(ctx, "b-1", 0)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, models.ActionEntryMove, recs[0].Action)
	assert.Equal(t, "/in/永久/办公室/a.txt", recs[0].Details)
	assert.Equal(t, models.ActionEntryClassify, recs[1].Action)
	assert.Equal(t, "format: no separator", recs[1].Details)
}

func TestRecordBatch(t *testing.T) {
	w, s := newWriter(t)
	ctx := context.Background()

	r := &models.BatchResult{
		ID: "b-9", Source: "/in",
		StartedAt: time.Now().UTC(), FinishedAt: time.Now().UTC(),
		Entries: []*models.Entry{},
	}
	require.NoError(t, w.RecordBatch(ctx, r, oracle.BackendDeepSeek))

	got, err := s.GetBatch(ctx, "b-9")
	require.NoError(t, err)
	require.NotNil(t, got)

	recs, err := s.ListPDR(ctx, "b-9", 0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, models.ActionBatchFinish, recs[0].Action)
	assert.Equal(t, "total=0 succeeded=0 failed=0", recs[0].Details)
}

func TestWrite_StoreClosed(t *testing.T) {
	w, s := newWriter(t)
	require.NoError(t, s.Close())

	// best effort: must not panic
	w.RecordEntry(context.Background(), "b-1", &models.Entry{Name: "a.txt", State: models.StateMoved})
}
