package usecase

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/shandysiswandi/entryotp/internal/entry/entity"
	"github.com/shandysiswandi/entryotp/internal/pkg/goerror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedMany(h *harness, n int) {
	at := h.clock.Now()
	for i := 1; i <= n; i++ {
		e := entity.Entry{
			ID:          int64(i),
			EntryNumber: fmt.Sprintf("LOTD%06d", i),
			Name:        fmt.Sprintf("Guest %d", i),
			Phone:       fmt.Sprintf("+62812000%05d", i),
		}
		if i%2 == 0 {
			e.IsVerified = true
			e.VerifiedAt = &at
		}
		h.repo.seed(e)
	}
}

func TestEntryList(t *testing.T) {
	// Arrange
	h := newHarness(t, "")
	seedMany(h, 25)

	// Act
	all, err := h.uc.EntryList(context.Background(), EntryListInput{})
	require.NoError(t, err)
	verified, err := h.uc.EntryList(context.Background(), EntryListInput{Status: "verified", Size: 5, Page: 2})
	require.NoError(t, err)

	// Assert
	assert.Equal(t, int64(25), all.Total)
	assert.Equal(t, int32(20), all.Size, "default page size")
	assert.Equal(t, int32(1), all.Page)
	assert.Len(t, all.Entries, 20)

	assert.Equal(t, int64(12), verified.Total)
	assert.Len(t, verified.Entries, 5)
	for _, e := range verified.Entries {
		assert.True(t, e.IsVerified)
	}
}

func TestEntryList_PageBeyondRange(t *testing.T) {
	// Arrange
	h := newHarness(t, "")
	seedMany(h, 3)

	// Act
	out, err := h.uc.EntryList(context.Background(), EntryListInput{Page: math.MaxInt32, Size: 100})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, int64(3), out.Total)
	assert.Empty(t, out.Entries)
	assert.Equal(t, int64(214748364600), pageOffset(math.MaxInt32, 100))
	assert.Equal(t, int64(0), pageOffset(1, 100))
}

func TestEntryDetail(t *testing.T) {
	h := newHarness(t, "")
	seedMany(h, 1)

	got, err := h.uc.EntryDetail(context.Background(), EntryDetailInput{ID: 1})
	require.NoError(t, err)
	assert.Equal(t, "LOTD000001", got.EntryNumber)

	_, err = h.uc.EntryDetail(context.Background(), EntryDetailInput{ID: 2})
	requireCode(t, err, goerror.CodeNotFound)

	_, err = h.uc.EntryDetail(context.Background(), EntryDetailInput{ID: -1})
	requireCode(t, err, goerror.CodeInvalidInput)
}

func TestEntryDelete(t *testing.T) {
	h := newHarness(t, "")
	seedMany(h, 3)

	require.NoError(t, h.uc.EntryDelete(context.Background(), EntryDeleteInput{ID: 2}))
	requireCode(t, h.uc.EntryDelete(context.Background(), EntryDeleteInput{ID: 2}), goerror.CodeNotFound)
	assert.Len(t, h.repo.entries, 2)
}

func TestEntryBulkDelete(t *testing.T) {
	tests := []struct {
		name    string
		ids     []int64
		want    int64
		wantErr bool
	}{
		{name: "duplicates counted once", ids: []int64{1, 2, 2, 9}, want: 2},
		{name: "empty", ids: nil, wantErr: true},
		{name: "non positive id", ids: []int64{1, 0}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, "")
			seedMany(h, 3)

			got, err := h.uc.EntryBulkDelete(context.Background(), EntryBulkDeleteInput{IDs: tt.ids})

			if tt.wantErr {
				requireCode(t, err, goerror.CodeInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEntryStats(t *testing.T) {
	h := newHarness(t, "")
	seedMany(h, 5)

	st, err := h.uc.EntryStats(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(5), st.TotalEntries)
	assert.Equal(t, int64(2), st.VerifiedEntries)
	assert.Equal(t, int64(3), st.PendingEntries)
}

func TestAttemptList(t *testing.T) {
	h := newHarness(t, "")
	_, err := h.uc.OTPSend(context.Background(), sendInput("10.0.0.1"))
	require.NoError(t, err)
	_, err = h.uc.OTPVerify(context.Background(), OTPVerifyInput{EntryID: 999, Code: "123456", SourceIP: "10.0.0.2"})
	requireCode(t, err, goerror.CodeNotFound)

	out, err := h.uc.AttemptList(context.Background(), AttemptListInput{Kind: "verify"})
	require.NoError(t, err)
	require.Len(t, out.Attempts, 1)
	assert.Equal(t, "10.0.0.2", out.Attempts[0].SourceIP)
	assert.Nil(t, out.Attempts[0].EntryID)

	_, err = h.uc.AttemptList(context.Background(), AttemptListInput{Kind: "login"})
	gerr := requireCode(t, err, goerror.CodeInvalidInput)
	assert.Contains(t, gerr.Fields(), "kind")
}

func TestEntryExport(t *testing.T) {
	// Arrange
	h := newHarness(t, "")
	seedMany(h, 2_100)

	// Act
	out, err := h.uc.EntryExport(context.Background(), EntryExportInput{Status: "pending"})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 1_050, out.Count)
	assert.True(t, strings.HasPrefix(out.Key, "exports/entries-20260314T093000Z-"))
	assert.Contains(t, out.URL, out.Key)
	assert.Equal(t, h.clock.Now().Add(defaultExportURLTTL), out.ExpiresAt)

	data := h.storage.objects[out.Key]
	sc := bufio.NewScanner(bytes.NewReader(data))
	lines := 0
	for sc.Scan() {
		var rec map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		assert.Equal(t, false, rec["is_verified"])
		lines++
	}
	assert.Equal(t, 1_050, lines)

	listed, err := h.uc.EntryExportList(context.Background())
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, out.Key, listed[0].Key)
}
