package logging

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockLogger_DerivedLoggersShareEntries(t *testing.T) {
	mock := NewMockLogger()
	errBoom := errors.New("boom")

	mock.WithField(FieldUserID, "u-1").WithError(errBoom).Warn("row skipped", Field{Key: FieldRow, Value: 3})
	mock.Info("done")

	entries := mock.GetEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, "WARN", entries[0].Level)
	assert.Equal(t, errBoom, entries[0].Error)
	assert.Equal(t, []Field{{Key: FieldUserID, Value: "u-1"}, {Key: FieldRow, Value: 3}}, entries[0].Fields)
	assert.True(t, mock.HasEntry("INFO", "done"))
	assert.Len(t, mock.GetEntriesByLevel("WARN"), 1)

	mock.Clear()
	assert.Empty(t, mock.GetEntries())
}

func TestMockLogger_ConcurrentUse(t *testing.T) {
	mock := NewMockLogger()
	child := mock.WithField(FieldBatchID, "b")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			child.Debug("tick", Field{Key: FieldRow, Value: i})
		}(i)
	}
	wg.Wait()

	assert.Len(t, mock.GetEntriesByLevel("DEBUG"), 50)
}

func TestMockLogger_ZeroValueUsable(t *testing.T) {
	var mock MockLogger
	mock.Fatalf("bad %d", 1)
	assert.True(t, mock.HasEntry("FATAL", "bad 1"))
}
