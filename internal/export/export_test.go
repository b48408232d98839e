package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/erazemk/evidenca/internal/ledger"
	"github.com/erazemk/evidenca/internal/model"
)

func TestWriteItems(t *testing.T) {
	items := []model.Item{
		{ID: 1, Name: "Cable", Category: "network", Quantity: ledger.Quantity{Store: 7, Use: 3}, Total: 10},
		{ID: 2, Name: "Chair", Quantity: ledger.Quantity{Transfer: 2}, Total: 2},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteItems(&buf, "head", items))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Items head")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Name", rows[0][1])
	assert.Equal(t, "Cable", rows[1][1])
	assert.Equal(t, "7", rows[1][7])
	assert.Equal(t, "3", rows[1][8])
	assert.Equal(t, "10", rows[1][12])
	assert.Equal(t, "2", rows[2][11])
}

func TestWriteRecords(t *testing.T) {
	records := []model.Record{{
		ID:              4,
		ItemName:        "Cable",
		Kind:            ledger.KindUse,
		Amount:          3,
		Purpose:         "For use",
		Status:          ledger.StatusPendingUse,
		RequestedByName: "mojca",
		CreatedAt:       time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteRecords(&buf, "local", records))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Records local")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "use", rows[1][5])
	assert.Equal(t, "pending(remove)", rows[1][9])
	assert.Equal(t, "mojca", rows[1][10])
	assert.Equal(t, "2026-03-01 09:30", rows[1][11])
}

func TestWriteEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteItems(&buf, "head", nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Items head")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
