package s3blob

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sylvaincormier/bittensor-async-api/internal/domain"
)

func TestMarshalNDJSON(t *testing.T) {
	observed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	entries := []domain.HistoryEntry{
		{
			ID: 1,
			Result: domain.DividendResult{
				NetUID:     18,
				Hotkey:     "5FFApaS75bv5pJHfAp2FVLBj9ZaXuFDjEypsaBNc1wCfe52v",
				Dividend:   1.25,
				ObservedAt: observed,
				Source:     domain.SourceLive,
			},
			CreatedAt: observed,
		},
		{
			ID: 2,
			Result: domain.DividendResult{
				NetUID:     18,
				Hotkey:     "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY",
				Dividend:   0.5,
				ObservedAt: observed.Add(time.Minute),
				Source:     domain.SourceFallback,
			},
			CreatedAt: observed.Add(time.Minute),
		},
	}

	buf, err := marshalNDJSON(entries)
	require.NoError(t, err)

	lines := bytes.Split(bytes.TrimSpace(buf), []byte("\n"))
	require.Len(t, lines, 2)

	var first domain.HistoryEntry
	require.NoError(t, json.Unmarshal(lines[0], &first))
	require.Equal(t, int64(1), first.ID)
	require.Equal(t, domain.SourceLive, first.Result.Source)

	var second domain.HistoryEntry
	require.NoError(t, json.Unmarshal(lines[1], &second))
	require.Equal(t, 0.5, second.Result.Dividend)
}

func TestMarshalNDJSONEmpty(t *testing.T) {
	buf, err := marshalNDJSON(nil)
	require.NoError(t, err)
	require.Empty(t, buf)
}

func TestArchivePathCarriesFullCutoff(t *testing.T) {
	cutoff := time.Date(2025, 6, 15, 3, 0, 0, 0, time.UTC)
	require.Equal(t, "archive/dividend_history/2025-06/2025-06-15T03-00-00Z.ndjson", archivePath(cutoff))
}

func TestArchivePathUniquePerCycleWithinMonth(t *testing.T) {
	first := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	second := first.Add(24 * time.Hour)

	// Two consecutive daily cycles in the same month must write distinct
	// objects; a collision would overwrite rows already pruned upstream.
	require.NotEqual(t, archivePath(first), archivePath(second))
}
