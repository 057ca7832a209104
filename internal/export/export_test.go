package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/amazon-review-scraper/internal/models"
)

func exportFixtures() []*models.Review {
	rating := 5.0
	return []*models.Review{
		{
			ASIN:             "B0CX23V2ZK",
			ReviewID:         "R3GW3PF9X2M1QN",
			Title:            "Parfait",
			Body:             "Livraison rapide, produit conforme.",
			Rating:           &rating,
			ReviewDate:       "2025-03-14",
			VerifiedPurchase: true,
			HelpfulVotes:     2,
			ReviewerName:     "Claire",
		},
		{
			ASIN:       "B0CX23V2ZK",
			ReviewID:   "generated_3f786850e387550fdab836ed7e6dc881de23001b",
			Title:      "Déçu",
			Body:       "A cassé après une semaine.",
			ReviewDate: "2025-02-01",
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Format
		wantErr bool
	}{
		{name: "csv", input: "csv", want: FormatCSV},
		{name: "ndjson", input: "ndjson", want: FormatNDJSON},
		{name: "unknown rejected", input: "parquet", wantErr: true},
		{name: "empty rejected", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	err := WriteCSV(&buf, exportFixtures())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "asin,review_id,title,body,rating,date,verified_purchase,helpful_votes,reviewer_name,variant", lines[0])
	assert.Contains(t, lines[1], "R3GW3PF9X2M1QN")
	assert.Contains(t, lines[1], "5.0")
	// missing rating stays empty, not zero
	assert.Contains(t, lines[2], ",,2025-02-01")
}

func TestWriteNDJSON(t *testing.T) {
	var buf bytes.Buffer
	err := WriteNDJSON(&buf, exportFixtures())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "R3GW3PF9X2M1QN", first["review_id"])
	assert.Equal(t, 5.0, first["rating"])
}

func TestWriteDispatch(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatNDJSON, exportFixtures()))
	assert.Error(t, Write(&buf, Format("xml"), nil))
}
