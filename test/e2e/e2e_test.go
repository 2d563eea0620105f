//go:build e2e

package e2e

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ingestData struct {
	IDs    []string `json:"ids"`
	Chunks int      `json:"chunks"`
}

type searchData struct {
	Results []struct {
		ID    string  `json:"id"`
		Score float32 `json:"score"`
		Text  string  `json:"text"`
	} `json:"results"`
	Answer string `json:"answer"`
}

type timelineData struct {
	Entries []struct {
		ID      string `json:"id"`
		Channel string `json:"channel"`
		Title   string `json:"title"`
		Text    string `json:"text"`
	} `json:"entries"`
	NextCursor string `json:"next_cursor"`
	HasMore    bool   `json:"has_more"`
}

func TestE2E_IngestAndSearch(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	t.Run("ingest text", func(t *testing.T) {
		resp, err := env.Post("/ingest/text", map[string]interface{}{
			"customer_id": "cust-1",
			"title":       "Contract renewal",
			"text":        "The Acme contract renewal is due in March.",
		})
		require.NoError(t, err)

		var data ingestData
		require.NoError(t, json.Unmarshal(resp.Data, &data))
		assert.Equal(t, 1, data.Chunks)
		require.Len(t, data.IDs, 1)
	})

	t.Run("search finds the record", func(t *testing.T) {
		resp, err := env.Post("/search", map[string]interface{}{
			"query":   "contract renewal March",
			"filters": map[string]string{"customer_id": "cust-1"},
		})
		require.NoError(t, err)

		var data searchData
		require.NoError(t, json.Unmarshal(resp.Data, &data))
		require.NotEmpty(t, data.Results)
		assert.Contains(t, data.Results[0].Text, "renewal")
		assert.NotEmpty(t, data.Answer)
	})

	t.Run("filters exclude other tenants", func(t *testing.T) {
		resp, err := env.Post("/search", map[string]interface{}{
			"query":   "contract renewal March",
			"filters": map[string]string{"customer_id": "cust-other"},
		})
		require.NoError(t, err)

		var data searchData
		require.NoError(t, json.Unmarshal(resp.Data, &data))
		assert.Empty(t, data.Results)
	})
}

func TestE2E_KeywordMirror(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	resp, err := env.Post("/ingest/text", map[string]interface{}{
		"customer_id": "cust-1",
		"title":       "Quarterly figures",
		"text":        "Revenue grew twelve percent in the fourth quarter.",
	})
	require.NoError(t, err)

	var ingested ingestData
	require.NoError(t, json.Unmarshal(resp.Data, &ingested))
	require.Len(t, ingested.IDs, 1)

	// both stores carry the same id
	var vectorCount, keywordCount int
	require.NoError(t, env.Pool.QueryRow(env.Ctx,
		"SELECT count(*) FROM chunks WHERE id = $1", ingested.IDs[0]).Scan(&vectorCount))
	require.NoError(t, env.Pool.QueryRow(env.Ctx,
		"SELECT count(*) FROM keyword_entries WHERE id = $1", ingested.IDs[0]).Scan(&keywordCount))
	assert.Equal(t, 1, vectorCount)
	assert.Equal(t, 1, keywordCount)
}

func TestE2E_FileIngestStoresBlob(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	content := []byte("Meeting notes: the rollout starts next Monday.")
	resp, err := env.PostMultipart("/ingest/file", "notes.txt", content, map[string]string{
		"customer_id": "cust-1",
	})
	require.NoError(t, err)

	var data ingestData
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	require.NotEmpty(t, data.IDs)

	// payload carries the blob locator
	var payload map[string]interface{}
	require.NoError(t, env.Pool.QueryRow(env.Ctx,
		"SELECT payload FROM chunks WHERE id = $1", data.IDs[0]).Scan(&payload))
	locator, _ := payload["raw_content_path"].(string)
	assert.NotEmpty(t, locator)
}

func TestE2E_DeleteRemovesFromBothStores(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	resp, err := env.Post("/ingest/text", map[string]interface{}{
		"customer_id": "cust-1",
		"text":        "A record that will be deleted.",
	})
	require.NoError(t, err)

	var ingested ingestData
	require.NoError(t, json.Unmarshal(resp.Data, &ingested))
	require.Len(t, ingested.IDs, 1)
	id := ingested.IDs[0]

	_, err = env.Delete("/memory/" + id)
	require.NoError(t, err)

	var vectorCount, keywordCount int
	require.NoError(t, env.Pool.QueryRow(env.Ctx,
		"SELECT count(*) FROM chunks WHERE id = $1", id).Scan(&vectorCount))
	require.NoError(t, env.Pool.QueryRow(env.Ctx,
		"SELECT count(*) FROM keyword_entries WHERE id = $1", id).Scan(&keywordCount))
	assert.Zero(t, vectorCount)
	assert.Zero(t, keywordCount)

	// deleting again reports not found
	_, err = env.Delete("/memory/" + id)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestE2E_Timeline(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	for i := 0; i < 3; i++ {
		_, err := env.Post("/ingest/text", map[string]interface{}{
			"customer_id": "cust-1",
			"title":       fmt.Sprintf("Note %d", i),
			"text":        fmt.Sprintf("Entry number %d.", i),
			"timestamp":   fmt.Sprintf("2026-03-0%dT10:00:00Z", i+1),
		})
		require.NoError(t, err)
	}

	resp, err := env.Get("/timeline?customer_id=cust-1&limit=2")
	require.NoError(t, err)

	var page timelineData
	require.NoError(t, json.Unmarshal(resp.Data, &page))
	require.Len(t, page.Entries, 2)
	assert.True(t, page.HasMore)
	assert.NotEmpty(t, page.NextCursor)

	// newest first
	assert.Equal(t, "Note 2", page.Entries[0].Title)

	next, err := env.Get("/timeline?customer_id=cust-1&limit=2&cursor=" + page.NextCursor)
	require.NoError(t, err)

	var rest timelineData
	require.NoError(t, json.Unmarshal(next.Data, &rest))
	require.Len(t, rest.Entries, 1)
	assert.False(t, rest.HasMore)
	assert.Equal(t, "Note 0", rest.Entries[0].Title)
}

func TestE2E_AuthRequired(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	savedKey := env.APIKey
	env.APIKey = "wrong-key"
	_, err := env.Post("/search", map[string]interface{}{"query": "anything"})
	env.APIKey = savedKey

	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestE2E_ChatIngestion(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	resp, err := env.Post("/ingest/chat", map[string]interface{}{
		"customer_id": "cust-1",
		"platform":    "slack",
		"messages": []map[string]string{
			{"sender": "alice", "text": "Did the shipment arrive?"},
			{"sender": "bob", "text": "Yes, this morning."},
		},
	})
	require.NoError(t, err)

	var data ingestData
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	require.NotEmpty(t, data.IDs)

	search, err := env.Post("/search", map[string]interface{}{
		"query":   "shipment arrive",
		"filters": map[string]string{"customer_id": "cust-1", "channel": "chat"},
	})
	require.NoError(t, err)

	var found searchData
	require.NoError(t, json.Unmarshal(search.Data, &found))
	require.NotEmpty(t, found.Results)
	assert.Contains(t, found.Results[0].Text, "alice")
}
