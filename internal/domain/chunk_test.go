package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannel_Valid(t *testing.T) {
	for _, c := range []Channel{ChannelText, ChannelFile, ChannelEmail, ChannelChat, ChannelAudio, ChannelImage} {
		assert.True(t, c.Valid(), string(c))
	}
	assert.False(t, Channel("").Valid())
	assert.False(t, Channel("video").Valid())
}

func TestChunkPayload_MapIsSparse(t *testing.T) {
	p := ChunkPayload{
		CommonFields: CommonFields{CustomerID: "cust-1"},
		Channel:      ChannelText,
		Text:         "hello",
	}

	m := p.Map()

	assert.Equal(t, "text", m["channel"])
	assert.Equal(t, "hello", m["text"])
	assert.Equal(t, "cust-1", m["customer_id"])

	// absent fields are omitted, never present as nulls or empty strings
	for _, key := range []string{"org_id", "owner_id", "thread_id", "title", "file_name", "raw_content_path", "platform", "message_id", "in_reply_to", "summary", "timestamp", "participants", "entities"} {
		_, ok := m[key]
		assert.False(t, ok, key)
	}
}

func TestChunkPayload_MapTimestampRFC3339(t *testing.T) {
	ts := time.Date(2026, 3, 1, 10, 30, 0, 0, time.FixedZone("CET", 3600))
	p := ChunkPayload{CommonFields: CommonFields{Timestamp: nil}}
	_, ok := p.Map()["timestamp"]
	assert.False(t, ok)

	p.Timestamp = &ts
	assert.Equal(t, "2026-03-01T09:30:00Z", p.Map()["timestamp"])
}

func TestPayloadFromMap_RoundTrip(t *testing.T) {
	ts := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	p := ChunkPayload{
		CommonFields: CommonFields{
			CustomerID:   "cust-1",
			ThreadID:     "th-9",
			Timestamp:    &ts,
			Participants: []string{"alice", "bob"},
		},
		Channel:        ChannelEmail,
		Title:          "Re: invoice",
		Text:           "body",
		MessageID:      "<m2@example.com>",
		InReplyTo:      "<m1@example.com>",
		Summary:        "short",
		Entities:       []string{"Acme"},
		RawContentPath: "s3://bucket/x/y.eml",
	}

	got := PayloadFromMap(p.Map())

	assert.Equal(t, p.CustomerID, got.CustomerID)
	assert.Equal(t, p.ThreadID, got.ThreadID)
	assert.Equal(t, p.Channel, got.Channel)
	assert.Equal(t, p.Title, got.Title)
	assert.Equal(t, p.Text, got.Text)
	assert.Equal(t, p.MessageID, got.MessageID)
	assert.Equal(t, p.InReplyTo, got.InReplyTo)
	assert.Equal(t, p.Summary, got.Summary)
	assert.Equal(t, p.Entities, got.Entities)
	assert.Equal(t, p.Participants, got.Participants)
	assert.Equal(t, p.RawContentPath, got.RawContentPath)
	require.NotNil(t, got.Timestamp)
	assert.True(t, got.Timestamp.Equal(ts))
}

func TestPayloadFromMap_JSONDecodedSlices(t *testing.T) {
	// jsonb round-trips arrays as []interface{}
	m := map[string]interface{}{
		"channel":  "chat",
		"text":     "hi",
		"entities": []interface{}{"Acme", "Dana"},
	}

	got := PayloadFromMap(m)
	assert.Equal(t, []string{"Acme", "Dana"}, got.Entities)
}

func TestFilters_IsZero(t *testing.T) {
	assert.True(t, Filters{}.IsZero())
	assert.False(t, Filters{CustomerID: "c"}.IsZero())
	assert.False(t, Filters{Channel: ChannelText}.IsZero())
}
