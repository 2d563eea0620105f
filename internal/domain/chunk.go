package domain

import (
	"time"
)

// Channel identifies the ingestion source of a chunk.
type Channel string

const (
	ChannelText  Channel = "text"
	ChannelFile  Channel = "file"
	ChannelEmail Channel = "email"
	ChannelChat  Channel = "chat"
	ChannelAudio Channel = "audio"
	ChannelImage Channel = "image"
)

// Valid reports whether c is a known ingestion channel.
func (c Channel) Valid() bool {
	switch c {
	case ChannelText, ChannelFile, ChannelEmail, ChannelChat, ChannelAudio, ChannelImage:
		return true
	}
	return false
}

// CommonFields carries the tenant/thread identity shared by every channel.
// CustomerID, OrgID, and OwnerID together form the access boundary; any of
// them may be empty, in which case they are omitted at the store boundary.
type CommonFields struct {
	CustomerID    string
	OrgID         string
	OwnerID       string
	ThreadID      string
	InteractionID string
	Timestamp     *time.Time
	Participants  []string
}

// ChunkPayload is the canonical metadata record attached to one chunk. It is
// built once by a channel payload builder and persisted to both stores.
type ChunkPayload struct {
	CommonFields

	Channel Channel
	Title   string
	Text    string

	// Channel extras.
	FileName       string
	RawContentPath string
	Platform       string
	MessageID      string
	InReplyTo      string

	// Derived fields, produced by pluggable extractors.
	Summary  string
	Entities []string
}

// Map returns the sparse store representation of the payload. Absent fields
// are omitted entirely rather than written as explicit nulls, so filters on
// missing attributes never spuriously match.
func (p *ChunkPayload) Map() map[string]interface{} {
	m := make(map[string]interface{}, 16)
	m["channel"] = string(p.Channel)
	m["text"] = p.Text

	putString(m, "customer_id", p.CustomerID)
	putString(m, "org_id", p.OrgID)
	putString(m, "owner_id", p.OwnerID)
	putString(m, "thread_id", p.ThreadID)
	putString(m, "interaction_id", p.InteractionID)
	putString(m, "title", p.Title)
	putString(m, "file_name", p.FileName)
	putString(m, "raw_content_path", p.RawContentPath)
	putString(m, "platform", p.Platform)
	putString(m, "message_id", p.MessageID)
	putString(m, "in_reply_to", p.InReplyTo)
	putString(m, "summary", p.Summary)

	if p.Timestamp != nil && !p.Timestamp.IsZero() {
		m["timestamp"] = p.Timestamp.UTC().Format(time.RFC3339)
	}
	if len(p.Participants) > 0 {
		m["participants"] = p.Participants
	}
	if len(p.Entities) > 0 {
		m["entities"] = p.Entities
	}

	return m
}

func putString(m map[string]interface{}, key, value string) {
	if value != "" {
		m[key] = value
	}
}

// PayloadFromMap rebuilds a ChunkPayload from its sparse store
// representation. Unknown keys are ignored; missing keys stay zero.
func PayloadFromMap(m map[string]interface{}) ChunkPayload {
	var p ChunkPayload
	p.Channel = Channel(stringAt(m, "channel"))
	p.Text = stringAt(m, "text")
	p.CustomerID = stringAt(m, "customer_id")
	p.OrgID = stringAt(m, "org_id")
	p.OwnerID = stringAt(m, "owner_id")
	p.ThreadID = stringAt(m, "thread_id")
	p.InteractionID = stringAt(m, "interaction_id")
	p.Title = stringAt(m, "title")
	p.FileName = stringAt(m, "file_name")
	p.RawContentPath = stringAt(m, "raw_content_path")
	p.Platform = stringAt(m, "platform")
	p.MessageID = stringAt(m, "message_id")
	p.InReplyTo = stringAt(m, "in_reply_to")
	p.Summary = stringAt(m, "summary")

	if raw := stringAt(m, "timestamp"); raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			p.Timestamp = &ts
		}
	}
	p.Participants = stringsAt(m, "participants")
	p.Entities = stringsAt(m, "entities")

	return p
}

func stringAt(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func stringsAt(m map[string]interface{}, key string) []string {
	raw, ok := m[key]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Chunk is the atomic retrievable unit: a bounded segment of normalized text
// plus its embedding and payload. The id is allocated by the vector store at
// write time.
type Chunk struct {
	ID        string
	Payload   ChunkPayload
	Embedding []float32
	CreatedAt time.Time
}
