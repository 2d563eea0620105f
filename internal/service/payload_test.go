package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomworks/memoir/internal/domain"
)

func TestPayloadBuilder_Text(t *testing.T) {
	b := NewPayloadBuilder(nil, nil)
	ts := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	req := domain.TextRequest{
		CommonFields: domain.CommonFields{
			CustomerID: "cust-1",
			ThreadID:   "th-1",
			Timestamp:  &ts,
		},
		Title: "Renewal notes",
		Text:  "ignored at this layer",
	}

	payloads := b.Text(req, []string{"chunk one", "chunk two"})
	require.Len(t, payloads, 2)

	for i, p := range payloads {
		assert.Equal(t, domain.ChannelText, p.Channel)
		assert.Equal(t, "Renewal notes", p.Title)
		assert.Equal(t, "cust-1", p.CustomerID)
		assert.Equal(t, "th-1", p.ThreadID)
		assert.Equal(t, &ts, p.Timestamp)
		assert.NotEmpty(t, p.Summary)
		if i == 0 {
			assert.Equal(t, "chunk one", p.Text)
		}
	}
}

func TestPayloadBuilder_FileCarriesLocator(t *testing.T) {
	b := NewPayloadBuilder(nil, nil)

	req := domain.FileRequest{
		CommonFields: domain.CommonFields{CustomerID: "cust-1"},
		FileName:     "contract.pdf",
	}

	payloads := b.File(req, "s3://memoir-raw/abc/contract.pdf", []string{"a", "b", "c"})
	require.Len(t, payloads, 3)
	for _, p := range payloads {
		assert.Equal(t, domain.ChannelFile, p.Channel)
		assert.Equal(t, "contract.pdf", p.Title)
		assert.Equal(t, "contract.pdf", p.FileName)
		assert.Equal(t, "s3://memoir-raw/abc/contract.pdf", p.RawContentPath)
	}
}

func TestPayloadBuilder_EmailThreadingFields(t *testing.T) {
	b := NewPayloadBuilder(nil, nil)

	req := domain.EmailRequest{
		CommonFields: domain.CommonFields{CustomerID: "cust-1"},
		Subject:      "Re: invoice",
		MessageID:    "<m2@example.com>",
		InReplyTo:    "<m1@example.com>",
	}

	payloads := b.Email(req, []string{"body text"})
	require.Len(t, payloads, 1)
	p := payloads[0]
	assert.Equal(t, domain.ChannelEmail, p.Channel)
	assert.Equal(t, "Re: invoice", p.Title)
	assert.Equal(t, "<m2@example.com>", p.MessageID)
	assert.Equal(t, "<m1@example.com>", p.InReplyTo)
}

func TestPayloadBuilder_ChatTitle(t *testing.T) {
	b := NewPayloadBuilder(nil, nil)

	req := domain.ChatRequest{
		CommonFields: domain.CommonFields{CustomerID: "cust-1"},
		Platform:     "slack",
		MessageID:    "1700000000.000100",
	}

	payloads := b.Chat(req, []string{"alice: hi"})
	require.Len(t, payloads, 1)
	assert.Equal(t, domain.ChannelChat, payloads[0].Channel)
	assert.Equal(t, "chat:slack", payloads[0].Title)
	assert.Equal(t, "slack", payloads[0].Platform)
}

func TestPayloadBuilder_EmptyChunks(t *testing.T) {
	b := NewPayloadBuilder(nil, nil)
	assert.Empty(t, b.Text(domain.TextRequest{}, nil))
	assert.Empty(t, b.Audio(domain.AudioRequest{}, "s3://x/y", nil))
}

type staticSummarizer struct{ out string }

func (s *staticSummarizer) Summarize(string) string { return s.out }

func TestPayloadBuilder_CustomSummarizer(t *testing.T) {
	b := NewPayloadBuilder(&staticSummarizer{out: "summary"}, nil)
	payloads := b.Text(domain.TextRequest{}, []string{"chunk"})
	require.Len(t, payloads, 1)
	assert.Equal(t, "summary", payloads[0].Summary)
}
