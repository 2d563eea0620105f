package service

import (
	"github.com/loomworks/memoir/internal/domain"
)

// PayloadBuilder maps channel-specific ingestion requests onto canonical
// chunk payloads. One build method per channel; each copies the common
// identity fields verbatim, fixes the channel tag, applies the channel's
// title rule, and attaches the derived summary and entity fields computed
// over the chunk text.
type PayloadBuilder struct {
	summarizer Summarizer
	extractor  EntityExtractor
}

func NewPayloadBuilder(summarizer Summarizer, extractor EntityExtractor) *PayloadBuilder {
	if summarizer == nil {
		summarizer = &NaiveSummarizer{}
	}
	if extractor == nil {
		extractor = &NaiveEntityExtractor{}
	}
	return &PayloadBuilder{summarizer: summarizer, extractor: extractor}
}

func (b *PayloadBuilder) Text(req domain.TextRequest, chunks []string) []domain.ChunkPayload {
	out := make([]domain.ChunkPayload, 0, len(chunks))
	for _, chunk := range chunks {
		p := b.base(req.CommonFields, domain.ChannelText, req.Title, chunk)
		out = append(out, p)
	}
	return out
}

func (b *PayloadBuilder) File(req domain.FileRequest, rawContentPath string, chunks []string) []domain.ChunkPayload {
	out := make([]domain.ChunkPayload, 0, len(chunks))
	for _, chunk := range chunks {
		p := b.base(req.CommonFields, domain.ChannelFile, req.FileName, chunk)
		p.FileName = req.FileName
		p.RawContentPath = rawContentPath
		out = append(out, p)
	}
	return out
}

func (b *PayloadBuilder) Email(req domain.EmailRequest, chunks []string) []domain.ChunkPayload {
	out := make([]domain.ChunkPayload, 0, len(chunks))
	for _, chunk := range chunks {
		p := b.base(req.CommonFields, domain.ChannelEmail, req.Subject, chunk)
		p.MessageID = req.MessageID
		p.InReplyTo = req.InReplyTo
		out = append(out, p)
	}
	return out
}

func (b *PayloadBuilder) Chat(req domain.ChatRequest, chunks []string) []domain.ChunkPayload {
	out := make([]domain.ChunkPayload, 0, len(chunks))
	for _, chunk := range chunks {
		p := b.base(req.CommonFields, domain.ChannelChat, "chat:"+req.Platform, chunk)
		p.Platform = req.Platform
		p.MessageID = req.MessageID
		out = append(out, p)
	}
	return out
}

func (b *PayloadBuilder) Audio(req domain.AudioRequest, rawContentPath string, chunks []string) []domain.ChunkPayload {
	out := make([]domain.ChunkPayload, 0, len(chunks))
	for _, chunk := range chunks {
		p := b.base(req.CommonFields, domain.ChannelAudio, req.FileName, chunk)
		p.FileName = req.FileName
		p.RawContentPath = rawContentPath
		out = append(out, p)
	}
	return out
}

func (b *PayloadBuilder) Image(req domain.ImageRequest, rawContentPath string, chunks []string) []domain.ChunkPayload {
	out := make([]domain.ChunkPayload, 0, len(chunks))
	for _, chunk := range chunks {
		p := b.base(req.CommonFields, domain.ChannelImage, req.FileName, chunk)
		p.FileName = req.FileName
		p.RawContentPath = rawContentPath
		out = append(out, p)
	}
	return out
}

func (b *PayloadBuilder) base(common domain.CommonFields, channel domain.Channel, title, chunk string) domain.ChunkPayload {
	return domain.ChunkPayload{
		CommonFields: common,
		Channel:      channel,
		Title:        title,
		Text:         chunk,
		Summary:      b.summarizer.Summarize(chunk),
		Entities:     b.extractor.Entities(chunk),
	}
}
