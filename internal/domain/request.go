package domain

import "time"

// TextRequest ingests a free-text note.
type TextRequest struct {
	CommonFields
	Title string
	Text  string
}

// FileRequest ingests an uploaded document. Content is required; the raw
// bytes are persisted to the blob store before any chunk is written.
type FileRequest struct {
	CommonFields
	FileName    string
	ContentType string
	Content     []byte
}

// EmailRequest ingests one email message.
type EmailRequest struct {
	CommonFields
	Subject   string
	Body      string
	MessageID string
	InReplyTo string
}

// ChatMessage is one utterance inside a chat ingestion request.
type ChatMessage struct {
	Sender    string
	Text      string
	Timestamp *time.Time
}

// ChatRequest ingests a chat conversation from a named platform.
type ChatRequest struct {
	CommonFields
	Platform  string
	MessageID string
	Messages  []ChatMessage
}

// AudioRequest ingests an audio recording. When Transcript is empty a
// configured transcriber produces the text; otherwise the caller-supplied
// transcript is used verbatim.
type AudioRequest struct {
	CommonFields
	FileName    string
	ContentType string
	Content     []byte
	Transcript  string
}

// ImageRequest ingests an image. Caption plays the same role as Transcript
// on the audio channel.
type ImageRequest struct {
	CommonFields
	FileName    string
	ContentType string
	Content     []byte
	Caption     string
}
