// Package models defines the journal records persisted by the repositories
// and exchanged between pipeline stages.
package models

import (
	"strings"
	"time"
)

// Entry is a journal entry: one uploaded recording plus the outputs each
// pipeline stage writes onto it.
type Entry struct {
	ID      int64
	UserID  string
	Created time.Time

	AudioPath          string
	AudioLength        int
	AudioDuration      int
	AudioChannels      int
	AudioSampleRate    int
	AudioBitsPerSample int
	AudioHash          string

	Latitude  *float64
	Longitude *float64

	Transcript        *string
	TranscriptCreated *time.Time

	Response        *string
	ResponseCreated *time.Time

	VoiceoverPath           *string
	VoiceoverCreated        *time.Time
	VoiceoverDuration       *int
	VoiceoverLength         *int
	VoiceoverProcessingTime *int
}

// HasTranscript reports whether the transcription stage has completed.
func (e *Entry) HasTranscript() bool {
	return e.Transcript != nil && strings.TrimSpace(*e.Transcript) != ""
}

// HasResponse reports whether the reply stage has completed.
func (e *Entry) HasResponse() bool {
	return e.Response != nil
}

// HasVoiceover reports whether the voiceover stage has completed.
func (e *Entry) HasVoiceover() bool {
	return e.VoiceoverPath != nil
}

// EntryStatus is the coarse pipeline position reported to clients.
type EntryStatus int

const (
	StatusNotFound EntryStatus = iota
	StatusAwaitingTranscript
	StatusAwaitingVoiceover
	StatusComplete
)

func (s EntryStatus) String() string {
	switch s {
	case StatusAwaitingTranscript:
		return "awaiting transcript"
	case StatusAwaitingVoiceover:
		return "awaiting voiceover"
	case StatusComplete:
		return "complete"
	default:
		return "not found"
	}
}

// Status derives the EntryStatus of e. A nil entry is StatusNotFound.
func (e *Entry) Status() EntryStatus {
	switch {
	case e == nil:
		return StatusNotFound
	case !e.HasTranscript():
		return StatusAwaitingTranscript
	case !e.HasVoiceover():
		return StatusAwaitingVoiceover
	default:
		return StatusComplete
	}
}

// EntryListItem is the read model returned to clients.
type EntryListItem struct {
	ID           int64     `json:"id"`
	UserID       string    `json:"userId"`
	Created      time.Time `json:"created"`
	Transcript   *string   `json:"transcript,omitempty"`
	ResponsePath *string   `json:"responsePath,omitempty"`
	ResponseText *string   `json:"responseText,omitempty"`
	Latitude     *float64  `json:"latitude,omitempty"`
	Longitude    *float64  `json:"longitude,omitempty"`
}

// NewEntryListItem projects an Entry onto its read model.
func NewEntryListItem(e *Entry) *EntryListItem {
	return &EntryListItem{
		ID:           e.ID,
		UserID:       e.UserID,
		Created:      e.Created,
		Transcript:   e.Transcript,
		ResponsePath: e.VoiceoverPath,
		ResponseText: e.Response,
		Latitude:     e.Latitude,
		Longitude:    e.Longitude,
	}
}
