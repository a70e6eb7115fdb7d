package models

import "fmt"

// Step names the pipeline stage a queue message asks for.
type Step string

const (
	StepTranscript Step = "Transcript"
	StepChatbot    Step = "Chatbot"
	StepVoiceOver  Step = "VoiceOver"
)

// Valid reports whether s is a known step.
func (s Step) Valid() bool {
	switch s {
	case StepTranscript, StepChatbot, StepVoiceOver:
		return true
	}
	return false
}

// Message is the JSON body exchanged on the audio process queue.
type Message struct {
	ID   int64 `json:"Id"`
	Step Step  `json:"Step"`
}

func (m Message) String() string {
	return fmt.Sprintf("%d/%s", m.ID, m.Step)
}
