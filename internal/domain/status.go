package domain

import "time"

type Status string

const (
	StatusIdle       Status = "idle"
	StatusValidating Status = "validating"
	StatusGenerating Status = "generating"
)

func (s Status) String() string {
	return string(s)
}

// ClipboardFeedbackDelay - через сколько гаснет отметка "скопировано"
const ClipboardFeedbackDelay = 3000 * time.Millisecond

// GenericErrorMessage is what the proxy returns for every upstream failure.
const GenericErrorMessage = "An error occurred while processing your request."

// Toast texts shown by the form.
const (
	MsgFillAllFields  = "Please fill in all fields before generating the story."
	MsgStoryGenerated = "Story generated!"
	MsgGenerateFailed = "Failed to generate story"
	MsgCopied         = "Copied to clipboard!"
	MsgCopyFailed     = "Failed to copy to clipboard"
)
