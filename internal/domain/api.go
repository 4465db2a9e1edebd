package domain

// StoryRequest - тело POST /api/chatgpt
type StoryRequest struct {
	Story string `json:"story"`
}

// StoryResponse carries exactly one of Reply or Error. Reply is a pointer so an
// empty completion still reaches the caller as "reply": "".
type StoryResponse struct {
	Reply *string `json:"reply,omitempty"`
	Error string  `json:"error,omitempty"`
}

func ReplyResponse(reply string) StoryResponse {
	return StoryResponse{Reply: &reply}
}

func ErrorResponse() StoryResponse {
	return StoryResponse{Error: GenericErrorMessage}
}
