package models

type UploadResponse struct {
	FileName string `json:"file_name"`
	FileType string `json:"file_type"`
	CVData   CVData `json:"cv_data"`
}

type UpdateDocumentRequest struct {
	CVData CVData `json:"cv_data"`
}

type TurnResponse struct {
	Transcript    string `json:"transcript"`
	Response      string `json:"response"`
	Audio         string `json:"audio"`
	AudioMIMEType string `json:"audio_mime_type"`
}

type SessionResponse struct {
	UserID string             `json:"user_id"`
	State  string             `json:"state"`
	Notice string             `json:"notice,omitempty"`
	Turns  []ConversationTurn `json:"turns"`
}
