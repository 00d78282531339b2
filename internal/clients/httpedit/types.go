package httpedit

type editRequest struct {
	Image       string `json:"image"`
	MimeType    string `json:"mimeType"`
	Prompt      string `json:"prompt"`
	AspectRatio string `json:"aspectRatio"`
}

type editResponse struct {
	ImageUrl string `json:"imageUrl"`
	MimeType string `json:"mimeType"`
	Error    string `json:"error,omitempty"`
	Message  string `json:"message,omitempty"`
}
