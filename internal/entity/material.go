package entity

type Material struct {
	ID           string `json:"_id,omitempty"`
	SessionID    string `json:"sessionId"`
	Title        string `json:"title"`
	Description  string `json:"description,omitempty"`
	ResourceLink string `json:"resourceLink,omitempty"`
	FileURL      string `json:"fileURL,omitempty"`
	UploadedBy   string `json:"uploadedBy"`
	UploadedAt   Date   `json:"uploadedAt"`
}
