package entity

type Note struct {
	ID           string `json:"_id,omitempty"`
	Title        string `json:"title"`
	Content      string `json:"content"`
	StudentEmail string `json:"studentEmail"`
	CreatedAt    Date   `json:"createdAt,omitempty"`
}
