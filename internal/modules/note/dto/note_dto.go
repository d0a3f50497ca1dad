package dto

type NoteRequest struct {
	Title   string `json:"title" binding:"required,notblank,max=200"`
	Content string `json:"content" binding:"required,notblank,max=20000"`
}
