package dto

// UploadMaterialRequest comes with an optional "file" part. Either the link
// or the file must be present.
type UploadMaterialRequest struct {
	Title        string `form:"title" json:"title" binding:"max=200"`
	Description  string `form:"description" json:"description" binding:"max=2000"`
	ResourceLink string `form:"resourceLink" json:"resourceLink" binding:"omitempty,url"`
}

type UpdateMaterialRequest struct {
	Title        string `form:"title" json:"title" binding:"required,notblank,max=200"`
	Description  string `form:"description" json:"description" binding:"max=2000"`
	ResourceLink string `form:"resourceLink" json:"resourceLink" binding:"omitempty,url"`
	// RemoveFile drops the hosted file when no replacement is uploaded.
	RemoveFile bool `form:"removeFile" json:"removeFile"`
}
