package dto

type RebuildResponse struct {
	Message string `json:"message"`
}
