package dto

type ModerationActionResponse struct {
	Message string `json:"message"`
}
