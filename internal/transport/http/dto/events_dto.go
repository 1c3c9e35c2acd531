package dto

import "github.com/minio/minio-go/v7/pkg/notification"

// StorageEventsRequest is the bucket notification body MinIO posts to the
// webhook endpoint.
type StorageEventsRequest struct {
	EventName string               `json:"EventName"`
	Key       string               `json:"Key"`
	Records   []notification.Event `json:"Records"`
}

type StorageEventsResponse struct {
	OK bool `json:"ok"`
}
