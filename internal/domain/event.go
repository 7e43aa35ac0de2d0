package domain

import "time"

// DeliveryEvent records the outcome of an upload for outbound notification.
// Events are immutable once created; the notifier tracks retry state separately.
type DeliveryEvent struct {
	// ID uniquely identifies this event for deduplication by the receiver.
	ID string `json:"id"`

	// AssetID is the identifier of the uploaded asset.
	AssetID string `json:"assetId"`

	// Category is the asset category the files were written under.
	Category string `json:"category"`

	// Files lists the slash-separated paths written, relative to the asset root.
	Files []string `json:"files"`

	// UploadedAt is when the write path finished persisting the files.
	UploadedAt time.Time `json:"uploadedAt"`
}
