package models

import "time"

// FaceDescriptor is a biometric descriptor with its source image.
// Data is opaque and copied byte for byte.
type FaceDescriptor struct {
	ID          int64     `json:"id"`
	Data        []byte    `json:"-"`
	DateStart   time.Time `json:"date_start"`
	DateLast    time.Time `json:"date_last"`
	LastUpdated time.Time `json:"last_updated"`
	Image       DescriptorImage
}

// DescriptorImage shares its key with the owning descriptor.
type DescriptorImage struct {
	MimeType string `json:"mime_type"`
	Data     []byte `json:"-"`
}

// FaceLog is one recognition event. ScreenshotURL and UUID are derived at
// insert time from Screenshot.
type FaceLog struct {
	ID            int64     `json:"id"`
	StreamID      int64     `json:"stream_id"`
	Date          time.Time `json:"log_date"`
	DescriptorID  *int64    `json:"descriptor_id,omitempty"`
	Quality       float64   `json:"quality"`
	FaceLeft      int       `json:"face_left"`
	FaceTop       int       `json:"face_top"`
	FaceWidth     int       `json:"face_width"`
	FaceHeight    int       `json:"face_height"`
	Screenshot    string    `json:"screenshot"`
	ScreenshotURL string    `json:"screenshot_url,omitempty"`
	UUID          string    `json:"log_uuid,omitempty"`
}
