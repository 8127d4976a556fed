package models

import "github.com/your-org/fdsync/internal/settings"

// VideoStream is a stream definition as read from the legacy store, together
// with its per-stream settings rows.
type VideoStream struct {
	ID          int64             `json:"id"`
	Extension   *string           `json:"vstream_ext,omitempty"`
	URL         *string           `json:"url,omitempty"`
	CallbackURL *string           `json:"callback_url,omitempty"`
	Region      settings.WorkArea `json:"-"`
	Settings    []settings.Param  `json:"-"`
}
