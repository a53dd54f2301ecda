package model

import "time"

// ShortLink maps a compact redirect code to a full booking URL. The unique
// url index backs the one-code-per-URL contract: concurrent shorteners of
// the same URL serialize on it instead of both inserting.
type ShortLink struct {
	Code      string    `db:"code" gorm:"primaryKey;size:32"`
	URL       string    `db:"url" gorm:"type:text;not null;uniqueIndex"`
	CreatedAt time.Time `db:"created_at" gorm:"autoCreateTime"`
}
