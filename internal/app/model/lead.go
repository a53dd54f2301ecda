package model

import "time"

// Meeting status markers stored on the lead record.
const (
	MeetingStatusProposed = "proposed"
	MeetingStatusBooked   = "booked"
)

// Lead is the prospect record tracked through the outreach pipeline. The
// booking core only touches the meeting fields; the rest is owned by the
// upstream lead-generation flow.
//
// MeetingDates[i] and BookingLinks[i] always describe the same proposal:
// the short URL at index i books the slot starting at MeetingDates[i].
type Lead struct {
	ID          string `db:"id" gorm:"primaryKey;size:64"`
	Email       string `db:"email" gorm:"size:255;not null"`
	ContactName string `db:"contact_name" gorm:"size:255"`
	CompanyName string `db:"company_name" gorm:"size:255"`

	MeetingDates    []string `db:"meeting_dates" gorm:"serializer:json;type:jsonb"`
	BookingLinks    []string `db:"booking_links" gorm:"serializer:json;type:jsonb"`
	BookedSlotIndex *int     `db:"booked_slot_index"`
	MeetingStatus   string   `db:"meeting_status" gorm:"size:32"`

	CreatedAt time.Time `db:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `db:"updated_at" gorm:"autoUpdateTime"`
}
