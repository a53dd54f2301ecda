package model

import "time"

// ProposedMeeting is the ledger entry recording which slot start times have
// already been offered to a lead. One row per lead, replaced wholesale on
// update so a re-generation supersedes the previous offer set.
type ProposedMeeting struct {
	LeadID       string    `db:"lead_id" gorm:"primaryKey;size:64"`
	LeadName     string    `db:"lead_name" gorm:"size:255"`
	MeetingTimes []string  `db:"meeting_times" gorm:"serializer:json;type:jsonb"`
	UpdatedAt    time.Time `db:"updated_at" gorm:"autoUpdateTime"`
}
