package model

import "time"

// LeadSyncEvent mirrors a successful booking to the CRM record store.
// Published to JetStream after the calendar event exists; delivery is best
// effort and never blocks or fails the booking itself.
type LeadSyncEvent struct {
	ID              string    `json:"id"`
	LeadID          string    `json:"lead_id"`
	BookedSlotIndex int       `json:"booked_slot_index"`
	MeetingStart    time.Time `json:"meeting_start"`
	MeetingStatus   string    `json:"meeting_status"`
	Timestamp       time.Time `json:"timestamp"`
}

const (
	CRMStreamName     = "CRM_SYNC"
	CRMStreamSubject  = "crm.sync.lead"
	CRMConsumerName   = "crm-syncer"
	CRMStreamMaxBytes = 1024 * 1024 * 50 // 50MB
)
