package fundraising

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

type ActivityStatus string

const (
	ActivityStatusActive    ActivityStatus = "ACTIVE"
	ActivityStatusCompleted ActivityStatus = "COMPLETED"
	ActivityStatusCancelled ActivityStatus = "CANCELLED"
)

func (s ActivityStatus) Valid() bool {
	switch s {
	case ActivityStatusActive, ActivityStatusCompleted, ActivityStatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transition may leave s.
func (s ActivityStatus) Terminal() bool {
	switch s {
	case ActivityStatusActive:
		return false
	case ActivityStatusCompleted, ActivityStatusCancelled:
		return true
	default:
		return true
	}
}

type DonationStatus string

const (
	DonationStatusPending  DonationStatus = "PENDING"
	DonationStatusApproved DonationStatus = "APPROVED"
	DonationStatusRejected DonationStatus = "REJECTED"
)

func (s DonationStatus) Terminal() bool {
	switch s {
	case DonationStatusPending:
		return false
	case DonationStatusApproved, DonationStatusRejected:
		return true
	default:
		return true
	}
}

type Decision string

const (
	DecisionApprove Decision = "APPROVE"
	DecisionReject  Decision = "REJECT"
)

// ParseDecision accepts "approve" / "reject" in any case.
func ParseDecision(s string) (Decision, bool) {
	switch Decision(strings.ToUpper(strings.TrimSpace(s))) {
	case DecisionApprove:
		return DecisionApprove, true
	case DecisionReject:
		return DecisionReject, true
	default:
		return "", false
	}
}

// Outcome is the donation status a decision lands on.
func (d Decision) Outcome() (DonationStatus, bool) {
	switch d {
	case DecisionApprove:
		return DonationStatusApproved, true
	case DecisionReject:
		return DonationStatusRejected, true
	default:
		return "", false
	}
}

type Activity struct {
	ID           string         `gorm:"column:id;primaryKey;type:varchar(32)" json:"id"`
	Slug         string         `gorm:"column:slug;type:varchar(255);index" json:"slug"`
	Title        string         `gorm:"column:title;type:varchar(255);not null" json:"title"`
	Description  string         `gorm:"column:description;type:text;not null" json:"description"`
	PhotoURL     string         `gorm:"column:photo_url;type:text" json:"photo_url,omitempty"`
	QrisURL      string         `gorm:"column:qris_url;type:text" json:"qris_url,omitempty"`
	TargetAmount int64          `gorm:"column:target_amount;not null" json:"target_amount"`
	StartDate    time.Time      `gorm:"column:start_date;not null" json:"start_date"`
	EndDate      time.Time      `gorm:"column:end_date;not null" json:"end_date"`
	CreatorID    string         `gorm:"column:creator_id;type:varchar(64);index;not null" json:"creator_id"`
	Schedule     datatypes.JSON `gorm:"column:schedule" json:"schedule,omitempty"`
	Requirements datatypes.JSON `gorm:"column:requirements" json:"requirements,omitempty"`
	Gallery      datatypes.JSON `gorm:"column:gallery" json:"gallery,omitempty"`
	Status       ActivityStatus `gorm:"column:status;type:varchar(20);index;not null;default:'ACTIVE'" json:"status"`
	CreatedAt    time.Time      `gorm:"column:created_at;index" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"column:updated_at" json:"updated_at"`
}

func (Activity) TableName() string {
	return "activities"
}

// AcceptsDonations is true while the activity is ACTIVE and not past its end date.
func (a *Activity) AcceptsDonations(now time.Time) bool {
	return a.Status == ActivityStatusActive && !now.After(a.EndDate)
}

type Donation struct {
	ID          string         `gorm:"column:id;primaryKey;type:varchar(32)" json:"id"`
	Reference   string         `gorm:"column:reference;type:varchar(64);uniqueIndex;not null" json:"reference"`
	ActivityID  string         `gorm:"column:activity_id;type:varchar(32);index:idx_donations_activity_status;not null" json:"activity_id"`
	DonorID     *string        `gorm:"column:donor_id;type:varchar(64);index" json:"donor_id,omitempty"`
	DonorName   string         `gorm:"column:donor_name;type:varchar(255)" json:"donor_name"`
	DonorEmail  string         `gorm:"column:donor_email;type:varchar(255)" json:"donor_email,omitempty"`
	DonorPhone  string         `gorm:"column:donor_phone;type:varchar(32)" json:"donor_phone,omitempty"`
	Amount      int64          `gorm:"column:amount;not null" json:"amount"`
	ProofRef    string         `gorm:"column:proof_ref;type:text;not null" json:"proof_ref"`
	Message     string         `gorm:"column:message;type:text" json:"message,omitempty"`
	IsAnonymous bool           `gorm:"column:is_anonymous;not null;default:false" json:"is_anonymous"`
	Status      DonationStatus `gorm:"column:status;type:varchar(20);index:idx_donations_activity_status;not null;default:'PENDING'" json:"status"`
	VerifiedBy  *string        `gorm:"column:verified_by;type:varchar(64)" json:"verified_by,omitempty"`
	VerifiedAt  *time.Time     `gorm:"column:verified_at" json:"verified_at,omitempty"`
	AdminNote   string         `gorm:"column:admin_note;type:text" json:"admin_note,omitempty"`
	CreatedAt   time.Time      `gorm:"column:created_at;index" json:"created_at"`
}

func (Donation) TableName() string {
	return "donations"
}

// Aggregate is the approved-only roll-up for one activity.
type Aggregate struct {
	ActivityID string `gorm:"column:activity_id"`
	Collected  int64  `gorm:"column:collected"`
	DonorCount int64  `gorm:"column:donor_count"`
}
