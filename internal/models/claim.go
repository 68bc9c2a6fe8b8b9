package models

import (
	"time"

	"github.com/lib/pq"
)

// ClaimStatus enumerates the review states of a forest rights claim.
type ClaimStatus string

const (
	ClaimStatusPending     ClaimStatus = "pending"
	ClaimStatusApproved    ClaimStatus = "approved"
	ClaimStatusRejected    ClaimStatus = "rejected"
	ClaimStatusContested   ClaimStatus = "contested"
	ClaimStatusUnderReview ClaimStatus = "under_review"
)

// Valid reports whether s is a known claim status.
func (s ClaimStatus) Valid() bool {
	switch s {
	case ClaimStatusPending, ClaimStatusApproved, ClaimStatusRejected,
		ClaimStatusContested, ClaimStatusUnderReview:
		return true
	}
	return false
}

// ClaimType enumerates recognised categories of forest rights.
type ClaimType string

const (
	ClaimTypeIFR ClaimType = "Individual Forest Rights"
	ClaimTypeCFR ClaimType = "Community Forest Rights"
	ClaimTypeCR  ClaimType = "Community Rights"
)

// Valid reports whether t is a known claim type.
func (t ClaimType) Valid() bool {
	switch t {
	case ClaimTypeIFR, ClaimTypeCFR, ClaimTypeCR:
		return true
	}
	return false
}

// Claim is a filed forest rights request tied to one village.
// AI fields are assigned once at creation from a fixed area threshold rule.
type Claim struct {
	ID               string         `db:"id" json:"id"`
	ClaimNumber      string         `db:"claim_number" json:"claim_number"`
	BeneficiaryName  string         `db:"beneficiary_name" json:"beneficiary_name"`
	VillageID        string         `db:"village_id" json:"village_id"`
	ClaimType        ClaimType      `db:"claim_type" json:"claim_type"`
	Status           ClaimStatus    `db:"status" json:"status"`
	AreaClaimed      float64        `db:"area_claimed" json:"area_claimed"`
	SurveyNumbers    pq.StringArray `db:"survey_numbers" json:"survey_numbers"`
	Documents        pq.StringArray `db:"documents" json:"documents"`
	OCRConfidence    float64        `db:"ocr_confidence" json:"ocr_confidence"`
	AIRecommendation string         `db:"ai_recommendation" json:"ai_recommendation"`
	AIConfidence     float64        `db:"ai_confidence" json:"ai_confidence"`
	AssignedOfficer  *string        `db:"assigned_officer" json:"assigned_officer,omitempty"`
	LinkedSchemes    pq.StringArray `db:"linked_schemes" json:"linked_schemes"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}

// ClaimFilter encapsulates allowed search parameters for listing claims.
type ClaimFilter struct {
	Status          ClaimStatus
	VillageID       string
	AssignedOfficer string
	Limit           int
}
