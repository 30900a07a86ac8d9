package market

import "time"

// CollateralStatus marks whether a collateral asset still backs the note.
type CollateralStatus string

const (
	CollateralActive     CollateralStatus = "active"
	CollateralLiquidated CollateralStatus = "liquidated"
)

// CollateralAssetType is the kind of asset pledged against a note.
type CollateralAssetType string

const (
	CollateralCash        CollateralAssetType = "cash"
	CollateralReceivables CollateralAssetType = "receivables"
	CollateralInventory   CollateralAssetType = "inventory"
)

// CollateralAsset is one asset pledged against a note. ValuationCents is
// the appraised value in minor units.
type CollateralAsset struct {
	ID             int64
	NoteID         int64
	AssetType      CollateralAssetType
	Description    string
	ValuationCents int64
	Status         CollateralStatus
	CreatedAt      time.Time
}

// GuarantorType identifies who stands behind a guarantee.
type GuarantorType string

const (
	GuarantorPersonal      GuarantorType = "personal"
	GuarantorBank          GuarantorType = "bank"
	GuarantorSBA           GuarantorType = "sba"
	GuarantorInsurancePool GuarantorType = "insurance_pool"
)

// EnforcementStatus marks whether a guarantee is still in force.
type EnforcementStatus string

const (
	GuaranteeActive    EnforcementStatus = "active"
	GuaranteeTriggered EnforcementStatus = "triggered"
)

// Guarantee covers CoveragePercent of the note face value (0-100).
type Guarantee struct {
	ID                int64
	NoteID            int64
	GuarantorType     GuarantorType
	GuarantorName     string
	CoveragePercent   int64
	EnforcementStatus EnforcementStatus
	CreatedAt         time.Time
}

// InsurancePoolContribution is one paid-in contribution earmarked for a
// note. AmountCents is in minor units.
type InsurancePoolContribution struct {
	ID               int64
	NoteID           int64
	AmountCents      int64
	ContributionDate time.Time
}
