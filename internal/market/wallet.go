package market

import "time"

// InvestorTier is the KYC classification of a wallet.
type InvestorTier string

const (
	TierRetail        InvestorTier = "retail"
	TierAccredited    InvestorTier = "accredited"
	TierInstitutional InvestorTier = "institutional"
)

func (t InvestorTier) Valid() bool {
	switch t {
	case TierRetail, TierAccredited, TierInstitutional:
		return true
	}
	return false
}

// WalletVerification is the KYC record for an investor wallet. Tier and
// Jurisdiction are empty when the wallet was verified before those fields
// existed; the compliance gate treats missing values as eligible.
type WalletVerification struct {
	WalletAddress string
	IsVerified    bool
	InvestorTier  InvestorTier
	Jurisdiction  string
	VerifiedBy    string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
