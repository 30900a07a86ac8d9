package risk

import (
	"context"
	"fmt"
	"math"
	"math/big"

	"MicroPaper/internal/market"
)

// ProtectionStore is the read-only surface the waterfall engine needs.
// Implementations return only rows relevant to coverage: active collateral
// and active guarantees; insurance contributions are never retired.
type ProtectionStore interface {
	GetNote(ctx context.Context, noteID int64) (*market.Note, error)
	ListActiveCollateral(ctx context.Context, noteID int64) ([]*market.CollateralAsset, error)
	ListActiveGuarantees(ctx context.Context, noteID int64) ([]*market.Guarantee, error)
	SumInsuranceContributions(ctx context.Context, noteID int64) (int64, error)
}

// Breakdown is the protection waterfall for one note. All money fields are
// integer minor units; ProtectionPercent is fixed to two decimals.
type Breakdown struct {
	NoteID             int64   `json:"note_id"`
	FaceValue          int64   `json:"face_value"`
	CollateralCoverage int64   `json:"collateral_coverage"`
	GuaranteeCoverage  int64   `json:"guarantee_coverage"`
	InsurancePoolClaim int64   `json:"insurance_pool_claim"`
	UncoveredExposure  int64   `json:"uncovered_exposure"`
	ProtectionPercent  float64 `json:"protection_percent"`
	ProtectionSummary  string  `json:"protection_summary"`
}

// WaterfallEngine computes the investor protection breakdown for a note.
// Layers are consumed in order on default: collateral, then guarantees,
// then the insurance pool. The computation is a pure read.
type WaterfallEngine struct {
	store ProtectionStore
}

func NewWaterfallEngine(store ProtectionStore) *WaterfallEngine {
	return &WaterfallEngine{store: store}
}

// ProtectionBreakdown aggregates the three protection layers and deducts
// them sequentially from the face value.
func (e *WaterfallEngine) ProtectionBreakdown(ctx context.Context, noteID int64) (*Breakdown, error) {
	note, err := e.store.GetNote(ctx, noteID)
	if err != nil {
		return nil, fmt.Errorf("get note: %w", err)
	}
	if note == nil {
		return nil, fmt.Errorf("note %d: %w", noteID, market.ErrNoteNotFound)
	}

	faceValue := note.Amount

	collateral, err := e.store.ListActiveCollateral(ctx, noteID)
	if err != nil {
		return nil, fmt.Errorf("list collateral: %w", err)
	}
	var collateralCoverage int64
	for _, asset := range collateral {
		collateralCoverage += asset.ValuationCents
	}

	guarantees, err := e.store.ListActiveGuarantees(ctx, noteID)
	if err != nil {
		return nil, fmt.Errorf("list guarantees: %w", err)
	}
	var guaranteeCoverage int64
	for _, g := range guarantees {
		// floor(face_value * coverage_percent / 100), per guarantee
		guaranteeCoverage += faceValue * g.CoveragePercent / 100
	}
	// A stacked guarantee set cannot cover more than the face value.
	if guaranteeCoverage > faceValue {
		guaranteeCoverage = faceValue
	}

	insuranceClaim, err := e.store.SumInsuranceContributions(ctx, noteID)
	if err != nil {
		return nil, fmt.Errorf("sum insurance contributions: %w", err)
	}

	// Sequential deduction, not parallel summation: each layer only absorbs
	// what the previous layers left exposed.
	remaining := max64(0, faceValue-collateralCoverage)
	remaining = max64(0, remaining-guaranteeCoverage)
	uncovered := max64(0, remaining-insuranceClaim)

	percent := protectionPercent(faceValue, uncovered)

	return &Breakdown{
		NoteID:             noteID,
		FaceValue:          faceValue,
		CollateralCoverage: collateralCoverage,
		GuaranteeCoverage:  guaranteeCoverage,
		InsurancePoolClaim: insuranceClaim,
		UncoveredExposure:  uncovered,
		ProtectionPercent:  percent,
		ProtectionSummary:  fmt.Sprintf("%.0f%% Secured", percent),
	}, nil
}

func protectionPercent(faceValue, uncovered int64) float64 {
	if faceValue <= 0 {
		return 0
	}
	pct := new(big.Rat).SetFrac64((faceValue-uncovered)*100, faceValue)
	f, _ := pct.Float64()
	return math.Round(f*100) / 100
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
