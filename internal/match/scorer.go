package match

import (
	"math"
	"sort"
	"time"

	"github.com/matchflow/matchflow/internal/config"
	"github.com/matchflow/matchflow/internal/model"
)

// Component score weights. Amount agreement dominates, date proximity is a
// close second, and vendor text is the tiebreaker.
const (
	amountScoreExact = 40
	amountScoreClose = 20
	vendorScoreAlias = 25
	vendorScoreFuzzy = 15

	// fuzzyVendorThreshold is the minimum similarity for the fuzzy vendor
	// score to apply.
	fuzzyVendorThreshold = 0.70

	// amountEpsilon absorbs float representation noise so a diff of exactly
	// 0.10 lands in the inclusive band.
	amountEpsilon = 1e-9
)

// ComponentScores is the score breakdown for one receipt/transaction pair.
type ComponentScores struct {
	Amount int
	Date   int
	Vendor int
	Total  int
}

// ScoredCandidate pairs a candidate transaction with its score breakdown.
type ScoredCandidate struct {
	Transaction model.Transaction
	Scores      ComponentScores
}

// AmountScore scores the agreement between a receipt amount and a
// transaction amount. Bands are inclusive on the lower edge: a diff of
// exactly 0.10 still earns the full score.
func AmountScore(receiptAmount, transactionAmount float64) int {
	diff := math.Abs(receiptAmount - transactionAmount)
	switch {
	case diff <= 0.10+amountEpsilon:
		return amountScoreExact
	case diff <= 1.00+amountEpsilon:
		return amountScoreClose
	default:
		return 0
	}
}

// DateScore scores the calendar-day distance between receipt and
// transaction dates.
func DateScore(receiptDate, transactionDate time.Time) int {
	days := daysBetween(receiptDate, transactionDate)
	switch {
	case days == 0:
		return 35
	case days == 1:
		return 30
	case days <= 3:
		return 25
	case days <= 7:
		return 10
	default:
		return 0
	}
}

// VendorScore scores vendor agreement. An exact hit against the vendor
// alias table earns the full score; otherwise fuzzy similarity between the
// receipt vendor and either the raw description or its extracted key must
// clear the threshold.
func VendorScore(receiptVendor, transactionDescription string, aliasMatched bool) int {
	if aliasMatched {
		return vendorScoreAlias
	}
	if receiptVendor == "" {
		return 0
	}

	sim := Similarity(receiptVendor, transactionDescription)
	if keySim := Similarity(receiptVendor, ExtractVendorKey(transactionDescription)); keySim > sim {
		sim = keySim
	}

	if sim > fuzzyVendorThreshold {
		return vendorScoreFuzzy
	}
	return 0
}

// ScoreCandidate computes the full component breakdown for one
// receipt/transaction pair. It is pure: no storage access, no mutation.
func ScoreCandidate(receipt model.Receipt, txn model.Transaction, aliasMatched bool) ComponentScores {
	scores := ComponentScores{
		Amount: AmountScore(receipt.Amount, txn.Amount),
		Date:   DateScore(receipt.Date, txn.Date),
		Vendor: VendorScore(receipt.VendorText(), txn.Description, aliasMatched),
	}
	scores.Total = scores.Amount + scores.Date + scores.Vendor
	return scores
}

// SelectProposal picks the top candidate among those clearing the minimum
// confidence threshold. When the runner-up scores within the ambiguity
// margin of the winner (inclusive), the proposal is flagged ambiguous and
// must be resolved manually rather than auto-confirmed.
func SelectProposal(candidates []ScoredCandidate, cfg config.Engine) (best *ScoredCandidate, ambiguous bool) {
	qualified := make([]ScoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Scores.Total >= cfg.MinConfidence {
			qualified = append(qualified, c)
		}
	}
	if len(qualified) == 0 {
		return nil, false
	}

	sort.SliceStable(qualified, func(i, j int) bool {
		return qualified[i].Scores.Total > qualified[j].Scores.Total
	})

	top := qualified[0]
	if len(qualified) > 1 && top.Scores.Total-qualified[1].Scores.Total <= cfg.AmbiguityMargin {
		return &top, true
	}
	return &top, false
}

// daysBetween returns the absolute whole-day difference between two dates,
// ignoring time-of-day components.
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)

	days := int(da.Sub(db).Hours() / 24)
	if days < 0 {
		days = -days
	}
	return days
}
