package matching

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"invoice-reconciliation-backend/internal/models"
)

// Score is the outcome of scoring one transaction/invoice pair.
type Score struct {
	Confidence       float64
	AmountDifference decimal.Decimal
	AmountScore      float64
	TextScore        float64 // 0..1 textual correlation
}

// Scorer computes a 0-100 confidence that a bank transaction pays a given
// invoice. Implementations must be monotonically decreasing in the amount
// difference relative to the invoice's remaining amount.
type Scorer interface {
	Score(tx *models.BankTransaction, inv *models.Invoice) Score
}

// AmountTextScorer is the default strategy: amount closeness sets the base
// score, textual correlation between the transaction's counterparty name and
// description and the invoice's contract name and code adds a bounded boost.
type AmountTextScorer struct {
	// TextBoost is the maximum number of confidence points the textual
	// correlation can contribute.
	TextBoost float64
}

func NewAmountTextScorer(textBoost float64) *AmountTextScorer {
	return &AmountTextScorer{TextBoost: textBoost}
}

func (s *AmountTextScorer) Score(tx *models.BankTransaction, inv *models.Invoice) Score {
	diff := tx.Amount.Sub(inv.RemainingAmount).Abs()

	if inv.RemainingAmount.LessThanOrEqual(decimal.Zero) {
		return Score{AmountDifference: diff}
	}

	// An exact amount scores 100; a 1% gap scores 80; a 5% gap scores 0.
	rel := diff.Div(inv.RemainingAmount).InexactFloat64()
	amountScore := 100 - 2000*rel
	if amountScore < 0 {
		amountScore = 0
	}

	text := textCorrelation(tx, inv)

	confidence := math.Min(100, amountScore+s.TextBoost*text)
	return Score{
		Confidence:       confidence,
		AmountDifference: diff,
		AmountScore:      amountScore,
		TextScore:        text,
	}
}

// textCorrelation returns 0..1. An exact contract-code hit in the transaction
// text is a full signal; otherwise the contract name is compared token-wise.
func textCorrelation(tx *models.BankTransaction, inv *models.Invoice) float64 {
	haystack := normalizeName(tx.CounterpartyName + " " + tx.Description)
	if inv.ContractCode != "" && strings.Contains(haystack, normalizeName(inv.ContractCode)) {
		return 1
	}
	return nameSimilarity(haystack, normalizeName(inv.ContractName))
}

// nameSimilarity averages, over the invoice-side tokens, the best Levenshtein
// similarity against any transaction-side token.
func nameSimilarity(haystack, name string) float64 {
	hTokens := strings.Fields(haystack)
	nTokens := strings.Fields(name)
	if len(nTokens) == 0 || len(hTokens) == 0 {
		return 0
	}

	total := 0.0
	for _, nameTok := range nTokens {
		best := 0.0
		for _, hayTok := range hTokens {
			dist := levenshtein(nameTok, hayTok)
			maxLen := math.Max(float64(len(nameTok)), float64(len(hayTok)))
			sim := 1 - float64(dist)/maxLen
			if sim > best {
				best = sim
			}
		}
		total += best
	}
	return total / float64(len(nTokens))
}

func normalizeName(s string) string {
	s = strings.ToUpper(s)
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, "-", " ")
	s = strings.TrimSpace(s)
	return s
}

func levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	dp := make([][]int, len(a)+1)
	for i := range dp {
		dp[i] = make([]int, len(b)+1)
	}

	for i := 0; i <= len(a); i++ {
		dp[i][0] = i
	}
	for j := 0; j <= len(b); j++ {
		dp[0][j] = j
	}

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			dp[i][j] = minOf(
				dp[i-1][j]+1,
				dp[i][j-1]+1,
				dp[i-1][j-1]+cost,
			)
		}
	}
	return dp[len(a)][len(b)]
}

func minOf(a, b, c int) int {
	if a < b && a < c {
		return a
	}
	if b < c {
		return b
	}
	return c
}
