package clientdata

import "time"

// TTL constants for the view caches.
// These are added to time.Now() when storing to calculate expires_at.
// A completed price refresh invalidates all of them regardless of TTL.
const (
	TTLMarketPrices      = 15 * time.Minute // matches the automatic refresh cadence
	TTLPortfolios        = time.Hour
	TTLBreakEvenAnalysis = time.Hour
	TTLPortfolioSummary  = 30 * time.Minute
)

// TTLFor returns the default TTL of a view-cache table.
func TTLFor(table string) time.Duration {
	switch table {
	case TableMarketPrices:
		return TTLMarketPrices
	case TablePortfolios:
		return TTLPortfolios
	case TableBreakEvenAnalysis:
		return TTLBreakEvenAnalysis
	case TablePortfolioSummary:
		return TTLPortfolioSummary
	default:
		return 0
	}
}
