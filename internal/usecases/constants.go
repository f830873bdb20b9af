package usecases

import "time"

// Referral rewards: flat share of every credited purchase, paid in both
// USD accounting and tokens.
const ReferralRewardPercent = 10

// referral credits reuse the purchase order id with this prefix so the
// on-chain record stays traceable to the originating payment
const ReferralOrderPrefix = "ref_"

// BindChallengeTTL bounds how long a wallet-binding challenge stays valid.
const BindChallengeTTL = 10 * time.Minute

const PriceCurrencyUSD = "usd"

// pay currencies accepted for hosted invoices
var allowedPayCurrencies = map[string]bool{
	"":          true, // buyer picks on the hosted page
	"btc":       true,
	"eth":       true,
	"sol":       true,
	"usdttrc20": true,
	"usdterc20": true,
	"usdc":      true,
	"bnbbsc":    true,
	"ltc":       true,
	"xrp":       true,
	"trx":       true,
	"ton":       true,
	"doge":      true,
}
