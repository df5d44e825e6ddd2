package exchange

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha384"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/chidi150c/tradebackend/internal/domain"
	"github.com/shopspring/decimal"
)

func hmacHexSHA256(secret, msg string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(msg))
	return hex.EncodeToString(mac.Sum(nil))
}

func hmacHexSHA512(secret, msg string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(msg))
	return hex.EncodeToString(mac.Sum(nil))
}

func hmacB64SHA256(secret, msg string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(msg))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func hmacB64SHA384(secret, msg string) string {
	mac := hmac.New(sha384.New, []byte(secret))
	mac.Write([]byte(msg))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func hmacB64SHA512(secretBytes, msg []byte) string {
	mac := hmac.New(sha512.New, secretBytes)
	mac.Write(msg)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// quoteSuffixes are tried longest-first when splitting a concatenated
// "BASEQUOTE" pair into its two legs; order matters ("USDT" before "BTC" so
// "ETHUSDT" doesn't wrongly match a trailing "BTC" that isn't there, and
// longer codes are tried before the 3-letter ones they could otherwise be
// mistaken for).
var quoteSuffixes = []string{"USDT", "USDC", "ZAR", "BTC", "ETH", "EUR", "USD"}

// splitPair splits a canonical concatenated "BASEQUOTE" pair (spec §4.1's
// canonical form, e.g. "BTCUSDT") into its two legs by matching a known quote
// currency suffix, longest first.
func splitPair(pair string) (base, quote string) {
	for _, q := range quoteSuffixes {
		if strings.HasSuffix(pair, q) && len(pair) > len(q) {
			return pair[:len(pair)-len(q)], q
		}
	}
	return pair, ""
}

// canonicalizePair inverts a venue's own pair symbol back into the canonical
// concatenated "BASEQUOTE" form (spec §4.1): strip any separator or
// venue-specific suffix, then uppercase. Every adapter's ToVenuePair is just
// base+quote joined by its own separator or suffix, so undoing that join
// always recovers the canonical pair it started from — no per-adapter
// quote-currency guessing needed on the way back.
func canonicalizePair(venue string) string {
	venue = strings.TrimSuffix(venue, "_SPBL")
	venue = strings.NewReplacer("-", "", "_", "", "/", "").Replace(venue)
	return strings.ToUpper(venue)
}

// decOrZero parses a numeric JSON field (often transported as a string by
// exchanges to avoid float precision loss) into a decimal.Decimal, defaulting
// to zero on a malformed value rather than panicking mid-scan.
func decOrZero(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// decFromAny coerces a JSON-decoded interface{} (string or float64) to decimal.
func decFromAny(v interface{}) decimal.Decimal {
	switch t := v.(type) {
	case string:
		return decOrZero(t)
	case float64:
		return decimal.NewFromFloat(t)
	default:
		return decimal.Zero
	}
}

func urlEncodeQuery(q url.Values) string {
	return q.Encode()
}

func mustJSON(v interface{}) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return b
}

func newVenueError(venue string, err error) error {
	if verr, ok := err.(*VenueError); ok {
		return verr
	}
	return fmt.Errorf("%s: %w", venue, err)
}

// intervalTable maps canonical intervals to a venue's own interval strings.
// Adapters build one of these from a literal map and use it for
// ToVenueInterval; it maps canonical to venue only, with no reverse lookup.
type intervalTable map[domain.Interval]string

func (t intervalTable) toVenue(iv domain.Interval) string {
	if s, ok := t[iv]; ok {
		return s
	}
	return t[domain.Interval1h]
}
