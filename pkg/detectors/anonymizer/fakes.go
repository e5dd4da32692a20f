package anonymizer

import (
	"crypto/md5" // #nosec G501 -- non-cryptographic, keys deterministic placeholders
	"encoding/hex"
	"fmt"
	"strings"
)

// Substitute pools draw exclusively from reserved ranges (RFC 2606 domains,
// the 555 exchange and documentation block 192.0.2.0/24) so a fake value can
// never collide with a real-world routable identifier.
var (
	fakeEmailDomains = []string{
		"example.com",
		"example.org",
		"example.net",
		"test.com",
		"demo.io",
	}

	fakeAreaCodes = []string{"555", "510", "520", "530"}

	fakePersonPrefixes = []string{"Person", "User", "Individual", "Entity"}

	fakeLocationPrefixes = []string{"Location", "Place", "City", "Area"}
)

// contentHash gives a deterministic digest of the original value: the same
// input always yields the same fake, even across cache misses.
func contentHash(original string) []byte {
	sum := md5.Sum([]byte(original)) // #nosec G401
	return sum[:]
}

func hexDigest(original string) string {
	return hex.EncodeToString(contentHash(original))
}

func pickFrom(pool []string, original string) string {
	return pool[int(contentHash(original)[0])%len(pool)]
}

func fakeEmail(original string) string {
	suffix := hexDigest(original)[:6]
	domain := pickFrom(fakeEmailDomains, original)
	return fmt.Sprintf("user_%s@%s", suffix, domain)
}

// fakePhone builds a number in a reserved area code, mirroring the
// formatting of the original (parentheses, dashes, or bare digits).
func fakePhone(original string) string {
	areaCode := pickFrom(fakeAreaCodes, original)
	digits := hashDigits(original, 7)

	switch {
	case strings.Contains(original, "(") && strings.Contains(original, ")"):
		return fmt.Sprintf("(%s) %s-%s", areaCode, digits[:3], digits[3:])
	case strings.Contains(original, "-"):
		return fmt.Sprintf("%s-%s-%s", areaCode, digits[:3], digits[3:])
	default:
		return areaCode + digits
	}
}

func fakePerson(original string) string {
	suffix := strings.ToUpper(hexDigest(original)[:4])
	return fmt.Sprintf("%s %s", pickFrom(fakePersonPrefixes, original), suffix)
}

func fakeLocation(original string) string {
	suffix := strings.ToUpper(hexDigest(original)[:4])
	return fmt.Sprintf("%s %s", pickFrom(fakeLocationPrefixes, original), suffix)
}

// fakeIP yields an address in the documentation block 192.0.2.0/24.
func fakeIP(original string) string {
	host := int(contentHash(original)[1])%254 + 1
	return fmt.Sprintf("192.0.2.%d", host)
}

// hashDigits derives n decimal digits from the content hash.
func hashDigits(original string, n int) string {
	sum := contentHash(original)
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteByte('0' + sum[i%len(sum)]%10)
	}
	return b.String()
}
