package complaint

import (
	"complaintdesk/backend/internal/config"
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"
)

const base36 = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewReferenceID builds a tracking code of the form NITF-<base36 unix ms>-<suffix>.
func NewReferenceID(now time.Time) (string, error) {
	suffix, err := randomBase36(config.ReferenceSuffixLen)
	if err != nil {
		return "", fmt.Errorf("failed to generate reference suffix: %w", err)
	}
	stamp := strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))
	return config.ReferencePrefix + "-" + stamp + "-" + suffix, nil
}

func randomBase36(n int) (string, error) {
	limit := big.NewInt(int64(len(base36)))
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		v, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		b.WriteByte(base36[v.Int64()])
	}
	return b.String(), nil
}
