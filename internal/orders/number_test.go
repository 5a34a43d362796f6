package orders

import (
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var orderNumberPattern = regexp.MustCompile(`^SH-\d{9}$`)

func TestNewOrderNumberFormat(t *testing.T) {
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 20; i++ {
		assert.Regexp(t, orderNumberPattern, NewOrderNumber(now))
	}
}

func TestNewOrderNumberEmbedsTimestamp(t *testing.T) {
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

	ts := strconv.FormatInt(now.UnixMilli(), 10)
	ts = ts[len(ts)-6:]

	number := NewOrderNumber(now)
	assert.True(t, strings.HasPrefix(number, "SH-"+ts), "got %s, want prefix SH-%s", number, ts)
}
