package core

import (
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// FlexInt is an int that can also be decoded from a numeric JSON string, eg. "12".
// The front end does not always send ids as numbers.
type FlexInt int

func (i *FlexInt) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	s = strings.TrimSpace(strings.Trim(s, `"`))
	if s == "" {
		*i = 0
		return nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		*i = FlexInt(n)
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) {
		return errors.Errorf("invalid integer: %s", b)
	}
	*i = FlexInt(f)
	return nil
}

func (i FlexInt) Int() int { return int(i) }

func (i FlexInt) String() string { return strconv.Itoa(int(i)) }
