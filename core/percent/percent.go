// percent implements a simple and straightforward type for percentage values
package percent

import (
	"math"
	"strconv"
	"strings"
)

// Percent is a simple and straightforward type for percentage values
type Percent uint8

func FromInt(n int) Percent {
	switch {
	case n <= 0:
		return Percent(0)
	case n >= 100:
		return Percent(100)
	}
	return Percent(n)
}

func FromFloat(f float64) Percent {
	switch {
	case f <= 0 || math.IsNaN(f) || math.IsInf(f, -1):
		return Percent(0)
	case f >= 100 || math.IsInf(f, 1):
		return Percent(100)
	}
	return Percent(math.Round(f))
}

func FromString(s string) (Percent, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "%")
	n, err := strconv.Atoi(s)
	if err != nil {
		return Percent(0), err
	}
	return FromInt(n), nil
}

// Ratio expresses part as a percentage of whole, e.g. for size-savings
// reports. A non-positive whole yields 0.
func Ratio(part, whole int64) Percent {
	if whole <= 0 {
		return Percent(0)
	}
	return FromFloat(float64(part) / float64(whole) * 100)
}

func (p Percent) String() string {
	return strconv.Itoa(int(p)) + "%"
}
