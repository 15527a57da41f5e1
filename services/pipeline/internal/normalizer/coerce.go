package normalizer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"jobmart/services/pipeline/internal/config"
	"jobmart/services/pipeline/internal/errors"
)

// coercer turns numeric-looking text into typed values. Empty text is
// always null; invalid text fails or nulls depending on the policy.
type coercer struct {
	policy  string
	logger  *zap.Logger
	invalid map[string]int
}

func newCoercer(policy string, logger *zap.Logger) *coercer {
	return &coercer{
		policy:  policy,
		logger:  logger,
		invalid: make(map[string]int),
	}
}

type fieldRef struct {
	table  string
	column string
	row    string
}

func (c *coercer) parse(ref fieldRef, v string, nonNegative bool) (*decimal.Decimal, error) {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(trimmed)
	if err == nil && nonNegative && d.IsNegative() {
		err = fmt.Errorf("negative value")
	}
	if err == nil {
		return &d, nil
	}

	if c.policy != config.CoercionLenient {
		return nil, errors.Coercion(
			fmt.Sprintf("%s.%s %s: %q is not a valid number", ref.table, ref.column, ref.row, v), err)
	}

	c.invalid[ref.table+"."+ref.column]++
	c.logger.Warn("non-numeric value coerced to null",
		zap.String("table", ref.table),
		zap.String("column", ref.column),
		zap.String("row", ref.row),
		zap.String("value", v),
		zap.Error(err))
	return nil, nil
}

func (c *coercer) float(ref fieldRef, v string) (*float64, error) {
	d, err := c.parse(ref, v, true)
	if err != nil || d == nil {
		return nil, err
	}
	f := d.InexactFloat64()
	return &f, nil
}

func (c *coercer) integer(ref fieldRef, v string) (*int64, error) {
	d, err := c.parse(ref, v, false)
	if err != nil || d == nil {
		return nil, err
	}
	i := d.Round(0).IntPart()
	return &i, nil
}

func (c *coercer) flag(ref fieldRef, v string) (*bool, error) {
	d, err := c.parse(ref, v, false)
	if err != nil || d == nil {
		return nil, err
	}
	b := !d.IsZero()
	return &b, nil
}

// summary logs the per-column count of nulled values.
func (c *coercer) summary() {
	if len(c.invalid) == 0 {
		return
	}
	keys := make([]string, 0, len(c.invalid))
	for k := range c.invalid {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		c.logger.Warn("column had non-numeric values",
			zap.String("column", k),
			zap.Int("count", c.invalid[k]))
	}
}
