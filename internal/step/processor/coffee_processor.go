// Package processor holds the coffee transforms. Each one is a pure function of its input: the
// record handed in is never modified.
package processor

import (
	"context"
	"strings"

	port "github.com/tigerroll/coffeebatch/pkg/batch/core/application/port"
	"github.com/tigerroll/coffeebatch/pkg/batch/support/util/exception"
	"github.com/tigerroll/coffeebatch/pkg/batch/support/util/logger"

	"github.com/tigerroll/coffeebatch/internal/domain/entity"
)

// PremiumPrefix is prepended to the characteristics of promoted coffees.
const PremiumPrefix = "Premium "

// Normalize returns the coffee described by r with brand, origin and characteristics uppercased.
// An absent field is reported as ErrNullField; an empty one is kept empty. Normalize is
// idempotent: normalizing RecordOf(Normalize(r)) yields the same coffee.
func Normalize(r entity.CoffeeRecord) (entity.Coffee, error) {
	fields := []struct {
		name  string
		value *string
	}{
		{"brand", r.Brand},
		{"origin", r.Origin},
		{"characteristics", r.Characteristics},
	}
	for _, f := range fields {
		if f.value == nil {
			return entity.Coffee{}, exception.NewBatchErrorf("coffee_processor", "cannot normalize %s: field '%s' is absent", r, f.name, exception.ErrNullField)
		}
	}
	return entity.Coffee{
		Brand:           strings.ToUpper(*r.Brand),
		Origin:          strings.ToUpper(*r.Origin),
		Characteristics: strings.ToUpper(*r.Characteristics),
	}, nil
}

// Promote returns a copy of c whose characteristics carry the PremiumPrefix.
// It is not idempotent: promoting twice yields "Premium Premium ...".
func Promote(c entity.Coffee) entity.Coffee {
	c.Characteristics = PremiumPrefix + c.Characteristics
	return c
}

// CoffeeItemProcessor uppercases every record of importCoffeeJob.
type CoffeeItemProcessor struct{}

func NewCoffeeItemProcessor() *CoffeeItemProcessor {
	return &CoffeeItemProcessor{}
}

func (p *CoffeeItemProcessor) Process(ctx context.Context, item *entity.CoffeeRecord) (*entity.Coffee, error) {
	if item == nil {
		return nil, nil
	}
	logger.Debugf("Processing coffee: %s", item)
	normalized, err := Normalize(*item)
	if err != nil {
		return nil, err
	}
	return &normalized, nil
}

// CoffeeItemPremiumProcessor promotes the Italian coffees of multiStepCoffeeJob.
type CoffeeItemPremiumProcessor struct{}

func NewCoffeeItemPremiumProcessor() *CoffeeItemPremiumProcessor {
	return &CoffeeItemPremiumProcessor{}
}

func (p *CoffeeItemPremiumProcessor) Process(ctx context.Context, item *entity.Coffee) (*entity.Coffee, error) {
	if item == nil {
		return nil, nil
	}
	promoted := Promote(*item)
	logger.Debugf("Process premium coffee: %s", promoted)
	return &promoted, nil
}

var (
	_ port.ItemProcessor[*entity.CoffeeRecord, *entity.Coffee] = (*CoffeeItemProcessor)(nil)
	_ port.ItemProcessor[*entity.Coffee, *entity.Coffee]       = (*CoffeeItemPremiumProcessor)(nil)
)
