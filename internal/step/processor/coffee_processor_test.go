package processor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/coffeebatch/pkg/batch/support/util/exception"

	"github.com/tigerroll/coffeebatch/internal/domain/entity"
)

func TestNormalize_UppercasesAllFields(t *testing.T) {
	in := entity.NewCoffeeRecord("arabica", "Italy", "floral")
	out, err := Normalize(*in)
	require.NoError(t, err)
	assert.Equal(t, entity.Coffee{Brand: "ARABICA", Origin: "ITALY", Characteristics: "FLORAL"}, out)
	assert.Equal(t, "arabica", *in.Brand, "input must not be modified")
}

func TestNormalize_IsIdempotent(t *testing.T) {
	inputs := []*entity.CoffeeRecord{
		entity.NewCoffeeRecord("arabica", "brazil", "fruity"),
		entity.NewCoffeeRecord("Robusta", "VietNam", "earthy, bold"),
		entity.NewCoffeeRecord("liberica", "", "smoky"),
	}
	for _, in := range inputs {
		once, err := Normalize(*in)
		require.NoError(t, err)
		twice, err := Normalize(entity.RecordOf(once))
		require.NoError(t, err)
		assert.Equal(t, once, twice)
	}
}

func TestNormalize_EmptyFieldStaysEmpty(t *testing.T) {
	out, err := Normalize(*entity.NewCoffeeRecord("arabica", "", "fruity"))
	require.NoError(t, err)
	assert.Equal(t, entity.Coffee{Brand: "ARABICA", Origin: "", Characteristics: "FRUITY"}, out)
}

func TestNormalize_AbsentFieldIsNullField(t *testing.T) {
	present := func(s string) *string { return &s }
	cases := map[string]entity.CoffeeRecord{
		"brand":           {Origin: present("brazil"), Characteristics: present("fruity")},
		"origin":          {Brand: present("arabica"), Characteristics: present("fruity")},
		"characteristics": {Brand: present("arabica"), Origin: present("brazil")},
	}
	for field, in := range cases {
		t.Run(field, func(t *testing.T) {
			_, err := Normalize(in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, exception.ErrNullField))
			assert.True(t, exception.IsErrorOfType(err, exception.NullFieldError))
			assert.Contains(t, err.Error(), field)
		})
	}
}

func TestPromote_IsNotIdempotent(t *testing.T) {
	in := entity.Coffee{ID: 3, Brand: "ARABICA", Origin: "ITALY", Characteristics: "FLORAL"}
	once := Promote(in)
	assert.Equal(t, "Premium FLORAL", once.Characteristics)
	assert.Equal(t, int64(3), once.ID)
	assert.Equal(t, "Premium Premium FLORAL", Promote(once).Characteristics)
	assert.Equal(t, "FLORAL", in.Characteristics)
}

func TestItemProcessors(t *testing.T) {
	ctx := context.Background()

	normalized, err := NewCoffeeItemProcessor().Process(ctx, entity.NewCoffeeRecord("arabica", "italy", "floral"))
	require.NoError(t, err)
	assert.Equal(t, "ITALY", normalized.Origin)

	brand := "arabica"
	_, err = NewCoffeeItemProcessor().Process(ctx, &entity.CoffeeRecord{Brand: &brand})
	assert.ErrorIs(t, err, exception.ErrNullField)

	promoted, err := NewCoffeeItemPremiumProcessor().Process(ctx, normalized)
	require.NoError(t, err)
	assert.Equal(t, "Premium FLORAL", promoted.Characteristics)
	assert.Equal(t, "FLORAL", normalized.Characteristics)

	dropped, err := NewCoffeeItemPremiumProcessor().Process(ctx, nil)
	require.NoError(t, err)
	assert.Nil(t, dropped)
}
