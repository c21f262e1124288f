package normalize

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestDecimalCoercion(t *testing.T) {
	r := decode(t, `{"a":"20","b":20,"c":20.5,"d":"abc","e":"","f":null}`).(Record)

	d, ok := Decimal(r["a"])
	assert.True(t, ok)
	assert.True(t, d.Equal(decimal.NewFromInt(20)))

	d, ok = Decimal(r["b"])
	assert.True(t, ok)
	assert.True(t, d.Equal(decimal.NewFromInt(20)))

	d, ok = Decimal(r["c"])
	assert.True(t, ok)
	assert.Equal(t, "20.5", d.String())

	_, ok = Decimal(r["d"])
	assert.False(t, ok)
	_, ok = Decimal(r["e"])
	assert.False(t, ok)
	_, ok = Decimal(r["f"])
	assert.False(t, ok)
}

func TestIntCoercion(t *testing.T) {
	cases := []struct {
		in   interface{}
		want int
		ok   bool
	}{
		{"5", 5, true},
		{" 7 ", 7, true},
		{"3.9", 3, true},
		{float64(-2), -2, true},
		{decode(t, `150`), 150, true},
		{"1e20", math.MaxInt, true},
		{json.Number("99999999999999999999"), math.MaxInt, true},
		{-1e20, math.MinInt, true},
		{"NaN", 0, false},
		{"x", 0, false},
		{nil, 0, false},
		{map[string]interface{}{}, 0, false},
	}
	for _, c := range cases {
		got, ok := Int(c.in)
		assert.Equal(t, c.ok, ok, "%v", c.in)
		assert.Equal(t, c.want, got, "%v", c.in)
	}
}

func TestScalar(t *testing.T) {
	s, ok := Scalar("abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", s)

	s, ok = Scalar(float64(4641))
	assert.True(t, ok)
	assert.Equal(t, "4641", s)

	s, ok = Scalar(decode(t, `12`))
	assert.True(t, ok)
	assert.Equal(t, "12", s)

	_, ok = Scalar("")
	assert.False(t, ok)
	_, ok = Scalar(map[string]interface{}{"_id": "x"})
	assert.False(t, ok)
	_, ok = Scalar(nil)
	assert.False(t, ok)
}

func TestLookupAndFirst(t *testing.T) {
	r := decode(t, `{"orderInfo":{"total":"310"},"status":null,"data":{"orderId":"o9"}}`).(Record)

	v, ok := Lookup(r, "orderInfo", "total")
	assert.True(t, ok)
	assert.Equal(t, "310", v)

	_, ok = Lookup(r, "status")
	assert.False(t, ok)

	_, ok = Lookup(r, "orderInfo", "total", "deeper")
	assert.False(t, ok)

	v, ok = First(r, "totalAmount", "orderInfo.total")
	assert.True(t, ok)
	assert.Equal(t, "310", v)

	assert.Equal(t, "o9", String(r, "orderId", "data.orderId"))

	d, ok := DecimalAt(r, "total", "orderInfo.total")
	assert.True(t, ok)
	assert.Equal(t, "310", d.String())
}

func TestBool(t *testing.T) {
	b, ok := Bool(true)
	assert.True(t, ok)
	assert.True(t, b)

	b, ok = Bool("false")
	assert.True(t, ok)
	assert.False(t, b)

	_, ok = Bool(1)
	assert.False(t, ok)
}
