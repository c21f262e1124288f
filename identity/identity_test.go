package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/itsneelabh/storesync/normalize"
)

func rec(t *testing.T, s string) normalize.Record {
	t.Helper()
	v, err := normalize.Decode([]byte(s))
	if err != nil {
		t.Fatalf("decode %s: %v", s, err)
	}
	return v.(normalize.Record)
}

func TestProductIDShapes(t *testing.T) {
	shapes := []string{
		`{"productId":"X","quantity":1}`,
		`{"productId":{"_id":"X","price":"20"}}`,
		`{"product":{"_id":"X"}}`,
		`{"product":{"id":"X"}}`,
		`{"_id":"X"}`,
		`{"id":"X"}`,
	}
	for _, s := range shapes {
		id, ok := ProductID(rec(t, s))
		assert.True(t, ok, s)
		assert.Equal(t, "X", id, s)
	}
}

func TestProductIDPriority(t *testing.T) {
	// A populated productId beats the line's own row id
	id, ok := ProductID(rec(t, `{"_id":"row-1","productId":{"_id":"p1"}}`))
	assert.True(t, ok)
	assert.Equal(t, "p1", id)

	// productId beats product
	id, _ = ProductID(rec(t, `{"productId":"p2","product":{"_id":"p3"}}`))
	assert.Equal(t, "p2", id)

	// product._id beats product.id
	id, _ = ProductID(rec(t, `{"product":{"_id":"a","id":"b"}}`))
	assert.Equal(t, "a", id)
}

func TestProductIDSkipsObjectsAndEmpties(t *testing.T) {
	// productId is an object without _id, so it is skipped in favour of product.id
	id, ok := ProductID(rec(t, `{"productId":{"name":"Rice"},"product":{"id":"p4"}}`))
	assert.True(t, ok)
	assert.Equal(t, "p4", id)

	id, ok = ProductID(rec(t, `{"productId":"","id":"p5"}`))
	assert.True(t, ok)
	assert.Equal(t, "p5", id)
}

func TestProductIDNumeric(t *testing.T) {
	id, ok := ProductID(rec(t, `{"productId":4641,"quantity":2}`))
	assert.True(t, ok)
	assert.Equal(t, "4641", id)
}

func TestProductIDUnresolvable(t *testing.T) {
	for _, s := range []string{`{}`, `{"quantity":3}`, `{"productId":null}`, `{"product":{"name":"x"}}`} {
		id, ok := ProductID(rec(t, s))
		assert.False(t, ok, s)
		assert.Empty(t, id, s)
	}
	_, ok := ProductID(nil)
	assert.False(t, ok)
}

func TestRecordAndOrderID(t *testing.T) {
	id, ok := RecordID(rec(t, `{"_id":"w1","id":"w2"}`))
	assert.True(t, ok)
	assert.Equal(t, "w1", id)

	id, ok = OrderID(rec(t, `{"orderId":"ORD-1","_id":"mongo"}`))
	assert.True(t, ok)
	assert.Equal(t, "ORD-1", id)

	id, ok = OrderID(rec(t, `{"_id":"mongo"}`))
	assert.True(t, ok)
	assert.Equal(t, "mongo", id)

	_, ok = OrderID(rec(t, `{}`))
	assert.False(t, ok)
}
