package document

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookcourier/courier-api/internal/apperr"
)

type record struct {
	ID    string  `json:"_id" dynamodbav:"_id"`
	Title string  `json:"title" dynamodbav:"title"`
	Price float64 `json:"price" dynamodbav:"price"`
	Extra Fields  `json:"-" dynamodbav:"-"`
}

func TestValidate(t *testing.T) {
	ok := Fields{
		"title":  "Dune",
		"pages":  float64(412),
		"signed": true,
		"note":   nil,
		"tags":   []any{"sci-fi", float64(1965)},
	}
	assert.NoError(t, ok.Validate())

	nested := Fields{"publisher": map[string]any{"name": "Chilton"}}
	err := nested.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))

	nestedArray := Fields{"matrix": []any{[]any{"a"}}}
	assert.Error(t, nestedArray.Validate())
}

func TestSplit(t *testing.T) {
	f := Fields{"title": "Dune", "price": 12.5, "language": "en"}

	var r record
	extra, err := Split(f, &r)
	require.NoError(t, err)

	assert.Equal(t, "Dune", r.Title)
	assert.Equal(t, 12.5, r.Price)
	assert.Equal(t, Fields{"language": "en"}, extra)
}

func TestSplit_TypeMismatch(t *testing.T) {
	var r record
	_, err := Split(Fields{"price": "twelve"}, &r)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))
}

func TestMarshalJSON_DeclaredFieldsWin(t *testing.T) {
	r := record{ID: "b1", Title: "Dune", Price: 9}
	raw, err := MarshalJSON(r, Fields{"title": "ignored", "language": "en"})
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, "Dune", out["title"])
	assert.Equal(t, "en", out["language"])
	assert.Equal(t, "b1", out["_id"])
}

func TestItemRoundTripKeepsExtraFields(t *testing.T) {
	in := record{ID: "b1", Title: "Dune", Price: 9}
	item, err := MarshalItem(in, Fields{"language": "en", "tags": []any{"classic"}})
	require.NoError(t, err)

	_, isString := item["_id"].(*types.AttributeValueMemberS)
	assert.True(t, isString)

	var out record
	extra, err := UnmarshalItem(item, &out)
	require.NoError(t, err)
	assert.Equal(t, in.Title, out.Title)
	assert.Equal(t, "en", extra["language"])
	assert.Equal(t, []any{"classic"}, extra["tags"])
	assert.NotContains(t, extra, "_id")
}

func TestMarshalItem_ExtraCannotSetDeclaredKeys(t *testing.T) {
	type order struct {
		ID         string `json:"_id" dynamodbav:"_id"`
		TrackingID string `json:"trackingId,omitempty" dynamodbav:"trackingId,omitempty"`
	}
	item, err := MarshalItem(order{ID: "o1"}, Fields{"trackingId": "PRCL-FAKE", "gift": true})
	require.NoError(t, err)
	assert.NotContains(t, item, "trackingId")
	assert.Contains(t, item, "gift")

	raw, err := MarshalJSON(order{ID: "o1"}, Fields{"trackingId": "PRCL-FAKE"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"_id":"o1"}`, string(raw))
}
