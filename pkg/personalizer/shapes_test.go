package personalizer

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		shape Shape
		want  []Suggestion
	}{
		{
			name:  "bare array of objects",
			raw:   `[{"id":"e1","title":"Cooking class"},{"id":"e2"}]`,
			shape: ShapeArray,
			want:  []Suggestion{{"id": "e1", "title": "Cooking class"}, {"id": "e2"}},
		},
		{
			name:  "array of bare ids",
			raw:   `["e1", 42, ""]`,
			shape: ShapeArray,
			want:  []Suggestion{{"id": "e1"}, {"id": "42"}},
		},
		{
			name:  "object wrapping a list",
			raw:   `{"query":"music","suggestions":[{"product_id":"e7"}]}`,
			shape: ShapeObjectWithArrayField,
			want:  []Suggestion{{"product_id": "e7"}},
		},
		{
			name:  "object wrapping an unnamed list",
			raw:   `{"meta":{"k":1},"zz":[{"id":"e3"}]}`,
			shape: ShapeObjectWithArrayField,
			want:  []Suggestion{{"id": "e3"}},
		},
		{
			name:  "single object",
			raw:   `{"title":"Hot air balloon","photo":"https://img/1.jpg"}`,
			shape: ShapeSingleObject,
			want:  []Suggestion{{"title": "Hot air balloon", "photo": "https://img/1.jpg"}},
		},
		{
			name:  "null",
			raw:   `null`,
			shape: ShapeEmpty,
		},
		{
			name:  "empty object",
			raw:   `{}`,
			shape: ShapeEmpty,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shape, items, err := Classify([]byte(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.shape, shape, shape.String())
			if diff := cmp.Diff(tt.want, items); diff != "" && len(tt.want) > 0 {
				t.Fatalf("items mismatch (-want +got):\n%s", diff)
			}
			if len(tt.want) == 0 {
				assert.Empty(t, items)
			}
		})
	}
}

func TestClassifyRejectsScalars(t *testing.T) {
	_, _, err := Classify([]byte(`"just text"`))
	assert.Error(t, err)
}

func TestCatalogIDPrefersFieldOrder(t *testing.T) {
	assert.Equal(t, "a", Suggestion{"id": "a", "experience_id": "b"}.CatalogID())
	assert.Equal(t, "b", Suggestion{"experienceId": "b"}.CatalogID())
	assert.Equal(t, "17", Suggestion{"product_id": float64(17)}.CatalogID())
	assert.Empty(t, Suggestion{"title": "x"}.CatalogID())
}
