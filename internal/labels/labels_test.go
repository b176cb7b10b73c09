package labels

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/matthewbaird/dashboard/internal/types"
)

func TestExtract(t *testing.T) {
	states := map[string]string{"posted": "Posted", "draft": "Draft"}
	tests := []struct {
		name string
		row  types.GroupRow
		spec string
		enum map[string]string
		want string
	}{
		{name: "relation", row: types.GroupRow{"partner_id": types.RelationRef{ID: int64(2), Name: "Acme"}}, spec: "partner_id", want: "Acme"},
		{name: "pair", row: types.GroupRow{"partner_id": []any{int64(2), "Acme"}}, spec: "partner_id", want: "Acme"},
		{name: "enum", row: types.GroupRow{"state": "posted"}, spec: "state", enum: states, want: "Posted"},
		{name: "enum miss", row: types.GroupRow{"state": "cancel"}, spec: "state", enum: states, want: "cancel"},
		{name: "full spec first", row: types.GroupRow{"date:month": "mars 2024", "date": "2024-03-05"}, spec: "date:month", want: "mars 2024"},
		{name: "base field fallback", row: types.GroupRow{"date": "2024"}, spec: "date:year", want: "2024"},
		{name: "null", row: types.GroupRow{"state": nil}, spec: "state", enum: states, want: Undefined},
		{name: "absent", row: types.GroupRow{}, spec: "region", want: Undefined},
		{name: "number", row: types.GroupRow{"qty": int64(15)}, spec: "qty", want: "15"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Extract(tt.row, types.ParseFieldSpec(tt.spec), tt.enum))
		})
	}
}

func TestSmartSortKey_Tiers(t *testing.T) {
	janvier := SmartSortKey("janvier 2024")
	fevrier := SmartSortKey("Février 2024")
	fifteen := SmartSortKey("15")
	abc := SmartSortKey("abc")

	assert.True(t, janvier.Less(fevrier))
	assert.True(t, fevrier.Less(fifteen))
	assert.True(t, janvier.Less(fifteen))
	assert.True(t, fifteen.Less(abc))

	assert.True(t, SmartSortKey("décembre 2023").Less(janvier))
	assert.True(t, SmartSortKey("2024").Less(fifteen))
	assert.True(t, SmartSortKey("2023").Less(janvier))
	assert.True(t, SmartSortKey("12/2023").Less(SmartSortKey("01/2024")))
	assert.True(t, SmartSortKey("Q4/2023").Less(SmartSortKey("Q1/2024")))
	assert.True(t, SmartSortKey("W09/2024").Less(SmartSortKey("W10/2024")))
	assert.True(t, SmartSortKey("31/01/2024").Less(SmartSortKey("01/02/2024")))
}

func TestSmartSortKey_Numbers(t *testing.T) {
	assert.True(t, SmartSortKey("2,5").Less(SmartSortKey("10")))
	assert.True(t, SmartSortKey("-3").Less(SmartSortKey("1 000")))
	assert.Equal(t, 0, SmartSortKey("12 345,5").Compare(SmartSortKey("12345.5")))
	// 13/2024 is not a month.
	assert.True(t, SmartSortKey("15").Less(SmartSortKey("13/2024")))
}

func TestSmartSortKey_Text(t *testing.T) {
	assert.Equal(t, 0, SmartSortKey("ABC").Compare(SmartSortKey("abc")))
	assert.True(t, SmartSortKey("Alpha").Less(SmartSortKey("beta")))
	// Unknown month names fall through to text.
	assert.True(t, SmartSortKey("15").Less(SmartSortKey("Total 2024")))
}

func TestSortKey_Nil(t *testing.T) {
	empty := SortKey(nil)
	label := "abc"
	assert.True(t, SmartSortKey("99").Less(empty))
	assert.True(t, empty.Less(SortKey(&label)))
}

type row struct {
	label  string
	values []float64
}

func (r row) SortLabel() string { return r.label }

func (r row) SortTotal() float64 {
	var sum float64
	for _, v := range r.values {
		sum += v
	}
	return sum
}

func labelsOf(rows []row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.label
	}
	return out
}

func TestSortAndLimit_ByTotalSeesAllRows(t *testing.T) {
	rows := []row{
		{"a", []float64{1}},
		{"b", []float64{2}},
		{"c", []float64{9}},
		{"d", []float64{3, 4}},
		{"e", []float64{0.5}},
	}

	got := SortAndLimit(rows, Policy{ByTotal: true, Desc: true, Limit: 2})
	assert.Equal(t, []string{"c", "d"}, labelsOf(got))

	got = SortAndLimit(rows, Policy{ByTotal: true, Limit: 2})
	assert.Equal(t, []string{"e", "a"}, labelsOf(got))

	// Input order untouched.
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, labelsOf(rows))
}

func TestSortAndLimit_ByLabel(t *testing.T) {
	rows := []row{
		{label: "mars 2024"},
		{label: "abc"},
		{label: "janvier 2024"},
		{label: "15"},
		{label: "février 2024"},
	}

	got := SortAndLimit(rows, Policy{})
	assert.Equal(t, []string{"janvier 2024", "février 2024", "mars 2024", "15", "abc"}, labelsOf(got))

	got = SortAndLimit(rows, Policy{Desc: true, Limit: 3})
	assert.Equal(t, []string{"abc", "15", "mars 2024"}, labelsOf(got))
}

func TestSortAndLimit_StableTies(t *testing.T) {
	rows := []row{{"x", []float64{1}}, {"y", []float64{1}}, {"z", []float64{2}}}

	assert.Equal(t, []string{"z", "x", "y"}, labelsOf(SortAndLimit(rows, Policy{ByTotal: true, Desc: true})))
	assert.Equal(t, []string{"x", "y", "z"}, labelsOf(SortAndLimit(rows, Policy{ByTotal: true})))
	assert.Empty(t, SortAndLimit([]row(nil), Policy{Limit: 3}))
}
