package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilter_EmptyMatchesEverything(t *testing.T) {
	var f Filter
	assert.Equal(t, 0, f.Len())

	b, err := where(userTable.selectAll(), f, userTable.Fields)
	require.NoError(t, err)

	query, args, err := b.ToSql()
	require.NoError(t, err)
	assert.NotContains(t, query, "WHERE")
	assert.Empty(t, args)
}

func TestFilter_CombinesConditionsWithAnd(t *testing.T) {
	f := Where(Eq(FieldUsername, "bob"), Contains(FieldLastname, "sm"))

	cond, err := f.sqlizer(userTable.Fields)
	require.NoError(t, err)

	query, args, err := cond.ToSql()
	require.NoError(t, err)
	assert.Equal(t, "(users.username = ? AND users.lastname ILIKE ?)", query)
	assert.Equal(t, []any{"bob", "%sm%"}, args)
}

func TestFilter_RangeConditions(t *testing.T) {
	f := Where(AtLeast(FieldOfficerCount, 2), AtMost(FieldRequestCount, 5))

	cond, err := f.sqlizer(departmentTable.Fields)
	require.NoError(t, err)

	query, args, err := cond.ToSql()
	require.NoError(t, err)
	assert.Contains(t, query, officerCountExpr+" >= ?")
	assert.Contains(t, query, requestCountExpr+" <= ?")
	assert.Equal(t, []any{2, 5}, args)
}

func TestFilter_ContainsEscapesWildcards(t *testing.T) {
	cond, err := Where(Contains(FieldTitle, `50%_off\`)).sqlizer(departmentTable.Fields)
	require.NoError(t, err)

	_, args, err := cond.ToSql()
	require.NoError(t, err)
	assert.Equal(t, []any{`%50\%\_off\\%`}, args)
}

func TestFilter_UnknownField(t *testing.T) {
	_, err := Where(Eq("nickname", "x")).sqlizer(userTable.Fields)
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestFilter_UnsupportedOperator(t *testing.T) {
	_, err := Where(Condition{Field: FieldUsername, Op: "regex", Value: "x"}).sqlizer(userTable.Fields)
	assert.ErrorContains(t, err, "unsupported filter operator")
}

func TestFilter_AndDoesNotMutate(t *testing.T) {
	base := Where(Eq(FieldRole, "citizen"))
	a := base.And(Eq(FieldUsername, "a"))
	b := base.And(Eq(FieldUsername, "b"))

	assert.Equal(t, 1, base.Len())
	assert.Equal(t, "a", a.Conditions()[1].Value)
	assert.Equal(t, "b", b.Conditions()[1].Value)
}

func TestPage_Skip(t *testing.T) {
	tests := []struct {
		page Page
		skip int
	}{
		{Page{Number: 1, Size: 10}, 0},
		{Page{Number: 2, Size: 10}, 10},
		{Page{Number: 3, Size: 25}, 50},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.skip, tt.page.Skip())
	}
}

func TestPage_Validate(t *testing.T) {
	assert.NoError(t, Page{Number: 1, Size: 1}.Validate())
	assert.ErrorIs(t, Page{Number: 0, Size: 10}.Validate(), ErrInvalidPage)
	assert.ErrorIs(t, Page{Number: 1, Size: 0}.Validate(), ErrInvalidPage)
	assert.ErrorIs(t, Page{Number: -1, Size: -1}.Validate(), ErrInvalidPage)
}
