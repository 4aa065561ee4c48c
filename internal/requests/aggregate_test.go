package requests

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func amount(v float64) *float64 { return &v }

func view(id string, status Status, amt *float64) RequestView {
	return RequestView{ID: id, Status: status, Amount: amt, Items: []LineItem{}}
}

func TestAggregateSkipsUnknownAmounts(t *testing.T) {
	views := []RequestView{
		view("1", StatusApproved, amount(100)),
		view("2", StatusApproved, nil),
		view("3", StatusApproved, amount(200)),
		view("4", StatusPending, amount(50)),
		view("5", StatusPending, nil),
	}
	stats := Aggregate(views)

	assert.Equal(t, DashboardStats{Total: 5, Pending: 2, Approved: 3, Rejected: 0, TotalApprovedAmount: 300}, stats)
	assert.Equal(t, stats.Total, stats.Pending+stats.Approved+stats.Rejected)
}

func TestAggregateEmpty(t *testing.T) {
	assert.Equal(t, DashboardStats{}, Aggregate(nil))
}

func TestApproverTotals(t *testing.T) {
	pending := []RequestView{view("1", StatusPending, nil), view("2", StatusPending, nil), view("9", StatusApproved, nil)}
	mine := []RequestView{view("3", StatusApproved, amount(10)), view("4", StatusRejected, nil), view("5", StatusPending, nil)}
	rejected := []RequestView{view("4", StatusRejected, nil), view("6", StatusPending, nil)}

	counts := ApproverTotals(pending, mine, rejected)
	assert.Equal(t, ApproverCounts{Pending: 2, MyApproved: 1, MyRejected: 2, Total: 5}, counts)
}

func TestApprovedSpendFallsBack(t *testing.T) {
	fallback := []RequestView{view("1", StatusApproved, amount(40)), view("2", StatusPending, amount(99))}
	assert.Equal(t, 40.0, ApprovedSpend(nil, fallback))

	mine := []RequestView{view("3", StatusApproved, amount(5)), view("4", StatusApproved, nil)}
	assert.Equal(t, 5.0, ApprovedSpend(mine, fallback))
}

func TestCollectionHelpers(t *testing.T) {
	list := []RequestView{view("1", StatusPending, nil), view("2", StatusPending, amount(3))}

	prepended, added := PrependIfAbsent(list, view("0", StatusApproved, nil))
	require.True(t, added)
	assert.Equal(t, "0", prepended[0].ID)
	assert.Len(t, list, 2)

	_, added = PrependIfAbsent(prepended, view("1", StatusApproved, nil))
	assert.False(t, added)

	replaced, found := Replace(list, RequestView{ID: "2", Title: "Updated", Status: StatusApproved})
	require.True(t, found)
	assert.Equal(t, "Updated", replaced[1].Title)
	assert.Equal(t, StatusApproved, replaced[1].Status)
	require.NotNil(t, replaced[1].Amount)
	assert.Equal(t, 3.0, *replaced[1].Amount)
	assert.Equal(t, StatusPending, list[1].Status)

	_, found = Replace(list, RequestView{ID: "missing"})
	assert.False(t, found)

	assert.Len(t, Remove(list, "1"), 1)
	assert.Equal(t, -1, IndexOf(Remove(list, "1"), "1"))
	assert.Len(t, FilterStatus(replaced, StatusApproved), 1)
}
