package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, time.April, 15, 23, 30, 0, 0, time.UTC)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDaysBetweenIgnoresClock(t *testing.T) {
	assert.Equal(t, 1, DaysBetween(testNow, day(2026, time.April, 16)))
	assert.Equal(t, 0, DaysBetween(testNow, day(2026, time.April, 15)))
	assert.Equal(t, -15, DaysBetween(testNow, day(2026, time.March, 31)))
	assert.Equal(t, 29, LastDayOfMonth(2028, time.February))
	assert.Equal(t, 28, LastDayOfMonth(2026, time.February))
	assert.True(t, DateOf(testNow).Equal(day(2026, time.April, 15)))
}

func TestDeadlineDerivedState(t *testing.T) {
	tests := []struct {
		name      string
		status    string
		due       time.Time
		lead      *int
		remaining *int
		overdue   bool
		alert     bool
	}{
		{"due in five days", DeadlinePending, day(2026, time.April, 20), nil, intRef(5), false, false},
		{"inside default lead", DeadlinePending, day(2026, time.April, 18), nil, intRef(3), false, true},
		{"inside custom lead", DeadlinePending, day(2026, time.April, 20), intRef(7), intRef(5), false, true},
		{"zero lead tomorrow", DeadlinePending, day(2026, time.April, 16), intRef(0), intRef(1), false, false},
		{"zero lead due today", DeadlinePending, day(2026, time.April, 15), intRef(0), intRef(0), false, true},
		{"due today", DeadlinePending, day(2026, time.April, 15), nil, intRef(0), false, true},
		{"overdue", DeadlinePending, day(2026, time.April, 10), nil, intRef(-5), true, true},
		{"done", DeadlineDone, day(2026, time.April, 10), nil, nil, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &Deadline{Status: tt.status, DueDate: tt.due, AlertLeadDays: tt.lead}
			assert.Equal(t, tt.remaining, d.DaysRemaining(testNow))
			assert.Equal(t, tt.overdue, d.IsOverdue(testNow))
			assert.Equal(t, tt.alert, d.NeedsAlert(testNow))
		})
	}
}

func TestDeadlineComplete(t *testing.T) {
	d := &Deadline{Status: DeadlinePending, DueDate: day(2026, time.April, 20)}
	d.Complete(testNow)
	assert.Equal(t, DeadlineDone, d.Status)
	require.NotNil(t, d.CompletedAt)
	assert.True(t, d.CompletedAt.Equal(day(2026, time.April, 15)))
	assert.Nil(t, d.DaysRemaining(testNow))
}

func intRef(v int) *int { return &v }

func TestApplyPaymentRules(t *testing.T) {
	tests := []struct {
		name     string
		entry    FinancialEntry
		status   string
		category string
		paidAt   bool
	}{
		{"revenue default", FinancialEntry{Type: EntryRevenue, Amount: 100}, EntryPending, CategoryFees, false},
		{"expense default", FinancialEntry{Type: EntryExpense, Amount: 100}, EntryPending, CategoryCourtCosts, false},
		{"keeps category", FinancialEntry{Type: EntryRevenue, Category: "other", Amount: 100}, EntryPending, "other", false},
		{"partial", FinancialEntry{Type: EntryRevenue, Amount: 100, AmountPaid: 40}, EntryPartial, CategoryFees, false},
		{"paid", FinancialEntry{Type: EntryRevenue, Amount: 100, AmountPaid: 100}, EntryPaid, CategoryFees, true},
		{"overpaid", FinancialEntry{Type: EntryRevenue, Amount: 100, AmountPaid: 120}, EntryPaid, CategoryFees, true},
		{"keeps canceled", FinancialEntry{Type: EntryRevenue, Amount: 100, Status: EntryCanceled}, EntryCanceled, CategoryFees, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := tt.entry
			e.ApplyPaymentRules(testNow)
			assert.Equal(t, tt.status, e.Status)
			assert.Equal(t, tt.category, e.Category)
			if tt.paidAt {
				require.NotNil(t, e.PaidAt)
				assert.True(t, e.PaidAt.Equal(day(2026, time.April, 15)))
			} else {
				assert.Nil(t, e.PaidAt)
			}
		})
	}
}

func TestFinancialEntryDerivedState(t *testing.T) {
	e := &FinancialEntry{Amount: 200, AmountPaid: 50, Status: EntryPartial, DueDate: day(2026, time.April, 10)}
	assert.Equal(t, 150.0, e.Outstanding())
	assert.Equal(t, 25.0, e.PercentPaid())
	assert.True(t, e.IsOverdue(testNow))
	assert.Equal(t, 100.0, (&FinancialEntry{}).PercentPaid())

	upcoming := &FinancialEntry{SendReminder: true, Status: EntryPending, DueDate: day(2026, time.April, 18)}
	assert.True(t, upcoming.NeedsReminder(testNow))
	upcoming.DueDate = day(2026, time.April, 19)
	assert.False(t, upcoming.NeedsReminder(testNow))
	upcoming.ReminderLeadDays = intRef(5)
	assert.True(t, upcoming.NeedsReminder(testNow))

	dueDayOnly := &FinancialEntry{SendReminder: true, Status: EntryPending, DueDate: day(2026, time.April, 16), ReminderLeadDays: intRef(0)}
	assert.False(t, dueDayOnly.NeedsReminder(testNow))
	dueDayOnly.DueDate = day(2026, time.April, 15)
	assert.True(t, dueDayOnly.NeedsReminder(testNow))

	late := &FinancialEntry{SendReminder: true, Status: EntryPending, DueDate: day(2026, time.April, 14)}
	assert.False(t, late.NeedsReminder(testNow))

	off := &FinancialEntry{Status: EntryPending, DueDate: day(2026, time.April, 16)}
	assert.False(t, off.NeedsReminder(testNow))
}

func TestInstallmentDueDates(t *testing.T) {
	dates := InstallmentDueDates(day(2026, time.November, 20), 4, 31)
	require.Len(t, dates, 4)
	assert.True(t, dates[0].Equal(day(2026, time.November, 20)))
	assert.True(t, dates[1].Equal(day(2026, time.December, 31)))
	assert.True(t, dates[2].Equal(day(2027, time.January, 31)))
	assert.True(t, dates[3].Equal(day(2027, time.February, 28)))

	defaults := InstallmentDueDates(testNow, 2, 0)
	assert.True(t, defaults[1].Equal(day(2026, time.May, DefaultInstallmentDay)))

	assert.Empty(t, InstallmentDueDates(testNow, 0, 10))
}

func TestInstallmentAmount(t *testing.T) {
	assert.Equal(t, 500.0, (&FeeContract{TotalAmount: 1500, Installments: 3}).InstallmentAmount())
	assert.Equal(t, 1500.0, (&FeeContract{TotalAmount: 1500}).InstallmentAmount())
}

func TestCaseDaysUntilNextHearing(t *testing.T) {
	c := &Case{Hearings: []Hearing{
		{Date: day(2026, time.April, 30), Status: HearingScheduled},
		{Date: day(2026, time.April, 20), Status: HearingCanceled},
		{Date: day(2026, time.April, 22), Status: HearingConfirmed},
		{Date: day(2026, time.April, 1), Status: HearingScheduled},
	}}
	days := c.DaysUntilNextHearing(testNow)
	require.NotNil(t, days)
	assert.Equal(t, 7, *days)

	assert.Nil(t, (&Case{}).DaysUntilNextHearing(testNow))
}
