package utils

import "time"

const MonthLayout = "2006-01"

// AddMonths сдвигает момент на n календарных месяцев по правилам time.AddDate.
func AddMonths(t time.Time, n int) time.Time {
	return t.AddDate(0, n, 0)
}

// MonthKey возвращает месяц момента в UTC в формате "2006-01".
func MonthKey(t time.Time) string {
	return t.UTC().Format(MonthLayout)
}
