package common

import (
	"sync"
	"time"
)

// 统计口径使用平台本地时区（报表按自然日/周/月对齐运营侧）
var (
	locOnce   sync.Once
	reportLoc *time.Location
)

func reportLocation() *time.Location {
	locOnce.Do(func() {
		loc, err := time.LoadLocation("Asia/Shanghai")
		if err != nil {
			loc = time.FixedZone("CST", 8*3600)
		}
		reportLoc = loc
	})
	return reportLoc
}

// GetTodayRange 当天 00:00:00 与次日 00:00:00（Unix 秒）
func GetTodayRange(t time.Time) (start, end int64) {
	loc := reportLocation()
	year, month, day := t.In(loc).Date()

	startTime := time.Date(year, month, day, 0, 0, 0, 0, loc)
	endTime := startTime.AddDate(0, 0, 1)

	return startTime.Unix(), endTime.Unix()
}

// GetWeekRange 当周周一 00:00:00 与下周一 00:00:00（Unix 秒）
func GetWeekRange(t time.Time) (start, end int64) {
	loc := reportLocation()
	t = t.In(loc)

	// 周日按 7 处理，保证周一为一周起点
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7
	}

	year, month, day := t.Date()
	monday := time.Date(year, month, day, 0, 0, 0, 0, loc).AddDate(0, 0, -(weekday - 1))
	nextMonday := monday.AddDate(0, 0, 7)

	return monday.Unix(), nextMonday.Unix()
}

// GetMonthRange 当月月初 00:00:00 与下月月初 00:00:00（Unix 秒）
func GetMonthRange(t time.Time) (start, end int64) {
	loc := reportLocation()
	t = t.In(loc)

	year, month, _ := t.Date()
	firstDay := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	nextMonth := firstDay.AddDate(0, 1, 0)

	return firstDay.Unix(), nextMonth.Unix()
}
