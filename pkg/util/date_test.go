package util

import (
    "strconv"
    "testing"
    "time"
)

func TestParseTimeDateOnly(t *testing.T) {
    got, ok := ParseTime("2024-10-10")
    if !ok {
        t.Fatalf("expected ok")
    }
    if got.Format(time.DateOnly) != "2024-10-10" {
        t.Fatalf("unexpected time %v", got)
    }
}

func TestParseTimeRFC3339(t *testing.T) {
    s := "2024-10-10T10:10:10Z"
    got, ok := ParseTime(s)
    if !ok {
        t.Fatalf("expected ok")
    }
    if got.Format(time.RFC3339) != s {
        t.Fatalf("unexpected time %v", got)
    }
}

func TestParseTimeUnix(t *testing.T) {
    ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
    got, ok := ParseTime(strconv.FormatInt(ts, 10))
    if !ok {
        t.Fatalf("expected ok")
    }
    if got.Unix() != ts {
        t.Fatalf("unexpected unix %v", got.Unix())
    }
}

func TestNextBusinessDaysSkipsWeekend(t *testing.T) {
    // Friday
    start := time.Date(2024, 10, 11, 0, 0, 0, 0, time.UTC)
    got := NewBusinessCalendar().NextBusinessDays(start, 3)
    want := []string{"2024-10-14", "2024-10-15", "2024-10-16"}
    if len(got) != len(want) {
        t.Fatalf("expected %d days, got %d", len(want), len(got))
    }
    for i, d := range got {
        if d.Format(time.DateOnly) != want[i] {
            t.Fatalf("day %d: want %s got %s", i, want[i], d.Format(time.DateOnly))
        }
    }
}

func TestNextBusinessDaysFromWeekendAndHoliday(t *testing.T) {
    // Saturday, Monday is a holiday
    start := time.Date(2024, 12, 21, 0, 0, 0, 0, time.UTC)
    got := NewBusinessCalendar("2024-12-23", "bogus").NextBusinessDays(start, 2)
    if got[0].Format(time.DateOnly) != "2024-12-24" || got[1].Format(time.DateOnly) != "2024-12-25" {
        t.Fatalf("unexpected days %v", got)
    }
}

func TestNextBusinessDaysStrictlyAfterAndCount(t *testing.T) {
    start := time.Date(2024, 1, 2, 15, 30, 0, 0, time.UTC) // Tuesday afternoon
    got := NewBusinessCalendar().NextBusinessDays(start, 30)
    if len(got) != 30 {
        t.Fatalf("expected 30 days, got %d", len(got))
    }
    prev := TruncateDay(start)
    for _, d := range got {
        if !d.After(prev) {
            t.Fatalf("%v not after %v", d, prev)
        }
        if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
            t.Fatalf("weekend day %v", d)
        }
        prev = d
    }
    if NewBusinessCalendar().NextBusinessDays(start, 0) != nil {
        t.Fatalf("expected nil for zero count")
    }
}

func TestSplitList(t *testing.T) {
    got := SplitList(" AAPL, ,msft,")
    if len(got) != 2 || got[0] != "AAPL" || got[1] != "msft" {
        t.Fatalf("unexpected %v", got)
    }
}

func TestParseBoolDefault(t *testing.T) {
    if !ParseBoolDefault("true", false) || ParseBoolDefault(" 0 ", true) || !ParseBoolDefault("maybe", true) {
        t.Fatalf("unexpected ParseBoolDefault result")
    }
}
