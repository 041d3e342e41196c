package device

import (
	"fmt"
	"time"
)

// DecodeFATTime converts a FAT date/time pair to local time. Cards in the
// wild emit zero months and days, so out-of-range values clamp into the
// calendar instead of failing.
func DecodeFATTime(date, tm uint16) time.Time {
	year := int(date>>9) + 1980
	month := int(date>>5) & 0xf
	day := int(date) & 0x1f
	hour := int(tm >> 11)
	minute := int(tm>>5) & 0x3f
	second := int(tm&0x1f) * 2

	if month < 1 {
		month = 1
	} else if month > 12 {
		month = 12
	}
	if day < 1 {
		day = 1
	}
	return time.Date(year, time.Month(month), day, hour, minute, second, 0, time.Local)
}

// EncodeFATTime converts t to a FAT date/time pair in local time. FAT
// cannot express years before 1980; those collapse to the epoch.
func EncodeFATTime(t time.Time) (date, tm uint16) {
	t = t.Local()
	if t.Year() < 1980 {
		t = time.Date(1980, 1, 1, 0, 0, 0, 0, time.Local)
	}
	date = uint16((t.Year()-1980)<<9 | int(t.Month())<<5 | t.Day())
	tm = uint16(t.Hour()<<11 | t.Minute()<<5 | t.Second()/2)
	return date, tm
}

// FormatFATTime renders t as the 32-bit hex literal upload.cgi expects
// for FTIME, date word high and time word low.
func FormatFATTime(t time.Time) string {
	date, tm := EncodeFATTime(t)
	return fmt.Sprintf("%#010x", uint32(date)<<16|uint32(tm))
}
