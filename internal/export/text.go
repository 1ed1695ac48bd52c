package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/whatchicken/slack-dm-scraper/internal"
)

const (
	dateRule       = "- - - - - - - - - -"
	groupSeparator = "----------\n"
)

var koreanWeekdays = [...]string{"일요일", "월요일", "화요일", "수요일", "목요일", "금요일", "토요일"}

type textLocale struct {
	date   func(t time.Time) string
	am, pm string
}

var textLocales = map[string]textLocale{
	"ko": {
		date: func(t time.Time) string {
			return fmt.Sprintf("%d년 %d월 %d일 %s", t.Year(), int(t.Month()), t.Day(), koreanWeekdays[t.Weekday()])
		},
		am: "오전",
		pm: "오후",
	},
	"en": {
		date: func(t time.Time) string {
			return t.Format("January 2, 2006 Monday")
		},
		am: "AM",
		pm: "PM",
	},
}

// TextExporter renders the plain-text transcript: messages grouped by
// calendar day under a dashed date header, one line per message.
type TextExporter struct {
	Locale   string
	Location *time.Location
}

// Export writes the transcript. An empty transcript is ErrEmptyResult and
// nothing is written.
func (e *TextExporter) Export(t *internal.Transcript, w io.Writer) error {
	if err := checkTranscript(t); err != nil {
		return err
	}
	_, err := io.WriteString(w, FormatText(t.Messages, e.Locale, e.Location))
	return err
}

// Extension returns the file extension for this format
func (e *TextExporter) Extension() string {
	return "txt"
}

// FormatText renders records, which must already be sorted ascending
func FormatText(records []internal.MessageRecord, locale string, loc *time.Location) string {
	l, ok := textLocales[locale]
	if !ok {
		l = textLocales["ko"]
	}
	if loc == nil {
		loc = time.Local
	}

	var b strings.Builder
	lastDay := ""
	for _, r := range records {
		ts := r.Time(loc)

		day := ts.Format("2006-01-02")
		if day != lastDay {
			if b.Len() > 0 {
				b.WriteString(groupSeparator)
			}
			fmt.Fprintf(&b, "\n%s %s %s\n\n", dateRule, l.date(ts), dateRule)
			lastDay = day
		}

		fmt.Fprintf(&b, "%s, %s : %s\n", l.clock(ts), r.Sender, r.Text)
	}
	return b.String()
}

func (l textLocale) clock(t time.Time) string {
	half := l.am
	if t.Hour() >= 12 {
		half = l.pm
	}
	hour := t.Hour() % 12
	if hour == 0 {
		hour = 12
	}
	return fmt.Sprintf("%d. %d. %d. %s %d:%02d", t.Year(), int(t.Month()), t.Day(), half, hour, t.Minute())
}
