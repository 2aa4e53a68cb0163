package reader

import (
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
)

// ReadingSpeed is the assumed average reading speed in words per minute.
const ReadingSpeed = 200

// LabelComplete is shown once no reading time remains.
const LabelComplete = "Complete!"

// CountWords returns the number of maximal non-whitespace runs in text.
func CountWords(text string) int {
	return len(strings.FieldsFunc(text, isSpace))
}

func speedOrDefault(wpm int) int {
	if wpm <= 0 {
		return ReadingSpeed
	}
	return wpm
}

// ReadingMinutes estimates how long the text takes to read, never less than a minute.
func ReadingMinutes(words, wpm int) int {
	m := int(math.Ceil(float64(words) / float64(speedOrDefault(wpm))))
	if m < 1 {
		return 1
	}
	return m
}

// RemainingWords is the share of totalWords not yet covered at progress percent.
func RemainingWords(totalWords int, progress float64) int {
	return int(math.Ceil(float64(totalWords) * (100 - progress) / 100))
}

// RemainingMinutes converts remaining words into whole minutes, floored at zero.
func RemainingMinutes(words, wpm int) int {
	m := int(math.Ceil(float64(words) / float64(speedOrDefault(wpm))))
	if m < 0 {
		return 0
	}
	return m
}

// WordCountLabel renders "1,234 words".
func WordCountLabel(words int) string {
	return humanize.Comma(int64(words)) + " words"
}

// ReadingTimeLabel renders "~N min read".
func ReadingTimeLabel(minutes int) string {
	return fmt.Sprintf("~%d min read", minutes)
}

// RemainingLabel renders "~N min remaining", or LabelComplete at zero.
func RemainingLabel(minutes int) string {
	if minutes <= 0 {
		return LabelComplete
	}
	return fmt.Sprintf("~%d min remaining", minutes)
}
