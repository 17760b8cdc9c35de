// Package assets implements the per-kind processors (C7): audio, font,
// image, translation, and video, plus the classification-bucket logic
// shared across them.
package assets

import (
	"regexp"
	"strings"

	"rbxcache/internal/constants"
)

// SizeBucket returns the size-classification bucket name for a payload of
// the given length, per spec §3's fixed thresholds.
func SizeBucket(size int) string {
	switch {
	case size < 50*constants.KB:
		return constants.SizeBucketUltraSmall
	case size < 200*constants.KB:
		return constants.SizeBucketSmall
	case size < 1*constants.MB:
		return constants.SizeBucketMedium
	case size < 5*constants.MB:
		return constants.SizeBucketLarge
	default:
		return constants.SizeBucketUltraLarge
	}
}

// DurationBucket returns the duration-classification bucket name for a
// clip of the given length in seconds.
func DurationBucket(seconds float64) string {
	switch {
	case seconds < 5:
		return constants.AudioBucketUltraShort
	case seconds < 15:
		return constants.AudioBucketShort
	case seconds < 60:
		return constants.AudioBucketMedium
	case seconds < 300:
		return constants.AudioBucketLong
	default:
		return constants.AudioBucketUltraLong
	}
}

// styleKeywords maps face-name keywords to canonical style folder names.
// Combinations are listed before their constituent single keywords so
// FontStyle checks them first; order here is the precedence order.
var styleKeywords = []struct {
	keywords []string
	style    string
}{
	{[]string{"black", "italic"}, "Black Italic"},
	{[]string{"bold", "italic"}, "Bold Italic"},
	{[]string{"light", "italic"}, "Light Italic"},
	{[]string{"black"}, "Black"},
	{[]string{"bold"}, "Bold"},
	{[]string{"light"}, "Light"},
	{[]string{"italic"}, "Italic"},
	{[]string{"regular"}, "Regular"},
	{[]string{"medium"}, "Medium"},
	{[]string{"thin"}, "Thin"},
}

// FontStyle maps a face name to its canonical style folder, matching
// combination keywords before single keywords. Unrecognized face names
// fall back to the face name itself.
func FontStyle(faceName string) string {
	lower := strings.ToLower(faceName)
	for _, rule := range styleKeywords {
		matched := true
		for _, kw := range rule.keywords {
			if !strings.Contains(lower, kw) {
				matched = false
				break
			}
		}
		if matched {
			return rule.style
		}
	}
	if faceName == "" {
		return "Regular"
	}
	return faceName
}

// Translation content-type keyword families, checked in the order the
// spec lists them: UI, Errors, GameContent.
var (
	uiKeywordRe    = regexp.MustCompile(`(?i)\b(ui|button|menu|dialog|window|tab|label)\.`)
	errorKeywordRe = regexp.MustCompile(`(?i)\b(error|warning|exception|fail|invalid)\.`)
	gameKeywordRe  = regexp.MustCompile(`(?i)\b(game|player|item|action|feature|avatar)\.`)
)

// TranslationContentType infers a translation bundle's content type by
// tallying its keys against three keyword families. The family with a
// majority (> 30%) of matching keys wins; otherwise General.
func TranslationContentType(keys []string) string {
	if len(keys) == 0 {
		return constants.ContentTypeGeneral
	}

	var ui, errs, game int
	for _, k := range keys {
		switch {
		case uiKeywordRe.MatchString(k):
			ui++
		case errorKeywordRe.MatchString(k):
			errs++
		case gameKeywordRe.MatchString(k):
			game++
		}
	}

	total := float64(len(keys))
	switch {
	case float64(ui)/total > constants.ContentTypeMajorityFrac && ui >= errs && ui >= game:
		return constants.ContentTypeUI
	case float64(errs)/total > constants.ContentTypeMajorityFrac && errs >= game:
		return constants.ContentTypeErrors
	case float64(game)/total > constants.ContentTypeMajorityFrac:
		return constants.ContentTypeGameContent
	default:
		return constants.ContentTypeGeneral
	}
}
