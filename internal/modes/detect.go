package modes

import (
	"regexp"
	"strings"
)

var (
	fencedCode = regexp.MustCompile("```[\\s\\S]*?```")
	inlineCode = regexp.MustCompile("`[^`]+`")
	urlPattern = regexp.MustCompile(`https?://\S+`)
)

type detector struct {
	mode     Mode
	patterns []*regexp.Regexp
}

// Checked in order; a mode matches when any of its patterns does.
var detectors = []detector{
	{Cancel, compile(`\b(cancelomd|stopomd)\b`)},
	{Ralph, compile(`\b(ralph|don't stop|must complete|until done)\b`)},
	{Autopilot, compile(
		`\b(autopilot|auto pilot|auto-pilot|autonomous|full auto|fullsend)\b`,
		`\bbuild\s+me\s+|\bcreate\s+me\s+|\bmake\s+me\s+|\bi\s+want\s+a\s+|\bhandle\s+it\s+all\b|\bend\s+to\s+end\b`,
	)},
	{Ultrawork, compile(`\b(ultrawork|ulw|uw)\b`)},
	{Ecomode, compile(`\b(eco|ecomode|eco-mode|efficient|save-tokens|budget)\b`)},
	{Pipeline, compile(`\b(pipeline)\b`, `\bchain\s+droids\b`)},
	{Plan, compile(`\b(plan this|plan the)\b`)},
	{Research, compile(`\b(research)\b`)},
}

func compile(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}

// Sanitize removes fenced code blocks, inline code spans and URLs, then
// lower-cases the rest. Quoted material never triggers a mode.
func Sanitize(text string) string {
	text = fencedCode.ReplaceAllString(text, "")
	text = inlineCode.ReplaceAllString(text, "")
	text = urlPattern.ReplaceAllString(text, "")
	return strings.ToLower(text)
}

// Detect returns the modes whose keywords appear in text, without
// duplicates, in detection order.
func Detect(text string) []Mode {
	clean := Sanitize(text)
	if strings.TrimSpace(clean) == "" {
		return nil
	}

	var matches []Mode
	seen := make(map[Mode]bool)
	for _, d := range detectors {
		if seen[d.mode] {
			continue
		}
		for _, re := range d.patterns {
			if re.MatchString(clean) {
				matches = append(matches, d.mode)
				seen[d.mode] = true
				break
			}
		}
	}
	return matches
}
