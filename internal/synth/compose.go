package synth

import (
	"strings"

	"github.com/dgallion1/personabot/internal/advice"
	"github.com/dgallion1/personabot/internal/dedup"
	"github.com/dgallion1/personabot/internal/ending"
	"github.com/dgallion1/personabot/internal/persona"
	"github.com/dgallion1/personabot/internal/segment"
)

// sentencePool flattens candidates into sentences. Advisory sentences go
// first, step-like ones ahead of the rest, when actionableFirst is set.
func (a *Assembler) sentencePool(candidates []string) []string {
	var all []string
	for _, c := range candidates {
		all = append(all, segment.Split(c)...)
	}
	if !a.actionableFirst {
		return all
	}

	var actionable, rest []string
	for _, s := range all {
		if advice.IsActionable(s) {
			actionable = append(actionable, s)
		} else {
			rest = append(rest, s)
		}
	}
	if len(actionable) == 0 {
		return all
	}
	return append(advice.OrganizeAsSteps(actionable), rest...)
}

func (a *Assembler) detailed(candidates []string, p *persona.Profile) (string, []string) {
	target := TargetLength(p)

	var set dedup.Set
	length := 0
	for _, s := range a.sentencePool(candidates) {
		if float64(length) >= target {
			break
		}
		if set.Accept(s) {
			length += segment.Len(s)
		}
	}
	parts := set.Items()

	if len(parts) < minParts {
		// Dedup was too aggressive: fall back to whole messages.
		whole := nonBlank(candidates)
		switch {
		case len(whole) >= minParts:
			parts = whole[:minParts]
		case len(parts) == 0 && len(whole) == 1:
			parts = whole
		case len(parts) == 0:
			return a.fallback, nil
		}
	}

	lines := make([]string, len(parts))
	last := len(parts) - 1
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if i == last {
			lines[i] = ending.Apply(part, p.CommonEndings, a.selector)
		} else {
			lines[i] = segment.EnsureTerminal(part)
		}
	}
	return strings.Join(lines, partSeparator), lines
}

func (a *Assembler) casual(candidates []string, p *persona.Profile) (string, []string) {
	base := strings.TrimSpace(candidates[0])
	n := float64(segment.Len(base))

	switch {
	case n > p.AvgMessageLength*1.5:
		base = segment.First(base) + segment.DefaultTerminal
	case n < p.AvgMessageLength*0.5 && len(candidates) > 1:
		if s := segment.First(candidates[1]); s != "" {
			if base != "" {
				base += " "
			}
			base += s + segment.DefaultTerminal
		}
	}

	if strings.TrimSpace(base) == "" {
		return a.fallback, nil
	}
	reply := ending.Apply(base, p.CommonEndings, a.selector)
	return reply, []string{reply}
}

func nonBlank(candidates []string) []string {
	var out []string
	for _, c := range candidates {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}
